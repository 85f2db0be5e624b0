package main

import (
	"that/cmd"
	"that/internal/examples/todo"
	"that/pkg/registry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	reg := registry.New()
	todo.Register(reg)

	cmd.SetVersion(version)
	cmd.SetRegistry(reg)
	cmd.Execute()
}
