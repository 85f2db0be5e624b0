package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CassetteVersion is the only cassette format version understood.
const CassetteVersion = 1

// ErrUnsupportedVersion is returned for cassettes written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported cassette version")

// Request is the recorded side of an HTTP request.
type Request struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
}

// Response is a recorded HTTP response.
type Response struct {
	Status  int               `yaml:"status"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body"`
}

// Interaction pairs a request with the response it received.
type Interaction struct {
	Request  Request  `yaml:"request"`
	Response Response `yaml:"response"`
}

// Cassette is the on-disk set of interactions for one test.
type Cassette struct {
	Version      int           `yaml:"version"`
	Interactions []Interaction `yaml:"interactions"`
}

// CassettePath returns the file a named cassette lives in.
func CassettePath(dir, name string) string {
	return filepath.Join(dir, name+".yaml")
}

// LoadCassette reads a cassette file. A missing file is reported with an
// error wrapping os.ErrNotExist.
func LoadCassette(path string) (*Cassette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Cassette
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse cassette %s: %w", path, err)
	}
	if c.Version == 0 {
		c.Version = CassetteVersion
	}
	if c.Version > CassetteVersion {
		return nil, fmt.Errorf("cassette %s: %w %d", path, ErrUnsupportedVersion, c.Version)
	}
	return &c, nil
}

// Save writes the cassette to path, creating its directory.
func (c *Cassette) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cassette directory: %w", err)
	}
	c.Version = CassetteVersion
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cassette: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cassette %s: %w", path, err)
	}
	return nil
}
