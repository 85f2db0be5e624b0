package that

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"that/pkg/failure"
)

var compiledSchemas sync.Map // schema text -> *jsonschema.Schema

func compileSchema(text string) (*jsonschema.Schema, error) {
	if s, ok := compiledSchemas.Load(text); ok {
		return s.(*jsonschema.Schema), nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("subject.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("subject.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiledSchemas.Store(text, schema)
	return schema, nil
}

// MatchesSchema validates the subject against a JSON Schema. schema is the
// schema document as a string, []byte, or any value that marshals to it. The
// subject is converted through encoding/json first, so structs validate by
// their JSON field names.
func (s *Subject) MatchesSchema(schema any) *Subject {
	expr := s.expr("MatchesSchema")

	var text string
	switch v := schema.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		b, err := json.Marshal(schema)
		if err != nil {
			s.misuse(expr, "marshal schema: %w", err)
		}
		text = string(b)
	}

	compiled, err := compileSchema(text)
	if err != nil {
		s.misuse(expr, "%w", err)
	}

	raw, err := json.Marshal(s.value)
	if err != nil {
		s.misuse(expr, "marshal subject: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		s.misuse(expr, "decode subject: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		failure.Raise(&failure.Error{
			Kind:     failure.KindAssertion,
			Message:  expr,
			Expected: describef("value matching schema"),
			Actual:   s.value,
			Cause:    err,
		})
	}
	return s
}
