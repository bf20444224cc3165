// Package schema compiles JSON Schemas and checks decoded documents against them.
package schema

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/traffisense/core/errors"
)

// Problem is one schema violation, located by JSON pointer.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	path := p.Path
	if path == "" {
		path = "/"
	}
	return path + ": " + p.Message
}

// Validator checks documents against one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// NewValidator compiles the draft-07 schema in data, registered as name.
func NewValidator(name string, data []byte) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "invalid schema resource").WithDetail("schema", name)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "schema does not compile").WithDetail("schema", name)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// Validate checks doc, which is first normalised to plain JSON values. A
// failure is a CONFIG_VALIDATION error whose "problems" detail lists every
// violated location.
func (v *Validator) Validate(doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "document is not JSON encodable")
	}
	var plain interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "document is not JSON encodable")
	}

	err = v.schema.Validate(plain)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !stderrors.As(err, &verr) {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	problems := Problems(verr)
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = "  " + p.String()
	}
	return errors.New(errors.ErrCodeConfigValidation,
		fmt.Sprintf("%s: %d problem(s)\n%s", v.name, len(problems), strings.Join(lines, "\n"))).
		WithDetail("problems", problems)
}

// Problems flattens the leaf causes of a validation error, sorted by path.
func Problems(err *jsonschema.ValidationError) []Problem {
	var out []Problem
	seen := make(map[Problem]bool)
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			p := Problem{Path: e.InstanceLocation, Message: e.Message}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(err)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
