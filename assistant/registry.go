package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Classification marks a tool as side-effect-free or mutating. Write tools
// are never auto-executed; they require human confirmation.
type Classification string

const (
	ClassificationRead  Classification = "read"
	ClassificationWrite Classification = "write"
)

// ExecuteFunc runs a tool against parsed-but-unvalidated JSON arguments and
// returns a JSON-serializable result rendered as a string.
type ExecuteFunc func(ctx context.Context, input json.RawMessage) (string, error)

// Tool pairs a schema with its executor and classification.
type Tool struct {
	Name           string
	Description    string
	InputSchema    map[string]any
	Classification Classification
	Execute        ExecuteFunc

	compiled *jsonschema.Schema
}

// ToolSchema is the serializable catalog entry sent to the model.
type ToolSchema struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	InputSchema    map[string]any `json:"input_schema"`
	Classification Classification `json:"classification"`
}

// Registry is the static catalog of callable capabilities. It is built once
// at startup and immutable thereafter, safe for concurrent exchanges.
type Registry struct {
	tools map[string]*Tool
	names []string // sorted, for deterministic schema ordering
}

// NewRegistry compiles and indexes the given tools. Tool names must be
// unique; each input schema must be a valid JSON Schema, compiled here once
// so per-call validation is cheap.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Tool, len(tools))}
	for i := range tools {
		t := tools[i]
		if t.Name == "" {
			return nil, fmt.Errorf("tool at index %d has no name", i)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name)
		}
		if t.Execute == nil {
			return nil, fmt.Errorf("tool %q has no executor", t.Name)
		}
		if t.Classification != ClassificationRead && t.Classification != ClassificationWrite {
			return nil, fmt.Errorf("tool %q has invalid classification %q", t.Name, t.Classification)
		}
		if t.InputSchema != nil {
			compiled, err := compileSchema(t.Name, t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("tool %q: %w", t.Name, err)
			}
			t.compiled = compiled
		}
		r.tools[t.Name] = &t
		r.names = append(r.names, t.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error. For static tool sets
// wired at startup.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the tool with the given name. Absence is a normal outcome, not
// an error; lookups are case-sensitive exact matches.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns all registered tool schemas in sorted-name order.
func (r *Registry) Schemas() []ToolSchema {
	out := make([]ToolSchema, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		out = append(out, ToolSchema{
			Name:           t.Name,
			Description:    t.Description,
			InputSchema:    t.InputSchema,
			Classification: t.Classification,
		})
	}
	return out
}

// IsWrite reports whether the named tool is write-classified. Unknown names
// report false; safety-gating callers must confirm existence with Get first.
func (r *Registry) IsWrite(name string) bool {
	t, ok := r.tools[name]
	return ok && t.Classification == ClassificationWrite
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// run validates the input against the tool's schema and executes it,
// converting panics into errors so a misbehaving tool never aborts the
// exchange.
func (t *Tool) run(ctx context.Context, input json.RawMessage) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name, rec)
		}
	}()

	if t.compiled != nil {
		var inst any
		if len(input) > 0 {
			if uerr := json.Unmarshal(input, &inst); uerr != nil {
				return "", fmt.Errorf("invalid tool arguments: %w", uerr)
			}
		} else {
			inst = map[string]any{}
		}
		if verr := t.compiled.Validate(inst); verr != nil {
			return "", fmt.Errorf("arguments do not match schema for %s: %w", t.Name, verr)
		}
	}

	return t.Execute(ctx, input)
}

// compileSchema turns a schema map into a resolved validator.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	url := "tool:///" + name + ".json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}
