package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a JSON Schema from the argument struct type. The
// reflector inlines definitions and forbids unknown properties so the
// registry's validator rejects anything the executor would silently drop.
func schemaFor[T any]() map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	var v T
	schema := r.Reflect(&v)

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("toolkit: reflect schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("toolkit: decode schema: %v", err))
	}
	// Provider tool declarations want a bare object schema.
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
