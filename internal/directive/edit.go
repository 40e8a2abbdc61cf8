package directive

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/hitl-agent-client-go/internal/errors"
)

// SchemaFor derives a structural schema from the arguments the agent proposed.
//
// Each proposed key is typed after its proposed value. Keys the agent left null
// and keys it did not propose are unconstrained.
func SchemaFor(proposed map[string]any) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(proposed))

	for name, value := range proposed {
		properties[name] = valueSchema(value)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
	}
}

// valueSchema maps a decoded JSON value to the schema type it must keep.
func valueSchema(value any) *jsonschema.Schema {
	switch value.(type) {
	case string:
		return &jsonschema.Schema{Type: "string"}
	case float64, int, int64:
		return &jsonschema.Schema{Type: "number"}
	case bool:
		return &jsonschema.Schema{Type: "boolean"}
	case map[string]any:
		return &jsonschema.Schema{Type: "object"}
	case []any:
		return &jsonschema.Schema{Type: "array"}
	default:
		return &jsonschema.Schema{}
	}
}

// ParseEdit parses operator input into an Edit and checks it against the
// shape of the proposed arguments.
func ParseEdit(input string, proposed map[string]any) (*Edit, error) {
	input = strings.TrimSpace(input)

	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return nil, &errors.DirectiveError{Kind: string(KindEdit), Reason: "arguments are not valid JSON", Err: err}
	}

	edit := &Edit{Args: args}
	if err := CheckEdit(edit, proposed); err != nil {
		return nil, err
	}

	return edit, nil
}

// CheckEdit validates an edit's arguments against SchemaFor(proposed).
func CheckEdit(edit *Edit, proposed map[string]any) error {
	if err := edit.Validate(); err != nil {
		return err
	}

	resolved, err := SchemaFor(proposed).Resolve(nil)
	if err != nil {
		return &errors.DirectiveError{Kind: string(KindEdit), Reason: "cannot build argument schema", Err: err}
	}

	if err := resolved.Validate(edit.Args); err != nil {
		return &errors.DirectiveError{Kind: string(KindEdit), Reason: "arguments do not match the proposed shape", Err: err}
	}

	return nil
}
