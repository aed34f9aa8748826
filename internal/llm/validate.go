package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const draftSchemaURL = "draft-invoice.schema.json"

// CompileDraftSchema compiles DraftJSONSchema once; clients keep the result.
func CompileDraftSchema() (*jsonschema.Schema, error) {
	doc, err := json.Marshal(DraftJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("encode draft schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(draftSchemaURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("load draft schema: %w", err)
	}
	return c.Compile(draftSchemaURL)
}

// ValidateDraft checks decoded model output against the compiled schema.
// A nil schema accepts everything.
func ValidateDraft(schema *jsonschema.Schema, v any) error {
	if schema == nil {
		return nil
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("draft does not match schema: %w", err)
	}
	return nil
}
