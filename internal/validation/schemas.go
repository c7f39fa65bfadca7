package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// interactionEventSchema guards the interaction topic: malformed events go
// to the DLQ instead of poisoning the interaction log.
const interactionEventSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["event_id", "user_id", "item_id", "action", "timestamp"],
	"properties": {
		"event_id": {"type": "string", "minLength": 1},
		"user_id": {"type": "integer", "minimum": 1},
		"item_id": {"type": "integer", "minimum": 1},
		"action": {"type": "string", "enum": ["view", "cart", "purchase"]},
		"timestamp": {"type": "string", "format": "date-time"},
		"source": {"type": "string"}
	},
	"additionalProperties": false
}`

// InteractionValidator validates raw interaction event payloads against
// the JSON schema above.
type InteractionValidator struct {
	schema *gojsonschema.Schema
}

func NewInteractionValidator() (*InteractionValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(interactionEventSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile interaction event schema: %w", err)
	}
	return &InteractionValidator{schema: schema}, nil
}

// ValidateInteractionEvent checks one raw payload and returns an error
// describing every violation.
func (v *InteractionValidator) ValidateInteractionEvent(payload []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate interaction event: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("invalid interaction event: %s", strings.Join(problems, "; "))
}
