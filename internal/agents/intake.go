package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"tradeflow/internal/bus"
	"tradeflow/internal/store"
	"tradeflow/internal/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// ideaSchema constrains externally submitted idea documents.
const ideaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["chain", "asset", "budget"],
  "properties": {
    "chain": {"type": "string", "minLength": 1},
    "asset": {"type": "string", "minLength": 1},
    "budget": {"type": "number", "exclusiveMinimum": 0},
    "description": {"type": "string"},
    "risk": {"type": "integer", "minimum": 1, "maximum": 5}
  },
  "additionalProperties": false
}`

// Intake accepts raw idea documents from outside the process.
type Intake struct {
	store  *store.EntityStore
	bus    *bus.EventBus
	schema *jsonschema.Schema
}

func NewIntake(st *store.EntityStore, eb *bus.EventBus) (*Intake, error) {
	schema, err := jsonschema.CompileString("idea.schema.json", ideaSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling idea schema failed: %w", err)
	}
	return &Intake{store: st, bus: eb, schema: schema}, nil
}

// IngestIdeaJSON validates raw against the idea schema, stores the resulting
// idea in the NEW state and publishes it to the idea stream.
func (in *Intake) IngestIdeaJSON(ctx context.Context, raw []byte) (types.Idea, error) {
	if !gjson.ValidBytes(raw) {
		return types.Idea{}, fmt.Errorf("idea document is not valid JSON")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.Idea{}, fmt.Errorf("decoding idea document failed: %w", err)
	}
	if err := in.schema.Validate(doc); err != nil {
		return types.Idea{}, fmt.Errorf("idea document rejected: %w", err)
	}
	parsed := gjson.ParseBytes(raw)
	risk := int(parsed.Get("risk").Int())
	if risk == 0 {
		risk = 3
	}
	idea := in.store.AddIdea(types.NewIdea(
		parsed.Get("chain").String(),
		parsed.Get("asset").String(),
		parsed.Get("budget").Float(),
		parsed.Get("description").String(),
		risk,
	))
	in.bus.Publish(ctx, bus.TopicIdeas, map[string]any{
		"idea_id": idea.ID,
		"chain":   idea.Chain,
		"asset":   idea.Asset,
		"budget":  idea.Budget,
		"risk":    idea.Risk,
		"status":  string(idea.Status),
		"source":  "intake",
	})
	return idea, nil
}
