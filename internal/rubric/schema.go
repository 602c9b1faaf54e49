package rubric

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/leadrouter/internal/model"
)

// configSchema validates the shape of a fetched rubric document before it is
// accepted. Points values must be integers; rule conditions are free-form
// strings; unknown top-level fields are allowed so the config can grow.
const configSchema = `{
	"type": "object",
	"required": ["version", "questions"],
	"properties": {
		"version": {"type": "string"},
		"ttl_ms": {"type": "integer", "minimum": 0},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"answers": {
						"type": "object",
						"additionalProperties": {"type": "integer"}
					},
					"enrichment_only": {"type": "boolean"}
				}
			}
		},
		"rules": {
			"type": "object",
			"properties": {
				"conditional_scoring": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["if_question_id"],
						"properties": {
							"if_question_id": {"type": "string", "minLength": 1},
							"if_answer_equals": {"type": "string"},
							"if_answer_not_equals": {"type": "string"},
							"ignore_question_ids": {
								"type": "array",
								"items": {"type": "string"}
							}
						}
					}
				}
			}
		},
		"thresholds": {
			"type": "object",
			"additionalProperties": {"type": "integer"}
		},
		"outputs": {
			"type": "object",
			"properties": {
				"lead_tier_values": {
					"type": "object",
					"additionalProperties": {"type": "string"}
				},
				"lead_tier_param": {"type": "string"}
			}
		},
		"routing": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"type": {"type": "string", "enum": ["redirect", "embed"]},
					"url": {"type": "string"},
					"headline": {"type": "string"}
				}
			}
		}
	}
}`

// ValidateSchema checks a raw rubric document against the config schema.
func ValidateSchema(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return eris.Wrap(err, "rubric: schema validation")
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return eris.Errorf("rubric: invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateThresholds checks tier threshold monotonicity:
// tier_5_min >= tier_4_min >= tier_3_min >= tier_2_min, ignoring absent
// entries. The engine assumes this but does not require it; strict mode and
// `rubric validate` enforce it.
func ValidateThresholds(cfg *model.ScoringConfig) error {
	mins := []struct {
		name string
		v    *int
	}{
		{"tier_5_min", cfg.Thresholds.Tier5Min},
		{"tier_4_min", cfg.Thresholds.Tier4Min},
		{"tier_3_min", cfg.Thresholds.Tier3Min},
		{"tier_2_min", cfg.Thresholds.Tier2Min},
	}

	var prevName string
	var prev *int
	for _, m := range mins {
		if m.v == nil {
			continue
		}
		if prev != nil && *m.v > *prev {
			return eris.Errorf("rubric: thresholds not monotonic: %s (%d) > %s (%d)",
				m.name, *m.v, prevName, *prev)
		}
		prevName, prev = m.name, m.v
	}
	return nil
}
