// Package model defines the shared data types of the lead routing engine.
package model

import "encoding/json"

// Question is a single survey question in the scoring rubric. Answers maps
// an answer key to the points it awards. Enrichment-only questions are
// collected for context and never contribute to the score.
type Question struct {
	ID             string         `json:"id"`
	Answers        map[string]int `json:"answers"`
	EnrichmentOnly bool           `json:"enrichment_only,omitempty"`
}

// ConditionalRule suppresses scoring of other questions depending on the
// answer given to a target question. Exactly one of IfAnswerEquals and
// IfAnswerNotEquals is expected to be set; when both are set a match on
// either condition suffices.
type ConditionalRule struct {
	IfQuestionID      string   `json:"if_question_id"`
	IfAnswerEquals    *string  `json:"if_answer_equals,omitempty"`
	IfAnswerNotEquals *string  `json:"if_answer_not_equals,omitempty"`
	IgnoreQuestionIDs []string `json:"ignore_question_ids"`
}

// Rules groups the rubric's rule sets.
type Rules struct {
	ConditionalScoring []ConditionalRule `json:"conditional_scoring,omitempty"`
}

// Thresholds holds the minimum score for each tier. Tier 1 is the implicit
// floor. A nil entry means the tier is never selected by threshold.
// Monotonicity (tier_5_min >= tier_4_min >= ...) is assumed, not enforced;
// evaluation is first-match-wins from tier 5 down.
type Thresholds struct {
	Tier5Min *int `json:"tier_5_min,omitempty"`
	Tier4Min *int `json:"tier_4_min,omitempty"`
	Tier3Min *int `json:"tier_3_min,omitempty"`
	Tier2Min *int `json:"tier_2_min,omitempty"`
}

// Outputs configures how the computed tier is exposed downstream.
type Outputs struct {
	LeadTierValues map[string]string `json:"lead_tier_values,omitempty"`
	LeadTierParam  string            `json:"lead_tier_param,omitempty"`
}

// RoutingEntry describes the booking experience for one tier.
// Type is "redirect" or "embed".
type RoutingEntry struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Headline string `json:"headline,omitempty"`
}

// ScoringConfig is the remotely fetched, immutable scoring rubric.
type ScoringConfig struct {
	Version    string                  `json:"version"`
	Questions  []Question              `json:"questions"`
	Rules      Rules                   `json:"rules"`
	Thresholds Thresholds              `json:"thresholds"`
	Outputs    Outputs                 `json:"outputs"`
	Routing    map[string]RoutingEntry `json:"routing,omitempty"`
	TTLMillis  int64                   `json:"ttl_ms"`
}

// ParseScoringConfig decodes a rubric JSON document.
func ParseScoringConfig(data []byte) (*ScoringConfig, error) {
	var cfg ScoringConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AnswerSet maps question id -> submitted answer key. A nil entry means the
// question was present on the form but unanswered.
type AnswerSet map[string]*string

// Answer is a convenience constructor for a non-null AnswerSet entry.
func Answer(key string) *string {
	return &key
}
