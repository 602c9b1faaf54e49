// Package scoring computes a lead score from submitted survey answers and a
// remotely configured rubric. Score is a pure function: no clock, no I/O,
// same inputs always produce the same score.
package scoring

import "github.com/sells-group/leadrouter/internal/model"

// resolve maps every configured question to its submitted answer key, absent
// answers resolving to nil.
func resolve(cfg *model.ScoringConfig, answers model.AnswerSet) map[string]*string {
	resolved := make(map[string]*string, len(cfg.Questions))
	for _, q := range cfg.Questions {
		resolved[q.ID] = answers[q.ID]
	}
	return resolved
}

// Suppressed returns the union of ignore_question_ids over all matching
// conditional rules. Rules are evaluated in declaration order against the
// already-resolved answers, so no rule sees another's suppression effect. A
// rule whose target question is unanswered never matches. When a rule sets
// both equals and not-equals conditions, a match on either suffices.
func Suppressed(cfg *model.ScoringConfig, answers model.AnswerSet) map[string]struct{} {
	resolved := resolve(cfg, answers)

	ignore := make(map[string]struct{})
	for _, r := range cfg.Rules.ConditionalScoring {
		actual := resolved[r.IfQuestionID]
		if actual == nil {
			continue
		}

		matchEq := r.IfAnswerEquals != nil && *actual == *r.IfAnswerEquals
		matchNe := r.IfAnswerNotEquals != nil && *actual != *r.IfAnswerNotEquals

		if matchEq || matchNe {
			for _, qid := range r.IgnoreQuestionIDs {
				ignore[qid] = struct{}{}
			}
		}
	}
	return ignore
}

// Score sums the configured points of every answered, non-suppressed,
// non-enrichment-only question. Unknown answer keys contribute 0.
func Score(cfg *model.ScoringConfig, answers model.AnswerSet) int {
	resolved := resolve(cfg, answers)
	ignore := Suppressed(cfg, answers)

	score := 0
	for _, q := range cfg.Questions {
		if _, skip := ignore[q.ID]; skip {
			continue
		}
		if q.EnrichmentOnly {
			continue
		}
		key := resolved[q.ID]
		if key == nil || *key == "" {
			continue
		}
		if pts, ok := q.Answers[*key]; ok {
			score += pts
		}
	}
	return score
}
