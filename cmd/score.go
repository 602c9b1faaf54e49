package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/session"
)

var (
	scoreAnswers     []string
	scoreAnswersFile string
	scoreQuery       string
	scoreFormat      string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an answer set and print the routing outcome",
	Long:  "Runs one submit through the scoring engine: fetches the rubric, computes score, tier, route, and destination. Answers come from repeated --answer flags or a JSON file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, err := collectAnswers()
		if err != nil {
			return err
		}
		if len(answers) == 0 {
			return eris.New("no answers given: use --answer or --answers-file")
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		sess := e.Sessions.Get(uuid.New().String())
		sink := session.NewMapSink()
		outcome, err := sess.Submit(cmd.Context(), session.Form{
			Answers:  answers,
			RawQuery: scoreQuery,
		}, sink)
		if err != nil {
			if status, ok := sink.Fields["scoring_error"]; ok {
				fmt.Fprintf(os.Stderr, "scoring failed: %s\n", status)
			}
			return err
		}

		if scoreFormat == "json" {
			out, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal outcome")
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("score:       %d\n", outcome.Score)
		fmt.Printf("tier:        %d\n", outcome.Tier)
		fmt.Printf("route:       %s\n", outcome.Route)
		fmt.Printf("version:     %s\n", outcome.Version)
		fmt.Printf("destination: %s\n", outcome.Destination)
		return nil
	},
}

// collectAnswers merges --answers-file content with --answer flags, flags
// winning on conflict.
func collectAnswers() (model.AnswerSet, error) {
	answers := model.AnswerSet{}

	if scoreAnswersFile != "" {
		raw, err := os.ReadFile(scoreAnswersFile)
		if err != nil {
			return nil, eris.Wrap(err, "read answers file")
		}
		var fromFile map[string]string
		if err := json.Unmarshal(raw, &fromFile); err != nil {
			return nil, eris.Wrap(err, "parse answers file")
		}
		for qid, key := range fromFile {
			answers[qid] = model.Answer(key)
		}
	}

	for _, pair := range scoreAnswers {
		qid, key, ok := strings.Cut(pair, "=")
		if !ok || qid == "" {
			return nil, eris.Errorf("invalid --answer %q: expected question_id=answer_key", pair)
		}
		if key == "" {
			answers[qid] = nil
			continue
		}
		answers[qid] = model.Answer(key)
	}

	return answers, nil
}

func init() {
	scoreCmd.Flags().StringArrayVar(&scoreAnswers, "answer", nil, "answer as question_id=answer_key (repeatable)")
	scoreCmd.Flags().StringVar(&scoreAnswersFile, "answers-file", "", "JSON file mapping question_id to answer_key")
	scoreCmd.Flags().StringVar(&scoreQuery, "query", "", "query string of the submitting page, for attribution capture")
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "text", "output format: text or json")
	rootCmd.AddCommand(scoreCmd)
}
