package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadrouter/internal/model"
	"github.com/sells-group/leadrouter/internal/rubric"
)

var rubricFile string

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect and validate the scoring rubric",
}

var rubricFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the remote rubric and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		scoringCfg, err := e.Fetcher.Get(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(scoringCfg, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal rubric")
		}
		fmt.Println(string(out))
		return nil
	},
}

var rubricValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a rubric document against the schema and threshold ordering",
	Long:  "Validates a rubric from --file or, when no file is given, the configured remote endpoint. Threshold monotonicity is always enforced here, independent of rubric.strict_thresholds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error

		if rubricFile != "" {
			raw, err = os.ReadFile(rubricFile)
			if err != nil {
				return eris.Wrap(err, "read rubric file")
			}
		} else {
			e, err := initEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			scoringCfg, err := e.Fetcher.Get(cmd.Context())
			if err != nil {
				return err
			}
			raw, err = json.Marshal(scoringCfg)
			if err != nil {
				return eris.Wrap(err, "marshal rubric")
			}
		}

		if err := rubric.ValidateSchema(raw); err != nil {
			return err
		}

		scoringCfg, err := model.ParseScoringConfig(raw)
		if err != nil {
			return eris.Wrap(err, "parse rubric")
		}
		if err := rubric.ValidateThresholds(scoringCfg); err != nil {
			return err
		}

		fmt.Printf("rubric %s: valid (%d questions, %d rules)\n",
			scoringCfg.Version,
			len(scoringCfg.Questions),
			len(scoringCfg.Rules.ConditionalScoring),
		)
		return nil
	},
}

func init() {
	rubricValidateCmd.Flags().StringVar(&rubricFile, "file", "", "local rubric JSON file (default: fetch remote)")
	rubricCmd.AddCommand(rubricFetchCmd)
	rubricCmd.AddCommand(rubricValidateCmd)
	rootCmd.AddCommand(rubricCmd)
}
