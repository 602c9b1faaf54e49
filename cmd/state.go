package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadrouter/internal/model"
)

var stateSession string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and purge a session's stored records",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the session's identity, attribution, and UTM records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if stateSession == "" {
			return eris.New("--session is required")
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		sess := e.Sessions.Get(stateSession)
		out := map[string]any{
			"session":     stateSession,
			"identity":    sess.Identity.Get(cmd.Context()),
			"attribution": sess.Attribution.ReadMerged(cmd.Context()),
			"utm":         sess.Attribution.StoredUTM(cmd.Context()),
		}

		raw, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal state")
		}
		fmt.Println(string(raw))
		return nil
	},
}

var statePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete the session's stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if stateSession == "" {
			return eris.New("--session is required")
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ns := "sess:" + stateSession
		keys := []string{ns + ":identity", ns + ":attribution"}
		for _, k := range model.UTMKeys {
			keys = append(keys, ns+":utm_session:"+k, ns+":utm_cookie:"+k)
		}

		for _, key := range keys {
			if err := e.Store.Delete(cmd.Context(), key); err != nil {
				return err
			}
		}

		fmt.Printf("purged %d keys for session %s\n", len(keys), stateSession)
		return nil
	},
}

func init() {
	stateCmd.PersistentFlags().StringVar(&stateSession, "session", "", "session id")
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(statePurgeCmd)
	rootCmd.AddCommand(stateCmd)
}
