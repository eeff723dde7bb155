package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/VoiceDesk/runtime/statestore"
	"github.com/AltairaLabs/VoiceDesk/tools/voicedesk/render"
)

const defaultHistoryLimit = 20

// NewHistoryCmd lists, shows and deletes finished sessions.
func NewHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions",
		Long: `List finished sessions, newest first. Sessions are kept in memory for
the life of the process unless history.backend is redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, store statestore.Store) error {
				records, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, records)
				}
				return render.History(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum number of sessions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Print one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, store statestore.Store) error {
				rec, err := store.Load(ctx, args[0])
				if err != nil {
					return fmt.Errorf("session %s: %w", args[0], err)
				}
				return writeJSON(cmd, rec)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Remove one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, store statestore.Store) error {
				if err := store.Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("session %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

func withHistory(cmd *cobra.Command, opts *globalOptions, fn func(context.Context, statestore.Store) error) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(cmd.Context()))
	return fn(cmd.Context(), a.history)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
