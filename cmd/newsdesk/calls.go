package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/newsdesk/internal/desk"
)

func callsCmd() *cobra.Command {
	var (
		symbols string
		wait    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Refresh news once and print ranked trade calls as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := desk.ParseSymbols(symbols)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if a.feed != nil {
				go func() { _ = a.feed.Run(ctx) }()
			}

			// Prices trickle in while news is fetched; rank again once wait has passed.
			deadline := time.Now().Add(wait)
			calls, err := a.desk.Calls(ctx, syms)
			if err != nil {
				return err
			}
			if remaining := time.Until(deadline); remaining > 0 {
				select {
				case <-time.After(remaining):
				case <-ctx.Done():
					return ctx.Err()
				}
				if calls, err = a.desk.Calls(ctx, syms); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(calls)
		},
	}
	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "Comma separated symbols (default: tracked set)")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "How long to collect live prices before ranking")
	return cmd
}
