package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"paycalc/internal/amqp"
	"paycalc/internal/cli"
	"paycalc/internal/services"
	"paycalc/internal/worker"
)

func watchCmd() *cobra.Command {
	var export bool
	var concurrency int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow state changes published by other paycalc processes",
		Long: `Consume state change messages from the AMQP queue and print them.
With --export every change also rewrites the affected pay period tabs in
Google Sheets. Requires AMQP_URL. Stop with Ctrl-C.`,
		RunE: withSession(cli.SessionOptions{Anonymous: true}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			events := s.Backend.Events
			if events == nil {
				return errors.New("AMQP is not configured: set AMQP_URL")
			}

			var w *worker.ExportWorker
			if export {
				if s.Backend.Exporter == nil {
					return errExportDisabled
				}
				periods := services.NewPeriodRepository(s.Backend.Store, appLogger)
				w = worker.NewExportWorker(periods, s.Backend.Exporter, appLogger).WithConcurrency(concurrency)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.SubtleStyle.Render("Waiting for state changes. Press Ctrl-C to stop."))

			err := events.Consume(cmd.Context(), func(ctx context.Context, msg *amqp.StateChangeMessage) error {
				fmt.Fprintf(out, "%s  %-24s period=%s entity=%s\n",
					msg.Timestamp.Local().Format(time.DateTime), msg.Kind, orDash(msg.PeriodID), orDash(msg.EntityID))
				if w == nil {
					return nil
				}
				return w.HandleStateChange(ctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}

	cmd.Flags().BoolVar(&export, "export", false, "re-export affected periods to Google Sheets")
	cmd.Flags().IntVar(&concurrency, "concurrency", worker.DefaultConcurrency, "periods exported in parallel")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
