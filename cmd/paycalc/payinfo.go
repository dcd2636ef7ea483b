package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
	"paycalc/internal/core"
)

func payinfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payinfo",
		Short: "Manage your pay schedule",
	}
	cmd.AddCommand(payinfoSetCmd())
	cmd.AddCommand(payinfoShowCmd())
	return cmd
}

func payinfoSetCmd() *cobra.Command {
	var amount, frequency, start string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set take-home pay, pay frequency and first pay date",
		Long: `Set the pay schedule. The first pay date anchors every pay period and cannot
change once periods exist. Flags left out keep their saved value.`,
		Example: "  paycalc payinfo set --amount 2400 --frequency bi-weekly --start 2024-01-01",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			var info core.PayInfo
			if cur := s.Tracker.Snapshot().PayInfo; cur != nil {
				info = *cur
			}

			if cmd.Flags().Changed("amount") {
				d, err := core.ParseAmount(amount)
				if err != nil {
					return fmt.Errorf("--amount %q: %w", amount, err)
				}
				info.TakeHomePay = d
			}
			if cmd.Flags().Changed("frequency") || info.PayFrequency == "" {
				info.PayFrequency = core.PayFrequency(frequency)
			}
			if cmd.Flags().Changed("start") || info.StartDate.IsEmpty() {
				d, err := parseDateFlag("start", start)
				if err != nil {
					return err
				}
				info.StartDate = d
			}

			saved, err := s.Tracker.SavePayInfo(cmd.Context(), info)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.SuccessStyle.Render("Pay info saved"))
			cli.PrintPayInfo(out, saved)
			fmt.Fprintf(out, "Current period: %s\n", s.Tracker.CurrentPeriodLabel())
			return nil
		}),
	}

	cmd.Flags().StringVar(&amount, "amount", "", "take-home pay per paycheck")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.PayBiWeekly), "weekly, bi-weekly, semi-monthly or monthly")
	cmd.Flags().StringVar(&start, "start", "", "first pay date (YYYY-MM-DD)")
	return cmd
}

func payinfoShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the pay schedule and the current period",
		RunE: withSession(cli.SessionOptions{}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			info, err := s.Tracker.LoadPayInfo(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cli.PrintPayInfo(out, info)
			fmt.Fprintf(out, "Current period: %s\n", s.Tracker.CurrentPeriodLabel())
			return nil
		}),
	}
}
