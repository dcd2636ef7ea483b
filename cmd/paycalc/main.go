package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
	"paycalc/internal/config"
	"paycalc/internal/log"
)

var (
	appConfig *config.Config
	appLogger *log.Logger

	useGoogle bool
	logLevel  string
	logFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paycalc",
		Short: "Project recurring expenses and bank accounts onto pay periods",
		Long: `paycalc keeps master lists of bank accounts and recurring expenses and
projects them onto pay periods derived from your pay schedule.

Each pay period holds its own copies, so marking an expense paid or moving it
between accounts in one period never touches the templates or other periods.

Sign-in uses PAYCALC_EMAIL and PAYCALC_PASSWORD, or --google.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initApp,
	}

	root.PersistentFlags().BoolVar(&useGoogle, "google", false, "sign in with Google instead of email and password")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")

	root.AddCommand(signupCmd())
	root.AddCommand(payinfoCmd())
	root.AddCommand(accountCmd())
	root.AddCommand(expenseCmd())
	root.AddCommand(periodCmd())
	root.AddCommand(watchCmd())
	return root
}

func initApp(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig(func(c *config.Config) {
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		if logFormat != "" {
			c.LogFormat = logFormat
		}
	})
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	appConfig, appLogger = cfg, logger
	return nil
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: "+describe(err)))
		os.Exit(1)
	}
}
