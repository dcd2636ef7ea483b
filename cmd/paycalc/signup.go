package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paycalc/internal/cli"
)

func signupCmd() *cobra.Command {
	var email, password, confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create a paycalc account. Email and password default to PAYCALC_EMAIL and
PAYCALC_PASSWORD; --confirm defaults to the password.`,
		RunE: withSession(cli.SessionOptions{Anonymous: true}, func(cmd *cobra.Command, _ []string, s *cli.Session) error {
			if useGoogle {
				if err := s.Tracker.SignInWithGoogle(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Signed in as "+s.Tracker.Snapshot().User.Email))
				return nil
			}
			if email == "" {
				email = appConfig.UserEmail
			}
			if password == "" {
				password = appConfig.UserPassword
			}
			if !cmd.Flags().Changed("confirm") {
				confirm = password
			}
			if err := s.Tracker.CreateAccount(cmd.Context(), email, password, confirm); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Account created for "+email))
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation")
	return cmd
}
