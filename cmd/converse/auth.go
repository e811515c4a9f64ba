package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	registerAge  int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		email, err := resolveEmail(authEmail, cfg.Auth.Email)
		if err != nil {
			return err
		}
		if err := chat.Auth().Login(ctx, email, authPassword); err != nil {
			return err
		}
		fmt.Println("logged in")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		email, err := resolveEmail(authEmail, cfg.Auth.Email)
		if err != nil {
			return err
		}
		if err := chat.Auth().Register(ctx, email, authPassword, registerAge); err != nil {
			return err
		}
		fmt.Println("account created, you can now log in")
		return nil
	},
}

// resolveEmail prefers the command-line flag over the configured
// auth.email default
func resolveEmail(flagValue, configured string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("email required: pass --email or set auth.email in the config")
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard local session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if err := chat.Session().Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email (defaults to auth.email from config)")
	loginCmd.Flags().StringVarP(&authPassword, "password", "p", "", "account password")
	loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email (defaults to auth.email from config)")
	registerCmd.Flags().StringVarP(&authPassword, "password", "p", "", "account password")
	registerCmd.Flags().IntVar(&registerAge, "age", 0, "account holder age")
	registerCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}
