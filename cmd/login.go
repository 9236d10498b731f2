package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/operator"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/secrets"
)

func providerArg(args []string) (rail.Provider, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("provider required (srt or ktx)")
	}
	return rail.ParseProvider(args[0])
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		id     string
		forget bool
	)
	c := &cobra.Command{
		Use:   "login <srt|ktx>",
		Short: "Check and store a login",
		Long: "Prompts for a membership number, email or phone number (010-1234-5678) and a password,\n" +
			"logs in once and stores the login only if it worked.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := providerArg(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := a.secrets(ctx)
			if err != nil {
				return err
			}
			if forget {
				return secrets.Forget(ctx, store, string(p), secrets.CredentialFields...)
			}

			if id == "" {
				prev, _ := store.Get(ctx, string(p), "id")
				id, err = operator.ReadLine(string(p)+" id", prev)
				if err != nil {
					return err
				}
			}
			pass, err := operator.ReadPassword(string(p) + " password: ")
			if err != nil {
				return err
			}
			creds := rail.Credentials{ID: id, Password: pass}
			if err := checkLogin(ctx, a, p, creds); err != nil {
				_ = secrets.SetCredentials(ctx, store, p, creds, false)
				return fmt.Errorf("login failed: %w", err)
			}
			if err := secrets.SetCredentials(ctx, store, p, creds, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s login saved\n", p)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "membership number, email or phone")
	c.Flags().BoolVar(&forget, "forget", false, "delete the stored login")
	return c
}

func checkLogin(ctx context.Context, a *app, p rail.Provider, creds rail.Credentials) error {
	auth, err := a.authenticator(p)
	if err != nil {
		return err
	}
	_, err = auth.Authenticate(ctx, creds)
	return err
}
