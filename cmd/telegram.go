package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/notify"
	"github.com/example/rail-scheduler/internal/operator"
	"github.com/example/rail-scheduler/internal/secrets"
)

func newTelegramCmd(a *app) *cobra.Command {
	var forget bool
	c := &cobra.Command{
		Use:   "telegram",
		Short: "Configure the Telegram chat that receives notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.secrets(ctx)
			if err != nil {
				return err
			}
			if forget {
				return secrets.Forget(ctx, store, secrets.ServiceTelegram, secrets.TelegramFields...)
			}

			prevToken, _ := store.Get(ctx, secrets.ServiceTelegram, "token")
			prevChat, _ := store.Get(ctx, secrets.ServiceTelegram, "chat_id")
			token, err := operator.ReadLine("bot token", prevToken)
			if err != nil {
				return err
			}
			chatID, err := operator.ReadLine("chat id", prevChat)
			if err != nil {
				return err
			}
			if token == "" || chatID == "" {
				return errors.New("token and chat id are required")
			}

			tg := secrets.TelegramConfig{Token: token, ChatID: chatID}
			if err := notify.NewTelegram(token, chatID).Send(ctx, "[railsched] telegram configured"); err != nil {
				_ = secrets.SetTelegram(ctx, store, tg, false)
				return fmt.Errorf("test message failed: %w", err)
			}
			if err := secrets.SetTelegram(ctx, store, tg, true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "telegram saved")
			return nil
		},
	}
	c.Flags().BoolVar(&forget, "forget", false, "delete the stored chat settings")
	return c
}
