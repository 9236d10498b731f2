package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/rail-scheduler/internal/operator"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/secrets"
)

var (
	cardNumberRe = regexp.MustCompile(`^\d{15,16}$`)
	cardPassRe   = regexp.MustCompile(`^\d{2}$`)
	cardExpireRe = regexp.MustCompile(`^\d{2}(0[1-9]|1[0-2])$`)
	birthdayRe   = regexp.MustCompile(`^\d{6}$|^\d{10}$`)
)

// validateCard checks the formats the payment endpoints accept.
func validateCard(c rail.Card) error {
	switch {
	case !cardNumberRe.MatchString(c.Number):
		return fmt.Errorf("card number must be 15 or 16 digits")
	case !cardPassRe.MatchString(c.Password):
		return fmt.Errorf("card password must be its first two digits")
	case !birthdayRe.MatchString(c.Birthday):
		return fmt.Errorf("birthday must be YYMMDD, or a 10 digit business number")
	case !cardExpireRe.MatchString(c.Expire):
		return fmt.Errorf("expiry must be YYMM")
	}
	return nil
}

func newCardCmd(a *app) *cobra.Command {
	var forget bool
	c := &cobra.Command{
		Use:   "card",
		Short: "Store the payment card used for auto-pay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.secrets(ctx)
			if err != nil {
				return err
			}
			if forget {
				return secrets.Forget(ctx, store, secrets.ServiceCard, secrets.CardFields...)
			}

			number, err := operator.ReadPassword("card number (digits only): ")
			if err != nil {
				return err
			}
			pass, err := operator.ReadPassword("first two digits of the card password: ")
			if err != nil {
				return err
			}
			birthday, err := operator.ReadLine("birthday YYMMDD (business number for corporate cards)", "")
			if err != nil {
				return err
			}
			expire, err := operator.ReadLine("expiry YYMM", "")
			if err != nil {
				return err
			}
			card := rail.Card{
				Number:   strings.ReplaceAll(strings.TrimSpace(number), "-", ""),
				Password: strings.TrimSpace(pass),
				Birthday: birthday,
				Expire:   expire,
			}
			if err := validateCard(card); err != nil {
				return err
			}
			if err := secrets.SetCard(ctx, store, card); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "card saved")
			return nil
		},
	}
	c.Flags().BoolVar(&forget, "forget", false, "delete the stored card")
	return c
}
