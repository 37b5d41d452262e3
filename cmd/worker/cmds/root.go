package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pandodao/generic"
	"github.com/pandodao/safe-pay/core"
	"github.com/spf13/cobra"
)

type Cmd struct {
	Deriver  core.AddressDeriver
	Payments core.PaymentService
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	root := &cobra.Command{
		Use:          "safe-pay",
		Short:        "safe-pay operator commands",
		SilenceUsage: true,
	}

	root.AddCommand(c.addressesCmd())
	root.AddCommand(c.paymentCmd())
	root.AddCommand(c.confirmCmd())

	root.SetArgs(args)
	root.SetOut(os.Stdout)

	return root.ExecuteContext(ctx)
}

func (c *Cmd) addressesCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "addresses <user> <start> <end>",
		Short: "recompute issued receiving addresses of a user",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}

			end, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("end: %w", err)
			}

			addresses, err := c.Deriver.Range(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}

			if plain {
				for _, addr := range generic.MapSlice(addresses, addressOf) {
					fmt.Fprintln(cmd.OutOrStdout(), addr)
				}

				return nil
			}

			return jsonPrint(cmd, addresses)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print one address per line")
	return cmd
}

func (c *Cmd) paymentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payment <reference>",
		Short: "show a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payment, err := c.Payments.Find(cmd.Context(), args[0])
			if payment == nil {
				return err
			}

			return jsonPrint(cmd, payment)
		},
	}
}

func (c *Cmd) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <reference> <signature>",
		Short: "confirm a payment by a known transaction signature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payment, err := c.Payments.Confirm(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			return jsonPrint(cmd, payment)
		},
	}
}

func addressOf(addr *core.DerivedAddress) string {
	return addr.Address
}

func jsonPrint(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
