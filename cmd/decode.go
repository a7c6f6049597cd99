package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vault-cli/programs"
	"vault-cli/programs/tip"
	"vault-cli/programs/walletv0"
)

func (c *cli) decodeCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "decode <program> <hex>",
		Short: "Decode an instruction payload or account data",
		Long: `Decode a hex instruction payload of one of the programs: wallet-v0, wallet-v1,
wallet-v2, tip or attacker.

With --account the hex is read as account data instead: "wallet" for a
wallet-v0 wallet, "vault" or "pool" for the tip program.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[1]), "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}

			kind, err := programs.ParseKind(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if account != "" {
				return decodeAccount(out, kind, account, data)
			}

			view, err := programs.Decode(kind, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, view.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "decode account data: wallet, vault or pool")
	return cmd
}

func decodeAccount(out io.Writer, kind programs.Kind, account string, data []byte) error {
	switch {
	case kind == programs.WalletV0 && account == "wallet":
		authority, vault, err := walletv0.DecodeWalletData(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, field("Authority", authority.String()))
		fmt.Fprintln(out, field("Vault", vault.String()))
	case kind == programs.Tip && account == "vault":
		v, err := tip.DecodeVault(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, field("Creator", v.Creator.String()))
		fmt.Fprintln(out, field("Fee", fmt.Sprintf("%g", v.Fee)))
		fmt.Fprintln(out, field("Fee recipient", v.FeeRecipient.String()))
		fmt.Fprintln(out, field("Seed", fmt.Sprintf("%d", v.Seed)))
	case kind == programs.Tip && account == "pool":
		p, err := tip.DecodePool(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, field("Withdraw authority", p.WithdrawAuthority.String()))
		fmt.Fprintln(out, field("Value", fmt.Sprintf("%d", p.Value)))
		fmt.Fprintln(out, field("Vault", p.Vault.String()))
	default:
		return fmt.Errorf("%s has no %q account layout", kind, account)
	}
	return nil
}
