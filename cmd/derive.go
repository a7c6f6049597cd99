package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"vault-cli/codec"
	"vault-cli/pda"
)

func (c *cli) deriveCmd() *cobra.Command {
	var bump uint8

	cmd := &cobra.Command{
		Use:   "derive <program-id> [seed...]",
		Short: "Derive a program address",
		Long: `Derive a program address from a program id and seeds.

Seeds are UTF-8 text unless prefixed:
  key:<base58>   a public key
  hex:<bytes>    raw bytes
  u64:<integer>  a little-endian u64

With --bump the given bump is used instead of searching for the canonical one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			programID, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid program id %q: %w", args[0], err)
			}
			seeds, err := parseSeeds(args[1:])
			if err != nil {
				return err
			}

			var (
				address solana.PublicKey
				found   = bump
			)
			if cmd.Flags().Changed("bump") {
				address, err = pda.DeriveWithExplicitBump(programID, bump, seeds...)
			} else {
				address, found, err = pda.Derive(programID, seeds...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, field("Address", address.String()))
			fmt.Fprintln(out, field("Bump", fmt.Sprintf("%d", found)))
			return nil
		},
	}
	cmd.Flags().Uint8Var(&bump, "bump", 0, "use this bump instead of the canonical one")
	return cmd
}

func parseSeeds(args []string) ([][]byte, error) {
	seeds := make([][]byte, 0, len(args))
	for _, arg := range args {
		seed, err := parseSeed(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", arg, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func parseSeed(arg string) ([]byte, error) {
	prefix, value, ok := strings.Cut(arg, ":")
	if !ok {
		return []byte(arg), nil
	}

	switch prefix {
	case "key":
		key, err := solana.PublicKeyFromBase58(value)
		if err != nil {
			return nil, err
		}
		return key.Bytes(), nil
	case "hex":
		return hex.DecodeString(strings.TrimPrefix(value, "0x"))
	case "u64":
		v, err := codec.ParseAmount(value)
		if err != nil {
			return nil, err
		}
		return codec.EncodeU64(v), nil
	default:
		return []byte(arg), nil
	}
}
