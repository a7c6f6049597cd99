package cmd

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vault-cli/storage"
)

func (c *cli) keysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the named key pairs in the keystore",
		Long: `Manage the named key pairs in the keystore. The setup and exploit commands
use the "authority", "rich" and "attacker" keys and create them when missing.`,
	}
	keysCmd.AddCommand(c.keysNewCmd(), c.keysListCmd(), c.keysImportCmd())
	return keysCmd
}

func (c *cli) keysNewCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Generate a new key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := c.keystore()
			if err != nil {
				return err
			}
			defer ks.Close()

			name := args[0]
			if !force {
				if _, err := ks.Get(name); err == nil {
					return fmt.Errorf("key %q already exists, use --force to replace it", name)
				} else if !errors.Is(err, storage.ErrKeyNotFound) {
					return err
				}
			}

			key := solana.NewWallet().PrivateKey
			if err := ks.Save(name, key); err != nil {
				return fmt.Errorf("failed to save key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Key %q created", name)))
			fmt.Fprintln(out, field("Address", key.PublicKey().String()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key of the same name")
	return cmd
}

func (c *cli) keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := c.keystore()
			if err != nil {
				return err
			}
			defer ks.Close()

			names, err := ks.Names()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("No keys in %s", ks.Path())))
				return nil
			}
			for _, name := range names {
				key, err := ks.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, field(name, key.PublicKey().String()))
			}
			return nil
		},
	}
}

func (c *cli) keysImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <name> <keypair-file | key>",
		Short: "Import a key pair from a solana-keygen file or a base58 or JSON array string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(args[1])
			if err != nil {
				return err
			}

			ks, err := c.keystore()
			if err != nil {
				return err
			}
			defer ks.Close()

			if err := ks.Save(args[0], key); err != nil {
				return fmt.Errorf("failed to save key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Key %q imported", args[0])))
			fmt.Fprintln(out, field("Address", key.PublicKey().String()))
			return nil
		},
	}
}

// readKey treats source as a key pair file when one exists at that path.
func readKey(source string) (solana.PrivateKey, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return storage.LoadKeypairFile(source)
	}
	return storage.ParsePrivateKey(source)
}
