package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	vault_protocol "vault-cli/solana"
	"vault-cli/storage"
)

// cli carries what the subcommands share once the configuration is loaded.
type cli struct {
	v      *viper.Viper
	config *Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: newViper(), logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "vault-cli",
		Short: "vault-cli drives the vault exercise programs on a Solana cluster.",
		Long: `A command-line interface to derive program addresses, decode instructions,
set up the wallet and tip programs, and run the exploit for each level.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(c.v)
			if err != nil {
				return err
			}
			logger, err := config.Logger()
			if err != nil {
				return err
			}
			c.config = config
			c.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner(cmd)
			return cmd.Help()
		},
	}

	addConfigFlags(rootCmd.PersistentFlags())
	if err := bindFlags(c.v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		c.keysCmd(),
		c.deriveCmd(),
		c.decodeCmd(),
		c.setupCmd(),
		c.exploitCmd(),
	)
	return rootCmd
}

func printBanner(cmd *cobra.Command) {
	banner := figure.NewFigure("VAULT", "larry3d", true)
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(banner.String()))
}

func (c *cli) keystore() (*storage.Keystore, error) {
	ks, err := storage.Open(c.config.KeystorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	return ks, nil
}

func (c *cli) client() (*vault_protocol.Client, error) {
	cfg, err := c.config.ClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := vault_protocol.NewClient(cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solana client: %w", err)
	}
	return client, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
