package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vault-cli/exploit"
	"vault-cli/scenario"
	"vault-cli/storage"
)

// programRef names a configured program id.
type programRef struct {
	key string
	id  func(scenario.Programs) solana.PublicKey
}

var (
	level0Program   = programRef{"level0_program_id", func(p scenario.Programs) solana.PublicKey { return p.Level0 }}
	level1Program   = programRef{"level1_program_id", func(p scenario.Programs) solana.PublicKey { return p.Level1 }}
	level2Program   = programRef{"level2_program_id", func(p scenario.Programs) solana.PublicKey { return p.Level2 }}
	level3Program   = programRef{"level3_program_id", func(p scenario.Programs) solana.PublicKey { return p.Level3 }}
	attackerProgram = programRef{"attacker_program_id", func(p scenario.Programs) solana.PublicKey { return p.Attacker }}
)

type level struct {
	name     string
	summary  string
	requires []programRef
	run      func(*scenario.Runner, context.Context) (*scenario.Report, error)
}

var setupLevels = []level{
	{
		name:     "level0",
		requires: []programRef{level0Program},
		run:      (*scenario.Runner).SetupLevel0,
		summary:  "Open a wallet-v0 wallet, deposit 42 SOL and withdraw 1 SOL",
	},
	{
		name:     "level2",
		requires: []programRef{level2Program},
		run:      (*scenario.Runner).SetupLevel2,
		summary:  "Open a wallet-v2 wallet and deposit 42 SOL",
	},
	{
		name:     "level3",
		requires: []programRef{level3Program},
		run:      (*scenario.Runner).SetupLevel3,
		summary:  "Initialize the tip vault, create a pool and tip 42 SOL",
	},
}

var exploitLevels = []level{
	{
		name:     "level0",
		requires: []programRef{level0Program, attackerProgram},
		run:      (*scenario.Runner).ExploitLevel0,
		summary:  "Withdraw the wallet-v0 vault through a forged wallet",
	},
	{
		name:     "level1",
		requires: []programRef{level1Program},
		run:      (*scenario.Runner).ExploitLevel1,
		summary:  "Withdraw a wallet-v1 wallet without the authority's signature",
	},
	{
		name:     "level2",
		requires: []programRef{level2Program},
		run:      (*scenario.Runner).ExploitLevel2,
		summary:  "Drain a wallet-v2 wallet with wrapped withdraw amounts",
	},
	{
		name:     "level3",
		requires: []programRef{level3Program},
		run:      (*scenario.Runner).ExploitLevel3,
		summary:  "Drain the tip vault through a vault read as a pool",
	},
}

func (c *cli) setupCmd() *cobra.Command {
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Fund the victim accounts of a level",
	}
	for _, l := range setupLevels {
		l := l
		setupCmd.AddCommand(&cobra.Command{
			Use:   l.name,
			Short: l.summary,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := c.runner(l, nil, exploit.RoleAuthority, exploit.RoleRich)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), promptStyle.Render(fmt.Sprintf("Setting up %s... Please wait.", l.name)))
				report, err := l.run(runner, cmd.Context())
				if err != nil {
					return fmt.Errorf("❌ setup %s failed: %w", l.name, err)
				}
				printReport(cmd.OutOrStdout(), report, false)
				return nil
			},
		})
	}
	return setupCmd
}

func (c *cli) exploitCmd() *cobra.Command {
	var (
		yes    bool
		victim string
	)

	exploitCmd := &cobra.Command{
		Use:   "exploit",
		Short: "Run the exploit of a level",
	}
	exploitCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	exploitCmd.PersistentFlags().StringVar(&victim, "victim", "", "victim authority (defaults to the \"authority\" key)")

	for _, l := range exploitLevels {
		l := l
		exploitCmd.AddCommand(&cobra.Command{
			Use:   l.name,
			Short: l.summary,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var victimKey *solana.PublicKey
				if victim != "" {
					pk, err := solana.PublicKeyFromBase58(victim)
					if err != nil {
						return fmt.Errorf("invalid victim %q: %w", victim, err)
					}
					victimKey = &pk
				}

				runner, err := c.runner(l, victimKey, exploit.RoleAttacker)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				printBanner(cmd)
				fmt.Fprintln(out, promptStyle.Render(l.summary+"."))

				if !yes {
					confirm := false
					prompt := &survey.Confirm{
						Message: fmt.Sprintf("Run the %s exploit against %s?", l.name, c.config.RPCEndpoints),
						Default: false,
					}
					if err := survey.AskOne(prompt, &confirm); err != nil {
						return err
					}
					if !confirm {
						fmt.Fprintln(out, promptStyle.Render("\nExploit cancelled."))
						return nil
					}
				}

				report, err := l.run(runner, cmd.Context())
				if err != nil {
					return fmt.Errorf("❌ exploit %s failed: %w", l.name, err)
				}
				printReport(out, report, true)
				return nil
			},
		})
	}
	return exploitCmd
}

// runner builds a scenario runner for l. The keys of roles are created when
// missing. The authority key is always loaded when present, as the default
// victim.
func (c *cli) runner(l level, victim *solana.PublicKey, roles ...exploit.Role) (*scenario.Runner, error) {
	programs, err := c.config.Programs()
	if err != nil {
		return nil, err
	}
	for _, ref := range l.requires {
		if err := requireProgram(ref.key, ref.id(programs)); err != nil {
			return nil, err
		}
	}

	ks, err := c.keystore()
	if err != nil {
		return nil, err
	}
	defer ks.Close()

	keys, err := loadRoles(ks, roles...)
	if err != nil {
		return nil, err
	}

	client, err := c.client()
	if err != nil {
		return nil, err
	}

	params := scenario.Params{Programs: programs, Keys: keys}
	if victim != nil {
		params.Victim = *victim
	}
	return scenario.NewRunner(client, params, c.logger), nil
}

func loadRoles(ks *storage.Keystore, roles ...exploit.Role) (map[exploit.Role]solana.PrivateKey, error) {
	keys := make(map[exploit.Role]solana.PrivateKey)
	for _, role := range roles {
		key, _, err := ks.GetOrCreate(string(role))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s key: %w", role, err)
		}
		keys[role] = key
	}

	if _, ok := keys[exploit.RoleAuthority]; !ok {
		key, err := ks.Get(string(exploit.RoleAuthority))
		switch {
		case err == nil:
			keys[exploit.RoleAuthority] = key
		case !errors.Is(err, storage.ErrKeyNotFound):
			return nil, err
		}
	}
	return keys, nil
}

func printReport(out io.Writer, report *scenario.Report, exploitRun bool) {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("✅ %s complete", report.Level)))

	names := make([]string, 0, len(report.Accounts))
	for name := range report.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(out, field(name, report.Accounts[name].String()))
	}

	fmt.Fprintln(out, field("transactions", fmt.Sprintf("%d", len(report.Signatures))))
	if n := len(report.Signatures); n > 0 {
		fmt.Fprintln(out, field("last signature", report.Signatures[n-1].String()))
	}

	if !exploitRun {
		return
	}
	fmt.Fprintln(out, field("target", report.Target.String()))
	fmt.Fprintln(out, field("target balance", formatSOL(report.Amount)))
	fmt.Fprintln(out, field("balance before", formatSOL(report.BalanceBefore)))
	fmt.Fprintln(out, field("balance after", formatSOL(report.BalanceAfter)))
	if report.BalanceAfter > report.BalanceBefore {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("💰 Gained %s", formatSOL(report.BalanceAfter-report.BalanceBefore))))
	} else {
		fmt.Fprintln(out, warningStyle.Render("Attacker balance did not grow."))
	}
}

func formatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d SOL", lamports/solana.LAMPORTS_PER_SOL, lamports%solana.LAMPORTS_PER_SOL)
}
