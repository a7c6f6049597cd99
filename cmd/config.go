package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vault-cli/scenario"
	vault_protocol "vault-cli/solana"
	"vault-cli/storage"
)

// Config is the CLI configuration, read from the environment (optionally
// through a .env file) and overridden by flags.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// RPCEndpoints is a comma separated list of endpoints of one cluster.
	RPCEndpoints   string        `mapstructure:"rpc_endpoints"`
	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`

	KeystorePath string `mapstructure:"keystore_path"`

	Level0ProgramID   string `mapstructure:"level0_program_id"`
	Level1ProgramID   string `mapstructure:"level1_program_id"`
	Level2ProgramID   string `mapstructure:"level2_program_id"`
	Level3ProgramID   string `mapstructure:"level3_program_id"`
	AttackerProgramID string `mapstructure:"attacker_program_id"`
}

var defaultConfig = Config{
	LogLevel: "info",

	RPCEndpoints:   vault_protocol.DefaultEndpoint,
	Commitment:     "confirmed",
	ConfirmTimeout: vault_protocol.DefaultConfirmTimeout,

	KeystorePath: storage.DefaultPath,
}

func newViper() *viper.Viper {
	v := viper.New()

	_ = v.BindEnv("log_level", "LOG_LEVEL")

	_ = v.BindEnv("rpc_endpoints", "RPC_ENDPOINTS")
	_ = v.BindEnv("commitment", "COMMITMENT")
	_ = v.BindEnv("confirm_timeout", "CONFIRM_TIMEOUT")

	_ = v.BindEnv("keystore_path", "KEYSTORE_PATH")

	_ = v.BindEnv("level0_program_id", "LEVEL0_PROGRAM_ID")
	_ = v.BindEnv("level1_program_id", "LEVEL1_PROGRAM_ID")
	_ = v.BindEnv("level2_program_id", "LEVEL2_PROGRAM_ID")
	_ = v.BindEnv("level3_program_id", "LEVEL3_PROGRAM_ID")
	_ = v.BindEnv("attacker_program_id", "ATTACKER_PROGRAM_ID")

	// defaults sit below env and changed flags, and above the zero value of
	// an unchanged flag
	v.SetDefault("log_level", defaultConfig.LogLevel)
	v.SetDefault("rpc_endpoints", defaultConfig.RPCEndpoints)
	v.SetDefault("commitment", defaultConfig.Commitment)
	v.SetDefault("confirm_timeout", defaultConfig.ConfirmTimeout)
	v.SetDefault("keystore_path", defaultConfig.KeystorePath)

	return v
}

func addConfigFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "comma separated RPC endpoints (env RPC_ENDPOINTS)")
	flags.String("commitment", "", "processed, confirmed or finalized (env COMMITMENT)")
	flags.Duration("confirm-timeout", 0, "how long to wait for a transaction to confirm (env CONFIRM_TIMEOUT)")
	flags.String("keystore", "", "path of the keystore file (env KEYSTORE_PATH)")
	flags.String("log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
}

// bindFlags lets the persistent flags override the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"rpc_endpoints":   "rpc",
		"commitment":      "commitment",
		"confirm_timeout": "confirm-timeout",
		"keystore_path":   "keystore",
		"log_level":       "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// Endpoints splits RPCEndpoints into its non-empty entries.
func (c *Config) Endpoints() []string {
	var endpoints []string
	for _, e := range strings.Split(c.RPCEndpoints, ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints
}

func (c *Config) ClientConfig() (vault_protocol.Config, error) {
	commitment, err := vault_protocol.ParseCommitment(c.Commitment)
	if err != nil {
		return vault_protocol.Config{}, err
	}
	return vault_protocol.Config{
		Endpoints:      c.Endpoints(),
		Commitment:     commitment,
		ConfirmTimeout: c.ConfirmTimeout,
	}, nil
}

// Programs parses every configured program id. Ids that are not set stay
// zero; use requireProgram before relying on one.
func (c *Config) Programs() (scenario.Programs, error) {
	var programs scenario.Programs
	for _, p := range []struct {
		key   string
		value string
		dst   *solana.PublicKey
	}{
		{"level0_program_id", c.Level0ProgramID, &programs.Level0},
		{"level1_program_id", c.Level1ProgramID, &programs.Level1},
		{"level2_program_id", c.Level2ProgramID, &programs.Level2},
		{"level3_program_id", c.Level3ProgramID, &programs.Level3},
		{"attacker_program_id", c.AttackerProgramID, &programs.Attacker},
	} {
		if p.value == "" {
			continue
		}
		id, err := solana.PublicKeyFromBase58(strings.TrimSpace(p.value))
		if err != nil {
			return scenario.Programs{}, fmt.Errorf("invalid %s %q: %w", p.key, p.value, err)
		}
		*p.dst = id
	}
	return programs, nil
}

func requireProgram(key string, id solana.PublicKey) error {
	if id.IsZero() {
		return fmt.Errorf("%s is not set (env %s)", key, strings.ToUpper(key))
	}
	return nil
}

func (c *Config) Logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
