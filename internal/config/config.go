// Package config parses Uplink's command-line configuration: mode,
// address, shared passphrase, and capability flags.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time defaults, injectable via ldflags in the style of
// internal/sysinfo.Version. Left unset, the env var and flag defaults
// below apply instead.
var (
	DefaultPassphrase = ""
	DefaultNoExec     = "false"
	DefaultNoTransfer = "false"
	DefaultNoEnvelope = "false"
)

// Mode selects which side of the connection this process plays.
type Mode string

const (
	ModeServer Mode = "server"
	ModeClient Mode = "client"
)

// Config is the fully resolved configuration for one run.
type Config struct {
	Mode       Mode
	Address    string
	Passphrase string
	NoExec     bool
	NoTransfer bool
	NoEnvelope bool
}

const defaultPassphrase = "default_passphrase"

// Parse builds a Config from args (excluding the program name),
// applying flag defaults, the PASSPHRASE environment variable, and any
// ldflag-injected build-time defaults. It returns a non-nil error for
// any configuration that should make the process exit nonzero:
// missing or invalid mode, or a missing address.
func Parse(args []string) (Config, error) {
	var cfg Config
	var noExec, noTransfer, noEnvelope bool

	cmd := &cobra.Command{
		Use:           "uplink <server|client> <address>",
		Short:         "Uplink - symmetric peer-to-peer remote command and file transfer",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := Mode(args[0])
			if mode != ModeServer && mode != ModeClient {
				return fmt.Errorf("invalid mode %q: must be %q or %q", args[0], ModeServer, ModeClient)
			}
			address := args[1]
			if address == "" {
				return fmt.Errorf("address must not be empty")
			}

			cfg = Config{
				Mode:       mode,
				Address:    address,
				Passphrase: resolvePassphrase(),
				NoExec:     noExec || boolDefault(DefaultNoExec),
				NoTransfer: noTransfer || boolDefault(DefaultNoTransfer),
				NoEnvelope: noEnvelope || boolDefault(DefaultNoEnvelope),
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noExec, "no-exec", false, "disable EXEC and related shell commands on this peer")
	cmd.Flags().BoolVar(&noTransfer, "no-transfer", false, "disable GET/PUT file transfer on this peer")
	cmd.Flags().BoolVar(&noEnvelope, "no-envelope", false, "disable the RSA/AES-GCM envelope layer, send commands under the passphrase frame encryption only")
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolvePassphrase applies the PASSPHRASE env var over the
// ldflag-injected build-time default over the hardcoded default, in
// that order of precedence.
func resolvePassphrase() string {
	if v := os.Getenv("PASSPHRASE"); v != "" {
		return v
	}
	if DefaultPassphrase != "" {
		return DefaultPassphrase
	}
	return defaultPassphrase
}

func boolDefault(s string) bool {
	return s == "true" || s == "1"
}
