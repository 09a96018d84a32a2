// hubsync - local hub sync agent for restaurant staff devices.
//
// The agent pairs a waiter or kitchen device with the restaurant hub from a
// scanned QR code, keeps the session alive across network drops and relays
// orders between the local UI and the hub. When the hub is unreachable,
// orders can be handed to the cloud broker instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/menuhub/hubsync/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/hubsync.yaml"
	configEnvVar      = "HUBSYNC_CONFIG"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Running it without a subcommand starts
// the agent.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	runOpts := &runOptions{}

	cmd := &cobra.Command{
		Use:           "hubsync",
		Short:         "Local hub sync agent for restaurant staff devices",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd.Context(), opts, runOpts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default "+defaultConfigPath+", or $"+configEnvVar+")")
	addRunFlags(cmd, runOpts)

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newDecodeCommand())
	cmd.AddCommand(newDeviceCommand(opts))

	return cmd
}

// resolveConfigPath prefers the flag, then the environment, then the
// default path.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	path := o.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
