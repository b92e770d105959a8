package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/config"
	"github.com/ssargent/eventring/pkg/ring"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ringctl",
	Short: "ringctl - shared-memory event channel tooling",
	Long: `ringctl manages memory-mapped event channels: fixed-capacity circular
word buffers shared between producer and consumer processes.

Channels live as files under the data directory and are addressed by name.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		explicit := configPath != ""
		if !explicit {
			configPath = config.GetDefaultConfigPath()
		}

		if explicit || config.ConfigExists(configPath) {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}

		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			cfg.DataDir = dataDir
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		level, err := zerolog.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.config/eventring/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for channel files (overrides config)")
}

// channelPath maps a channel name to its file in the data directory.
func channelPath(name string) string {
	return filepath.Join(cfg.DataDir, name+".r")
}

// attachChannel attaches to a named channel, applying the configured guard
// spin limit.
func attachChannel(name string) (*ring.Ring, error) {
	r, err := ring.Attach(channelPath(name), ring.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to attach channel %q: %w", name, err)
	}
	if cfg.Channel.LockSpinLimit > 0 {
		r.SetSpinLimit(cfg.Channel.LockSpinLimit)
	}
	r.OnForcedUnlock(func(path string) {
		log.Warn().Str("channel", path).Msg("guard holder assumed dead, lock forced")
	})
	return r, nil
}
