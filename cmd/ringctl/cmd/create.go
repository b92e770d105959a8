package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/ring"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new event channel",
	Long: `Create a new event channel file in the data directory.

Capacity is in 32-bit words. A wrapping channel overwrites its oldest records
when full; a non-wrapping one rejects producers until consumers drain it.

Examples:
  ringctl create sensors --capacity 65536
  ringctl create audit --capacity 1048576 --wrap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		capacity, _ := cmd.Flags().GetUint32("capacity")
		wrap, _ := cmd.Flags().GetBool("wrap")
		timeout, _ := cmd.Flags().GetFloat64("timeout")

		if capacity == 0 {
			capacity = cfg.Channel.CapacityWords
		}
		if !cmd.Flags().Changed("wrap") {
			wrap = cfg.Channel.Wrap
		}
		if !cmd.Flags().Changed("timeout") {
			timeout = cfg.Channel.TimeoutSeconds
		}

		opts := ring.Options{Capacity: capacity, Wrap: wrap, Timeout: timeout}
		if err := ring.Create(channelPath(name), opts); err != nil {
			return fmt.Errorf("failed to create channel %q: %w", name, err)
		}

		cmd.Printf("Created channel %q (%d words, wrap=%v) at %s\n", name, capacity, wrap, channelPath(name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().Uint32("capacity", 0, "Channel capacity in words (default from config)")
	createCmd.Flags().Bool("wrap", false, "Overwrite oldest records when full")
	createCmd.Flags().Float64("timeout", 0, "Enqueue retry bound in seconds")
}
