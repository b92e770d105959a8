package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// statCmd represents the stat command
var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Print a channel's summary statistics",
	Long: `Print a channel's summary statistics as JSON.

The statistics come from the channel header alone, so stat is safe to run
while producers and consumers are attached.

Example:
  ringctl stat sensors`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := attachChannel(args[0])
		if err != nil {
			return err
		}
		defer r.Detach()

		out, err := json.MarshalIndent(r.Stats(), "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
