package cmd

import (
	"github.com/spf13/cobra"
)

// repairCmd represents the repair command
var repairCmd = &cobra.Command{
	Use:   "repair <name>",
	Short: "Discard uncommitted reservations left by crashed processes",
	Long: `Collapse each head cursor back to its tail, discarding reservations
whose owner crashed before committing, and clear the guard if the owner died
holding it.

Run repair only when no other process has the channel open: it cannot tell a
crashed owner from a live one mid-operation.

Example:
  ringctl repair sensors`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := attachChannel(args[0])
		if err != nil {
			return err
		}
		defer r.Detach()

		if r.Repair() {
			cmd.Printf("Repaired channel %q: uncommitted reservations discarded\n", args[0])
		} else {
			cmd.Printf("Channel %q was clean\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
