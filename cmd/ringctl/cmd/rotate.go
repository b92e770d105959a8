package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/archive"
)

// rotateCmd represents the rotate command
var rotateCmd = &cobra.Command{
	Use:   "rotate <name>",
	Short: "Seal a channel into the archive and continue fresh",
	Long: `Move the channel's backing file into the archive directory as a sealed
segment, register it in the archive index, and continue the channel in a
fresh file with the record sequence carried forward.

The sealed segment stays readable with 'ringctl dump' and is discoverable by
time range through the segments API.

Example:
  ringctl rotate sensors`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archiveDir := cfg.ArchiveDir
		if archiveDir == "" {
			archiveDir = filepath.Join(cfg.DataDir, "archive")
		}
		if err := os.MkdirAll(archiveDir, 0750); err != nil {
			return fmt.Errorf("failed to create archive dir: %w", err)
		}

		index, err := archive.Open(filepath.Join(archiveDir, "index"))
		if err != nil {
			return err
		}
		defer index.Close()

		r, err := attachChannel(args[0])
		if err != nil {
			return err
		}
		defer r.Detach()

		seg, err := archive.Rotate(r, index, archiveDir)
		if err != nil {
			return fmt.Errorf("failed to rotate channel %q: %w", args[0], err)
		}

		cmd.Printf("Sealed %d records (seq %d..) of channel %q into %s\n",
			seg.Records, seg.FirstSeq, args[0], seg.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}
