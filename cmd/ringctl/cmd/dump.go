package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/codec"
	"github.com/ssargent/eventring/pkg/ring"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <name>",
	Short: "Print every committed record without consuming it",
	Long: `Walk a channel from frontier to newest record and print each one.
The consumer cursors are left untouched, so dump can inspect a live channel
or a sealed archive segment.

With --schema the payload words are decoded against a YAML event schema;
without it they are printed as hex words.

Examples:
  ringctl dump sensors
  ringctl dump sensors --schema sensors.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, _ := cmd.Flags().GetString("schema")

		var schema *codec.Type
		if schemaPath != "" {
			var err error
			schema, err = codec.LoadSchema(schemaPath)
			if err != nil {
				return fmt.Errorf("failed to load schema: %w", err)
			}
		}

		r, err := attachChannel(args[0])
		if err != nil {
			return err
		}
		defer r.Detach()

		seq := r.FirstSeq()
		for tx, ok := r.ScanFirst(); ok; tx, ok = r.ScanNext(tx) {
			printRecord(cmd, r, tx, seq, schema)
			seq++
		}
		return nil
	},
}

func printRecord(cmd *cobra.Command, r *ring.Ring, tx ring.Tx, seq uint64, schema *codec.Type) {
	tStart, tStop := r.Times(tx)
	payload := r.Payload(tx)

	if schema == nil {
		cmd.Printf("#%d [%g, %g] %d words:", seq, tStart, tStop, len(payload))
		for _, w := range payload {
			cmd.Printf(" %08x", w)
		}
		cmd.Println()
		return
	}

	v, err := codec.Decode(schema, payload)
	if err != nil {
		cmd.Printf("#%d [%g, %g] decode failed: %v\n", seq, tStart, tStop, err)
		return
	}
	cmd.Printf("#%d [%g, %g] %s\n", seq, tStart, tStop, v.String())
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringP("schema", "s", "", "YAML event schema for payload decoding")
}
