package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/codec"
	"github.com/ssargent/eventring/pkg/ring"
)

// tailCmd represents the tail command
var tailCmd = &cobra.Command{
	Use:   "tail <name>",
	Short: "Consume and print records as they arrive",
	Long: `Dequeue records from a channel and print them until interrupted.

Unlike dump, tail consumes: each record it prints is removed from the
channel. Run it as the channel's consumer, not alongside one.

Examples:
  ringctl tail sensors
  ringctl tail sensors --schema sensors.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, _ := cmd.Flags().GetString("schema")
		bufWords, _ := cmd.Flags().GetUint32("buffer")

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

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		buf := make([]uint32, bufWords)
		seq := r.FirstSeq()
		for {
			select {
			case <-stop:
				return nil
			default:
			}

			n, tStart, tStop, err := r.Dequeue(buf)
			switch {
			case errors.Is(err, ring.ErrNoData):
				time.Sleep(10 * time.Millisecond)
				continue
			case errors.Is(err, ring.ErrRecordTooLarge):
				return fmt.Errorf("record larger than %d-word buffer, rerun with a bigger --buffer", bufWords)
			case err != nil:
				return err
			}

			printTailed(cmd, buf[:n], seq, tStart, tStop, schema)
			seq++
		}
	},
}

func printTailed(cmd *cobra.Command, payload []uint32, seq uint64, tStart, tStop float64, schema *codec.Type) {
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
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().StringP("schema", "s", "", "YAML event schema for payload decoding")
	tailCmd.Flags().Uint32("buffer", 4096, "Dequeue buffer size in words")
}
