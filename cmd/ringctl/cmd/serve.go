package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ssargent/eventring/pkg/api"
	"github.com/ssargent/eventring/pkg/archive"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve channel statistics and Prometheus metrics over HTTP",
	Long: `Attach to every channel in the data directory and serve their summary
statistics and the sealed-segment catalog over a REST API, with Prometheus
metrics on /metrics.

The server only reads channel headers, so it runs safely beside live
producers and consumers.

Examples:
  ringctl serve
  ringctl serve --port 9300`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Metrics.Port
		}

		registry := api.NewRegistry()
		entries, err := os.ReadDir(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to read data dir: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".r") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".r")
			r, err := attachChannel(name)
			if err != nil {
				log.Warn().Err(err).Str("channel", name).Msg("skipping channel")
				continue
			}
			registry.Add(name, r)
			log.Info().Str("channel", name).Msg("attached channel")
		}
		defer registry.DetachAll()

		var index api.SegmentIndex
		archiveDir := cfg.ArchiveDir
		if archiveDir == "" {
			archiveDir = filepath.Join(cfg.DataDir, "archive")
		}
		if _, err := os.Stat(filepath.Join(archiveDir, "index")); err == nil {
			idx, err := archive.Open(filepath.Join(archiveDir, "index"))
			if err != nil {
				return err
			}
			defer idx.Close()
			index = idx
		}

		return api.StartServer(registry, index, api.ServerConfig{
			Port:       port,
			DataDir:    cfg.DataDir,
			ArchiveDir: archiveDir,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (default from config)")
}
