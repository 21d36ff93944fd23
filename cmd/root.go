package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/scangallery/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scangallery",
		Short: "Scan, import and browse page images from local scanners",
		Long: `Scangallery is a local web gallery for page images.

Images come from three places: files picked from disk, a scanner bridge app
reached over HTTP, and a managed scan service reached over a WebSocket.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (default "+config.DefaultPath+" if present)")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newDevicesCmd(&configPath))

	return cmd
}

// loadConfig reads the config and installs the default logger at its level
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}
