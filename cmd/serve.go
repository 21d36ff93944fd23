package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/scangallery/internal/bridge"
	"github.com/lehigh-university-libraries/scangallery/internal/gallery"
	"github.com/lehigh-university-libraries/scangallery/internal/handlers"
	"github.com/lehigh-university-libraries/scangallery/internal/legacy"
	"github.com/lehigh-university-libraries/scangallery/internal/managed"
	"github.com/lehigh-university-libraries/scangallery/internal/metrics"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/lehigh-university-libraries/scangallery/internal/navigation"
	"github.com/lehigh-university-libraries/scangallery/internal/notify"
	"github.com/lehigh-university-libraries/scangallery/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gallery web interface",
		Long: `Starts the gallery web interface and connects to the managed scan service.

The header offers three acquisition paths: import a file from disk, scan
through the scanner bridge, or scan through the managed scan service.
Acquired images are appended to the gallery in arrival order.`,
		Example: `  # Start server on default port 8888
  scangallery serve

  # Start server on custom port with a config file
  scangallery serve --port 3000 --config scangallery.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			ctx := cmd.Context()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(registry)

			blobs := storage.New()
			g := gallery.New(blobs, m)
			alerter := notify.NewDialogAlerter(cfg.NativeDialogs)

			var picker legacy.FilePicker
			if cfg.NativeDialogs {
				picker = legacy.DialogPicker{}
			}
			importer := legacy.NewImporter(cfg.MaxUploadBytes, picker, m)

			bridgeAdapter := bridge.NewAdapter(bridge.NewHTTPBridge(cfg.BridgeURL), m)

			service := managed.NewWSService(cfg.ServiceURL, cfg.ServiceOrigin, cfg.ReconnectInterval)
			managedAdapter := managed.NewAdapter(service, nil, blobs, alerter, m)
			if err := managedAdapter.Start(ctx); err != nil {
				return err
			}

			nav := navigation.New(g.Append,
				navigation.Action{
					Key:    navigation.KeyLegacy,
					Label:  "Legacy -- File system",
					Origin: models.OriginLegacy,
					Acquirer: navigation.AcquirerFunc(func(ctx context.Context, onImages func([]models.ImageSource)) {
						if err := importer.Pick(ctx, onImages); err != nil {
							slog.Error("File import failed", "err", err)
						}
					}),
				},
				navigation.Action{Key: navigation.KeyBridge, Label: "Scanner.js", Origin: models.OriginBridge, Acquirer: bridgeAdapter},
				navigation.Action{Key: navigation.KeyManaged, Label: "JSPM", Origin: models.OriginManaged, Acquirer: managedAdapter},
			)

			handler := handlers.New(ctx, g, blobs, importer, nav)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Router(registry),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Scan gallery available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				nav.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
