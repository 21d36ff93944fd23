package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/scangallery/internal/managed"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/spf13/cobra"
)

func newDevicesCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List scanners known to the managed scan service",
		Example: `  scangallery devices
  scangallery devices --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			service := managed.NewWSService(cfg.ServiceURL, cfg.ServiceOrigin, cfg.ReconnectInterval)
			ready := make(chan models.Readiness, 1)
			service.OnStatusChanged(func(status models.Readiness) {
				select {
				case ready <- status:
				default:
				}
			})
			if err := service.Start(ctx, false); err != nil {
				return err
			}

			var status models.Readiness
			select {
			case status = <-ready:
			case <-ctx.Done():
				return fmt.Errorf("scan manager did not respond: %w", ctx.Err())
			}

			switch status {
			case models.ReadinessOpen:
			case models.ReadinessBlocked:
				return fmt.Errorf("scan manager blocked this origin (%s)", cfg.ServiceOrigin)
			default:
				return fmt.Errorf("scan manager is not running at %s", cfg.ServiceURL)
			}

			devices, err := service.Scanners(ctx)
			if err != nil {
				return fmt.Errorf("failed to list scanners: %w", err)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scanners found")
				return nil
			}
			for i, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, d)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "How long to wait for the scan manager")

	return cmd
}
