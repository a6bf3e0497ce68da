package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/image"
	"zoiner/internal/metadata"
	"zoiner/internal/pinata"
)

func newPinataCheckCommand(configPath *string) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "pinata-check",
		Short: "Authenticate with Pinata and pin a probe document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), time.Minute)
			defer cancel()

			client := pinata.NewClient(cfg.Pinata.JWT, cfg.Pinata.Gateway)
			if err := client.Authenticate(ctx); err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}
			log.Info("pinata authentication ok")

			doc := domain.NewMetadataDocument("Probe", "PROBE", image.DefaultURL)
			name := "zoiner-probe-" + uuid.NewString()

			uri, err := client.PinJSON(ctx, doc, name)
			if err != nil {
				return fmt.Errorf("pin probe: %w", err)
			}
			log.Info("probe pinned", zap.String("uri", uri), zap.String("gateway", client.GatewayURL(uri)))

			if validate {
				v := metadata.NewValidator(cfg.Metadata.Gateways, cfg.Metadata.Timeout, log)
				if err := v.Validate(ctx, uri); err != nil {
					return fmt.Errorf("validate probe: %w", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "also fetch the probe through the public gateways")

	return cmd
}
