package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/config"
	"github.com/JakeFAU/embed-provider-sync/internal/export"
	gcsexport "github.com/JakeFAU/embed-provider-sync/internal/export/gcs"
	pgexport "github.com/JakeFAU/embed-provider-sync/internal/export/postgres"
	pubsubexport "github.com/JakeFAU/embed-provider-sync/internal/export/pubsub"
)

// buildExporters connects every configured mirror. On error the ones already
// connected are closed.
func buildExporters(ctx context.Context, cfg config.ExportConfig, logger *zap.Logger) ([]export.Exporter, error) {
	var out []export.Exporter
	fail := func(err error) ([]export.Exporter, error) {
		for _, exp := range out {
			_ = exp.Close()
		}
		return nil, err
	}

	if cfg.Postgres.DSN != "" {
		exp, err := pgexport.New(ctx, pgexport.Config{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table})
		if err != nil {
			return fail(fmt.Errorf("postgres exporter: %w", err))
		}
		out = append(out, exp)
	}
	if cfg.GCS.Bucket != "" {
		exp, err := gcsexport.New(ctx, gcsexport.Config{Bucket: cfg.GCS.Bucket, Object: cfg.GCS.Object})
		if err != nil {
			return fail(fmt.Errorf("gcs exporter: %w", err))
		}
		logger.Info("gcs export enabled", zap.String("uri", exp.URI()))
		out = append(out, exp)
	}
	if cfg.PubSub.Topic != "" {
		exp, err := pubsubexport.New(ctx, pubsubexport.Config{ProjectID: cfg.PubSub.ProjectID, Topic: cfg.PubSub.Topic})
		if err != nil {
			return fail(fmt.Errorf("pubsub exporter: %w", err))
		}
		out = append(out, exp)
	}
	return out, nil
}
