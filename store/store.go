// Package store persists pipeline run snapshots so runs can be inspected and
// regenerated after the request that started them is gone.
package store

import (
	"context"
	"fmt"
	"regexp"

	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// Store saves and loads run snapshots by run id.
type Store interface {
	Save(ctx context.Context, state *types.PipelineState) error
	Load(ctx context.Context, runID string) (*types.PipelineState, error)
}

var validRunID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func checkRunID(runID string) error {
	if !validRunID.MatchString(runID) {
		return apperrors.NewValidation(fmt.Sprintf("invalid run id %q", runID), nil)
	}
	return nil
}

func notFound(runID string) error {
	return apperrors.NewNotFound(fmt.Sprintf("run %s not found", runID))
}

// New builds the backend named in cfg.
func New(ctx context.Context, cfg config.StoreConfig, secrets config.Secrets, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir, log)
	case "redis":
		return ConnectRedis(ctx, secrets.RedisAddr, secrets.RedisPassword, cfg.KeyPrefix, cfg.TTL, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
