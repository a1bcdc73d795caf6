package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ai-video-generator/types"

	"go.uber.org/zap"
)

// FileStore keeps one state.json per run under dir/<run id>/.
type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, log: log.Named("store")}, nil
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, runID, "state.json")
}

func (s *FileStore) Save(ctx context.Context, state *types.PipelineState) error {
	if err := checkRunID(state.RunID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	path := s.path(state.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	s.log.Debug("state saved", zap.String("run_id", state.RunID), zap.String("stage", string(state.Stage)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, runID string) (*types.PipelineState, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, err
	}
	var state types.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", runID, err)
	}
	return &state, nil
}
