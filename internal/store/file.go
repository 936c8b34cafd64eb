package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/kaptinlin/jsonrepair"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/logging"
)

// Config captures where and how the provider document is kept.
type Config struct {
	Path string
	// RepairCorrupt runs malformed documents through jsonrepair before giving up.
	RepairCorrupt bool
}

// FileStore reads and writes the provider document on an afero filesystem.
type FileStore struct {
	fs     afero.Fs
	cfg    Config
	logger *zap.Logger
}

// NewFileStore builds a FileStore. A nil fs means the OS filesystem.
func NewFileStore(fsys afero.Fs, cfg Config, logger *zap.Logger) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger = logging.OrNop(logger)
	return &FileStore{fs: fsys, cfg: cfg, logger: logger}, nil
}

// Path is the document location.
func (s *FileStore) Path() string { return s.cfg.Path }

// Load returns the stored providers. A missing or malformed document yields an
// empty store; the failure is logged, never returned.
func (s *FileStore) Load(context.Context) *Providers {
	data, err := afero.ReadFile(s.fs, s.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no provider store yet, starting empty", zap.String("path", s.cfg.Path))
		} else {
			s.logger.Warn("provider store unreadable, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
		}
		return NewProviders()
	}

	providers, err := decodeProviders(bytes.NewReader(data))
	if err == nil {
		return providers
	}
	if s.cfg.RepairCorrupt {
		if repaired, rerr := repair(data); rerr == nil {
			s.logger.Warn("provider store was malformed and has been repaired", zap.String("path", s.cfg.Path), zap.Error(err))
			return repaired
		}
	}
	s.logger.Warn("provider store malformed, starting empty", zap.String("path", s.cfg.Path), zap.Error(err))
	return NewProviders()
}

func repair(data []byte) (*Providers, error) {
	fixed, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return nil, fmt.Errorf("repair provider store: %w", err)
	}
	return decodeProviders(bytes.NewReader([]byte(fixed)))
}

// Encode renders providers the way Save writes them: 4-space indent, held key
// order, literal non-ASCII, trailing newline.
func Encode(providers *Providers) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(providers); err != nil {
		return nil, fmt.Errorf("encode providers: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes providers to a temp file beside the target and renames it into place.
func (s *FileStore) Save(_ context.Context, providers *Providers) error {
	data, err := Encode(providers)
	if err != nil {
		return err
	}
	return writeAtomic(s.fs, s.cfg.Path, data)
}

func writeAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := fsys.Chmod(tmpName, 0o644); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
