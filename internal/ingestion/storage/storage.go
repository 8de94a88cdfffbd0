// Package storage keeps uploaded documents as files under a single root
// directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

type Storage struct {
	root    string
	cleanup bool
	logger  *slog.Logger
}

// New creates the root directory if needed.
func New(cfg config.StorageConfig) (*Storage, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("storage location is required")
	}
	if err := os.MkdirAll(cfg.Location, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", cfg.Location, err)
	}
	return &Storage{
		root:    cfg.Location,
		cleanup: cfg.CleanupOnShutdown,
		logger:  slog.Default().With("component", "storage", "root", cfg.Location),
	}, nil
}

func (s *Storage) Root() string {
	return s.root
}

// Save writes content under name. It fails with ErrDocumentExists when a
// file of that name is already stored, including when a concurrent Save of
// the same name wins the race.
func (s *Storage) Save(name string, content []byte) error {
	if len(content) == 0 {
		return apperrors.New(apperrors.ErrBadFile, http.StatusBadRequest, "file is empty")
	}
	if err := checkName(name); err != nil {
		return err
	}

	path := filepath.Join(s.root, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict,
				"there is a file with this name in storage: %s", name)
		}
		return fmt.Errorf("can't save file %s: %w", name, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("can't save file %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("can't save file %s: %w", name, err)
	}
	s.logger.Debug("file stored", "name", name, "size", len(content))
	return nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *Storage) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// List returns the stored file names in lexical order.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Check reports whether the root directory is still usable.
func (s *Storage) Check(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.root)
	}
	return nil
}

// Close deletes the root directory when cleanup on shutdown is enabled.
func (s *Storage) Close() error {
	if !s.cleanup {
		return nil
	}
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("deleting upload directory: %w", err)
	}
	s.logger.Info("upload directory deleted")
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return apperrors.Newf(apperrors.ErrBadFile, http.StatusBadRequest, "bad filename: %s", name)
	}
	return nil
}
