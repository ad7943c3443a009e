// Package local stores artifacts on the filesystem under root/<userID>/<fileName>.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/coinledger-backend/pkg/storage"
)

type Store struct {
	root    string
	baseURL string
}

var _ storage.ArtifactStore = (*Store)(nil)

// New creates root if needed. baseURL prefixes download references.
func New(root, baseURL string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Store) path(userID, fileName string) (string, error) {
	if err := storage.ValidateKey(userID, fileName); err != nil {
		return "", err
	}
	return filepath.Join(s.root, userID, fileName), nil
}

// Write streams r into a temp file in the target directory and renames it into place.
func (s *Store) Write(ctx context.Context, userID, fileName string, r io.Reader) (err error) {
	target, err := s.path(userID, fileName)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func (s *Store) Stat(_ context.Context, userID, fileName string) (storage.Info, error) {
	target, err := s.path(userID, fileName)
	if err != nil {
		return storage.Info{}, err
	}
	fi, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.Info{}, storage.ErrNotExist
		}
		return storage.Info{}, err
	}
	return storage.Info{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (s *Store) Exists(ctx context.Context, userID, fileName string) (bool, error) {
	_, err := s.Stat(ctx, userID, fileName)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) Delete(_ context.Context, userID, fileName string) error {
	target, err := s.path(userID, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotExist
		}
		return err
	}
	return nil
}

func (s *Store) URL(userID, fileName string) string {
	return s.baseURL + "/" + url.PathEscape(userID) + "/" + url.PathEscape(fileName)
}

// Ping checks the root is still a writable directory.
func (s *Store) Ping(_ context.Context) error {
	fi, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage root %q is not a directory", s.root)
	}
	probe, err := os.CreateTemp(s.root, ".ping-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
