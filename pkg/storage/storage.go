// Package storage defines durable artifact storage addressed by (userID, fileName).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotExist is returned by Stat and Delete when the artifact is absent.
var ErrNotExist = errors.New("artifact does not exist")

// IsNotExist reports whether err means the artifact is already gone.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// Info describes a stored artifact.
type Info struct {
	Size    int64
	ModTime time.Time
}

// ArtifactStore persists report artifacts. Write must be atomic: a failed
// write leaves nothing visible under the final name.
type ArtifactStore interface {
	Write(ctx context.Context, userID, fileName string, r io.Reader) error
	Stat(ctx context.Context, userID, fileName string) (Info, error)
	Exists(ctx context.Context, userID, fileName string) (bool, error)
	Delete(ctx context.Context, userID, fileName string) error
	URL(userID, fileName string) string
	Ping(ctx context.Context) error
}

// ValidateKey rejects identifiers that would escape the per-user namespace.
func ValidateKey(userID, fileName string) error {
	if err := validateSegment("user id", userID); err != nil {
		return err
	}
	return validateSegment("file name", fileName)
}

func validateSegment(label, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Errorf("%s is required", label)
	case value == "." || value == "..":
		return fmt.Errorf("%s %q is not allowed", label, value)
	case strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0):
		return fmt.Errorf("%s %q contains a path separator", label, value)
	}
	return nil
}
