package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/billmal071/narubooks/internal/logging"
)

// IOError is returned when a snapshot cannot be read or written
type IOError struct {
	Op   string // mkdir, encode, write, rename, read, decode
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Write serializes snap as indented JSON and replaces path with it.
// The parent directory is created when missing.
func Write(path string, snap *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// legacyBook is the per-book shape of older bare-array snapshots
type legacyBook struct {
	Book
	Location string `json:"location"`
}

// Load reads a snapshot. Both the wrapped object and the older bare array
// of books are accepted; a missing books field reads as empty.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return snap, nil
}

// Decode parses snapshot bytes in either accepted shape
func Decode(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty snapshot")
	}

	var snap Snapshot
	if trimmed[0] == '[' {
		var legacy []legacyBook
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, err
		}
		snap.Books = make([]Book, 0, len(legacy))
		for _, lb := range legacy {
			b := lb.Book
			if b.Library == "" {
				b.Library = lb.Location
			}
			snap.Books = append(snap.Books, b)
		}
		snap.TotalBookCount = len(snap.Books)
		return &snap, nil
	}

	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, err
	}
	if snap.Books == nil {
		snap.Books = []Book{}
	}
	return &snap, nil
}

// LoadWithFallback tries path, then fallback once. It returns the path that
// was actually read.
func LoadWithFallback(path, fallback string) (*Snapshot, string, error) {
	snap, err := Load(path)
	if err == nil {
		return snap, path, nil
	}
	if fallback == "" || fallback == path {
		return nil, "", err
	}

	logging.Warn().Err(err).Str("fallback", fallback).Msg("primary snapshot unavailable, trying fallback")
	snap, fbErr := Load(fallback)
	if fbErr != nil {
		return nil, "", fmt.Errorf("%w (fallback: %v)", err, fbErr)
	}
	return snap, fallback, nil
}
