// Package manifest owns the persisted pipeline status document. All access
// goes through the load / update-section / persist contract; no stage opens
// and partially edits the raw file directly.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/domain"
)

// renameFile is swapped out in tests to simulate a crash between the
// temp-file write and the rename.
var renameFile = os.Rename

// Store provides atomic read-modify-write access to the single status
// document. Stages run sequentially within one pipeline execution, but every
// persisted state must stay fully parseable for a concurrent reader (the
// dashboard polling mid-pipeline).
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store backed by the document at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// NewStoreWithClock creates a store with an injected clock.
func NewStoreWithClock(path string, now func() time.Time) *Store {
	return &Store{path: path, now: now}
}

// Path returns the location of the persisted document.
func (s *Store) Path() string {
	return s.path
}

// Load deserializes the persisted document. An absent file is the bootstrap
// case and yields an empty document; a present-but-unparseable file is fatal
// and is never silently reset, since overwriting history without operator
// visibility would break change detection for every section.
func (s *Store) Load() (*domain.Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", s.path).Msg("No status document found, bootstrapping empty manifest")
			return domain.NewManifest(), nil
		}
		return nil, domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to read status document",
			500,
			err,
			map[string]any{"path": s.path},
		)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, domain.NewAppErrorWithCause(
			domain.ErrCorruptManifest,
			"status document exists but cannot be parsed; refusing to reset it",
			500,
			err,
			map[string]any{"path": s.path, "size_bytes": len(data)},
		)
	}

	m.Normalize()
	return &m, nil
}

// UpdateSection loads the current document, applies mutate to the subtree
// addressed by path and refreshes the generation timestamp. Every other
// subtree is carried over untouched from the loaded document, so no stage's
// write is ever visible as a change to another stage's section. The returned
// document is not yet persisted.
//
// Supported paths: pipeline.gather, pipeline.gather.sources.<key>,
// pipeline.fetch, pipeline.build, pipeline.build.{v1,v2}.platforms.<platform>,
// pipeline.bulletin, pipeline.enrich. The mutator receives a typed pointer
// (e.g. *domain.GatherStatus for pipeline.gather).
func (s *Store) UpdateSection(path string, mutate func(section any) error) (*domain.Manifest, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}

	section, commit, err := resolveSection(m, path)
	if err != nil {
		return nil, err
	}

	if err := mutate(section); err != nil {
		return nil, err
	}
	if commit != nil {
		commit()
	}

	m.Generated = s.now().UTC()
	return m, nil
}

// Apply is UpdateSection followed by Persist.
func (s *Store) Apply(path string, mutate func(section any) error) (*domain.Manifest, error) {
	m, err := s.UpdateSection(path, mutate)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Persist writes the document atomically (temp file, sync, rename) so a
// crash mid-write never leaves a half-written document visible to readers.
func (s *Store) Persist(m *domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return domain.NewAppErrorWithCause(
			domain.ErrInternal,
			"failed to serialize status document",
			500,
			err,
			nil,
		)
	}
	data = append(data, '\n')

	if err := atomicWrite(s.path, data); err != nil {
		return domain.NewAppErrorWithCause(
			domain.ErrIO,
			"failed to persist status document",
			500,
			err,
			map[string]any{"path": s.path},
		)
	}

	log.Debug().
		Str("path", s.path).
		Int("size_bytes", len(data)).
		Time("generated", m.Generated).
		Msg("Status document persisted")

	return nil
}

// atomicWrite writes data to targetPath using the temp-file-then-rename
// discipline. The temp file lives in the target directory so the rename
// never crosses filesystems.
func atomicWrite(targetPath string, data []byte) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	// Ensure cleanup on error
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := renameFile(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to rename temp file to target: %w", err)
	}

	success = true
	return nil
}
