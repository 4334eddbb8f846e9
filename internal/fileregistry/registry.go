// Package fileregistry indexes the FileRef artifacts produced during a
// task. MemoryManager owns file lifecycle; Registry is strictly a lookup
// layer over it, keyed by fileId with secondary indexes by type, language
// and taskId.
package fileregistry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"agentcore.dev/core/internal/model"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrEmptyFileID   = errors.New("file id is required")
)

// Registry is the in-memory index. All methods are safe for concurrent use,
// though the orchestrator's single-threaded loop means contention is only
// ever between the main goroutine and an optional janitor sweep.
type Registry struct {
	mu sync.Mutex

	byID       map[string]model.FileRef
	byType     map[string]map[string]struct{}
	byLanguage map[string]map[string]struct{}
	byTask     map[string]map[string]struct{}

	backend Backend
}

// Backend optionally persists file bodies so a FileRef's content survives
// eviction of its in-memory TaskContext. A nil Backend makes the registry
// purely in-memory.
type Backend interface {
	// Store writes content under its checksum, idempotently.
	Store(checksum string, content []byte) error
	// Load reads content back by checksum.
	Load(checksum string) ([]byte, error)
}

// New returns an empty Registry. backend may be nil.
func New(backend Backend) *Registry {
	return &Registry{
		byID:       make(map[string]model.FileRef),
		byType:     make(map[string]map[string]struct{}),
		byLanguage: make(map[string]map[string]struct{}),
		byTask:     make(map[string]map[string]struct{}),
		backend:    backend,
	}
}

// Checksum computes the stable content hash stored on a FileRef.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Add inserts file into the registry, associating it with taskID (empty
// when the file isn't scoped to a task). If a Backend is configured, the
// content is also persisted under its checksum.
func (r *Registry) Add(file model.FileRef, taskID string) error {
	if file.FileID == "" {
		return ErrEmptyFileID
	}
	if file.Checksum == "" {
		file.Checksum = Checksum(file.Content)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[file.FileID] = file
	r.index(r.byType, string(file.FileType), file.FileID)
	if file.Language != "" {
		r.index(r.byLanguage, file.Language, file.FileID)
	}
	if taskID != "" {
		r.index(r.byTask, taskID, file.FileID)
	}

	if r.backend != nil {
		if err := r.backend.Store(file.Checksum, []byte(file.Content)); err != nil {
			return fmt.Errorf("persisting file body: %w", err)
		}
	}
	return nil
}

func (r *Registry) index(idx map[string]map[string]struct{}, key, fileID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[fileID] = struct{}{}
}

// Get returns the FileRef for fileID, loading content from the Backend
// when the in-memory copy was evicted (content empty but checksum set).
func (r *Registry) Get(fileID string) (model.FileRef, error) {
	r.mu.Lock()
	file, ok := r.byID[fileID]
	r.mu.Unlock()
	if !ok {
		return model.FileRef{}, ErrNotFound
	}

	if file.Content == "" && file.Checksum != "" && r.backend != nil {
		content, err := r.backend.Load(file.Checksum)
		if err == nil {
			file.Content = string(content)
		}
	}
	return file, nil
}

// ByType returns all files of the given type.
func (r *Registry) ByType(t model.FileType) []model.FileRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(r.byType[string(t)])
}

// ByLanguage returns all files inferred as lang.
func (r *Registry) ByLanguage(lang string) []model.FileRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(r.byLanguage[lang])
}

// ByTask returns all files associated with taskID.
func (r *Registry) ByTask(taskID string) []model.FileRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(r.byTask[taskID])
}

func (r *Registry) collect(ids map[string]struct{}) []model.FileRef {
	out := make([]model.FileRef, 0, len(ids))
	for id := range ids {
		if f, ok := r.byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Update applies mutate to the stored FileRef and re-indexes it if its
// type or language changed.
func (r *Registry) Update(fileID string, mutate func(*model.FileRef)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.byID[fileID]
	if !ok {
		return ErrNotFound
	}

	oldType, oldLang := file.FileType, file.Language
	mutate(&file)
	r.byID[fileID] = file

	if file.FileType != oldType {
		delete(r.byType[string(oldType)], fileID)
		r.index(r.byType, string(file.FileType), fileID)
	}
	if file.Language != oldLang {
		if oldLang != "" {
			delete(r.byLanguage[oldLang], fileID)
		}
		if file.Language != "" {
			r.index(r.byLanguage, file.Language, fileID)
		}
	}
	return nil
}

// Remove deletes fileID from the primary map and every secondary index.
func (r *Registry) Remove(fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.byID[fileID]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, fileID)
	delete(r.byType[string(file.FileType)], fileID)
	if file.Language != "" {
		delete(r.byLanguage[file.Language], fileID)
	}
	for _, set := range r.byTask {
		delete(set, fileID)
	}
	return nil
}
