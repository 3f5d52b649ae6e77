// Package registry persists the mapping from vector-store namespaces to
// the repository URLs they were indexed from.
//
// The vector store is the source of truth for which namespaces exist; the
// registry is a secondary index recording provenance, used to pre-fill
// reindex operations with the original URL.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrRegistryCorrupted indicates the registry file is not valid JSON.
var ErrRegistryCorrupted = errors.New("registry file corrupted")

// registryData is the persisted structure.
type registryData struct {
	Repositories map[string]string `json:"repositories"`
}

// Registry is a durable namespace-to-URL mapping backed by a single JSON
// file. Every mutation performs a full read-modify-write, acceptable at
// the expected cardinality of tens of namespaces. Concurrent processes
// are not coordinated; last write wins.
type Registry struct {
	mu       sync.Mutex
	filePath string
}

// New creates a Registry backed by the JSON file at path. The file is
// created lazily on first write; its absence means an empty registry.
func New(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path required")
	}

	expanded, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding registry path: %w", err)
	}

	return &Registry{filePath: expanded}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Put records that namespace was indexed from url, overwriting any
// previous association.
func (r *Registry) Put(namespace, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	data.Repositories[namespace] = url
	return r.save(data)
}

// Get returns the URL recorded for namespace, or empty when unknown.
func (r *Registry) Get(namespace string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return "", err
	}
	return data.Repositories[namespace], nil
}

// Delete removes the association for namespace. Deleting an absent
// namespace is a no-op.
func (r *Registry) Delete(namespace string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := data.Repositories[namespace]; !ok {
		return nil
	}
	delete(data.Repositories, namespace)
	return r.save(data)
}

// All returns a copy of every namespace-to-URL association.
func (r *Registry) All() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(data.Repositories))
	for ns, url := range data.Repositories {
		out[ns] = url
	}
	return out, nil
}

func (r *Registry) load() (*registryData, error) {
	raw, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &registryData{Repositories: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var data registryData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryCorrupted, err)
	}
	if data.Repositories == nil {
		data.Repositories = make(map[string]string)
	}
	return &data, nil
}

func (r *Registry) save(data *registryData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	// Write-then-rename keeps the file intact if the process dies mid-write.
	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp, r.filePath); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
