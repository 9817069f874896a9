// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scenegraph

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/bureau-foundation/liveinspect/wire"
)

// SceneExtension is the file extension of packed scene files.
const SceneExtension = ".lscn"

const resPrefix = "res://"

// ResourceLoader resolves res:// paths. Resources created at runtime
// are registered by path; scene files are read from the project
// directory and their decoded form cached by path.
type ResourceLoader struct {
	db      *ObjectDB
	classes *ClassDB
	dir     string

	mu       sync.Mutex
	registry map[wire.ResourcePath]*Resource

	scenes *ristretto.Cache[string, *PackedScene]
}

// NewResourceLoader maps res:// to dir. cacheBytes bounds the decoded
// scene cache by encoded file size.
func NewResourceLoader(db *ObjectDB, classes *ClassDB, dir string, cacheBytes int64) (*ResourceLoader, error) {
	if cacheBytes <= 0 {
		cacheBytes = 1 << 20
	}
	scenes, err := ristretto.NewCache(&ristretto.Config[string, *PackedScene]{
		NumCounters:        1 << 14,
		MaxCost:            cacheBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating scene cache: %w", err)
	}
	return &ResourceLoader{
		db:       db,
		classes:  classes,
		dir:      dir,
		registry: make(map[wire.ResourcePath]*Resource),
		scenes:   scenes,
	}, nil
}

// Close releases the scene cache.
func (l *ResourceLoader) Close() { l.scenes.Close() }

// Dir returns the directory res:// maps to.
func (l *ResourceLoader) Dir() string { return l.dir }

// FilePath converts a res:// path to a filesystem path inside the
// project directory.
func (l *ResourceLoader) FilePath(path wire.ResourcePath) (string, error) {
	base, _, _ := path.Split()
	rel, ok := strings.CutPrefix(string(base), resPrefix)
	if !ok {
		return "", fmt.Errorf("resource path %q: not a res:// path", path)
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("resource path %q escapes the project directory", path)
	}
	return filepath.Join(l.dir, filepath.FromSlash(rel)), nil
}

// Register makes resource loadable by its path, replacing any earlier
// registration.
func (l *ResourceLoader) Register(resource *Resource) error {
	if resource.path == "" {
		return fmt.Errorf("register %s: resource has no path", resource.class)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry[resource.path] = resource
	return nil
}

// Lookup returns an already-loaded resource without touching disk.
func (l *ResourceLoader) Lookup(path wire.ResourcePath) (*Resource, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	resource, ok := l.registry[path]
	return resource, ok
}

// Resources returns every loaded resource, ordered by path.
func (l *ResourceLoader) Resources() []*Resource {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Resource, 0, len(l.registry))
	for _, resource := range l.registry {
		out = append(out, resource)
	}
	slices.SortFunc(out, func(a, b *Resource) int { return cmp.Compare(a.path, b.path) })
	return out
}

// Load returns the resource at path. Loaded resources are shared: two
// loads of the same path return the same object. Scene files load as
// PackedScene resources.
func (l *ResourceLoader) Load(path wire.ResourcePath) (*Resource, error) {
	if resource, ok := l.Lookup(path); ok {
		return resource, nil
	}
	if !strings.HasSuffix(string(path), SceneExtension) {
		return nil, fmt.Errorf("load %q: %w", path, ErrNotFound)
	}
	if _, err := l.LoadScene(path); err != nil {
		return nil, err
	}
	resource, err := l.classes.NewResource(l.db, "PackedScene", path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.registry[path]; ok {
		l.db.Remove(resource.id)
		return existing, nil
	}
	l.registry[path] = resource
	return resource, nil
}

// LoadScene returns the decoded scene file at path.
func (l *ResourceLoader) LoadScene(path wire.ResourcePath) (*PackedScene, error) {
	if scene, ok := l.scenes.Get(string(path)); ok {
		return scene, nil
	}
	file, err := l.FilePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load scene %q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("load scene %q: %w", path, err)
	}
	scene, err := DecodeScene(data)
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", path, err)
	}
	l.scenes.Set(string(path), scene, int64(len(data)))
	return scene, nil
}

// InstanceScene loads path and builds a detached instance whose root is
// marked with the scene file.
func (l *ResourceLoader) InstanceScene(path wire.ResourcePath) (*Node, error) {
	scene, err := l.LoadScene(path)
	if err != nil {
		return nil, err
	}
	node, err := scene.Instance(l.classes, l.db, l)
	if err != nil {
		return nil, fmt.Errorf("instance %q: %w", path, err)
	}
	node.sceneFile = string(path)
	return node, nil
}

// SaveScene packs node and writes it to path. The write goes through a
// temporary file in the same directory and a rename, so readers never
// see a partial file.
func (l *ResourceLoader) SaveScene(node *Node, path wire.ResourcePath) error {
	scene, err := Pack(node)
	if err != nil {
		return err
	}
	data, err := scene.Encode()
	if err != nil {
		return err
	}
	file, err := l.FilePath(path)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(file, data); err != nil {
		return fmt.Errorf("save scene %q: %w", path, err)
	}
	l.scenes.Del(string(path))
	return nil
}

// SaveSceneFile writes node to an arbitrary filesystem path.
func SaveSceneFile(node *Node, file string) error {
	scene, err := Pack(node)
	if err != nil {
		return err
	}
	data, err := scene.Encode()
	if err != nil {
		return err
	}
	return writeFileAtomic(file, data)
}

func writeFileAtomic(file string, data []byte) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return err
	}
	if err := os.Rename(temp.Name(), file); err != nil {
		os.Remove(temp.Name())
		return err
	}
	return nil
}
