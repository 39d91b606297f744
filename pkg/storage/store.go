package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errs "wallheaven-sync/pkg/errors"
)

// IndexFile is the name of the per-collection index
const IndexFile = "index.json"

// ErrCollectionNotFound is returned when a collection directory does not exist
var ErrCollectionNotFound = stderrors.New("collection not found")

// Store manages the storage root: one directory per collection holding assets and index.json.
type Store struct {
	root string
}

// New creates a store rooted at root. Nothing is created on disk.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the storage root path
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether the storage root directory exists
func (s *Store) Exists() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// Init creates the storage root
func (s *Store) Init() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to create storage directory")
	}
	return nil
}

// InitCollection creates the collection directory if it is missing
func (s *Store) InitCollection(label string) error {
	dir, err := s.collectionDir(label)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to create collection directory")
	}
	return nil
}

// CollectionExists reports whether the collection directory exists
func (s *Store) CollectionExists(label string) bool {
	dir, err := s.collectionDir(label)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// ListCollectionDirectories returns the names of the immediate subdirectories, sorted.
// Dot-prefixed directories are skipped.
func (s *Store) ListCollectionDirectories() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to read storage directory")
	}

	var labels []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			labels = append(labels, entry.Name())
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// LoadIndex reads a collection's index.
// The boolean is false when the collection directory does not exist.
// A directory without index.json yields an empty index.
func (s *Store) LoadIndex(label string) (Index, bool, error) {
	dir, err := s.collectionDir(label)
	if err != nil {
		return nil, false, err
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err != nil && !os.IsNotExist(err) {
			return nil, false, errs.Wrap(errs.ErrorTypeStorage, err, "failed to stat collection directory")
		}
		return nil, false, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if os.IsNotExist(err) {
		return Index{}, true, nil
	}
	if err != nil {
		return nil, true, errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to read %s index", label))
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, true, errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to parse %s index", label))
	}
	if index == nil {
		index = Index{}
	}
	return index, true, nil
}

// SaveIndex replaces the collection's index.json.
// The new content is written to a temporary sibling, synced and renamed over the old file.
func (s *Store) SaveIndex(label string, index Index) error {
	if index == nil {
		index = Index{}
	}
	data, err := json.Marshal(index)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, "failed to encode index")
	}

	if err := s.InitCollection(label); err != nil {
		return err
	}
	dir, _ := s.collectionDir(label)

	if err := writeFileAtomic(dir, IndexFile, data); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to save %s index", label))
	}
	return nil
}

// WriteAsset writes an asset file, replacing any existing file of that name
func (s *Store) WriteAsset(label, filename string, data []byte) error {
	if err := validateName(filename); err != nil {
		return err
	}
	if err := s.InitCollection(label); err != nil {
		return err
	}
	dir, _ := s.collectionDir(label)

	if err := writeFileAtomic(dir, filename, data); err != nil {
		return errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to write %s", filename))
	}
	return nil
}

// DeleteAsset removes an asset file; a missing file is not an error
func (s *Store) DeleteAsset(label, filename string) error {
	path, err := s.AssetPath(label, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.ErrorTypeStorage, err, fmt.Sprintf("failed to delete %s", filename))
	}
	return nil
}

// AssetPath returns the on-disk path of an asset
func (s *Store) AssetPath(label, filename string) (string, error) {
	if err := validateName(filename); err != nil {
		return "", err
	}
	dir, err := s.collectionDir(label)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// HasAsset reports whether an asset file exists
func (s *Store) HasAsset(label, filename string) bool {
	path, err := s.AssetPath(label, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ListAssetFilenames returns the regular files of a collection, sorted,
// excluding index.json and dot-prefixed files.
func (s *Store) ListAssetFilenames(label string) ([]string, error) {
	dir, err := s.collectionDir(label)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to read collection directory")
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == IndexFile || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AssetsSize returns the total size in bytes of the collection's asset files
func (s *Store) AssetsSize(label string) (int64, error) {
	names, err := s.ListAssetFilenames(label)
	if err != nil {
		return 0, err
	}
	dir, _ := s.collectionDir(label)

	var total int64
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (s *Store) collectionDir(label string) (string, error) {
	if err := validateName(label); err != nil {
		return "", err
	}
	return filepath.Join(s.root, label), nil
}

// validateName rejects names that would escape their parent directory
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errs.New(errs.ErrorTypeStorage, fmt.Sprintf("invalid name %q", name))
	}
	return nil
}

func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
