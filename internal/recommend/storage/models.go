// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package storage persists the pretrained artifacts used by the cluster scorer.
//
// Each artifact (the feature scaler and the k-means centroids) is gob-encoded,
// checksummed with SHA-256 and gzip-compressed into {name}_v{version}.gob.gz.
// Versions are monotonically increasing per name; Load with version 0 reads
// the latest one. Files are written to a temporary name and renamed so a
// reader never observes a partial artifact.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Artifact names.
const (
	ModelScaler = "scaler"
	ModelKMeans = "kmeans"
)

const modelExt = ".gob.gz"

// ErrModelNotFound is returned by Load when no version of the named model exists.
var ErrModelNotFound = errors.New("model not found")

// ModelMetadata contains information about a stored model.
type ModelMetadata struct {
	// Name is the artifact name ("scaler" or "kmeans").
	Name string `json:"name"`

	// Version is the model version (monotonically increasing).
	Version int `json:"version"`

	// TrainedAt is when the model was fitted.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was saved.
	SavedAt time.Time `json:"saved_at"`

	// SampleCount is the number of feature vectors used for fitting.
	SampleCount int `json:"sample_count"`

	// Dimensions is the feature vector length the model expects.
	Dimensions int `json:"dimensions"`

	// Clusters is the number of centroids (k-means only).
	Clusters int `json:"clusters,omitempty"`

	// Checksum is the SHA-256 checksum of the model data.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed model size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long fitting took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// ScalerState is the serializable state of a standard scaler.
type ScalerState struct {
	Mean  []float64
	Scale []float64
}

// KMeansState is the serializable state of a k-means model.
type KMeansState struct {
	Centroids [][]float64
}

// Store manages model persistence.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per model name
	versions map[string]int
}

// NewStore creates a new model store at the given directory.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	if err := s.rescan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}

	return s, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.baseDir
}

// Refresh rescans the directory, picking up artifacts written by another process.
func (s *Store) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rescan()
}

// rescan rebuilds the version index (must be called with mu held or before publication).
func (s *Store) rescan() error {
	found, err := s.listVersions()
	if err != nil {
		return err
	}
	s.versions = make(map[string]int, len(found))
	for name, versions := range found {
		s.versions[name] = versions[0]
	}
	return nil
}

// listVersions returns every stored version per model name, newest first.
func (s *Store) listVersions() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	found := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), modelExt) {
			continue
		}
		name, version := parseModelFilename(strings.TrimSuffix(entry.Name(), modelExt))
		if name == "" {
			continue
		}
		found[name] = append(found[name], version)
	}

	for name := range found {
		sort.Sort(sort.Reverse(sort.IntSlice(found[name])))
	}
	return found, nil
}

// parseModelFilename extracts model name and version from a stem like "kmeans_v3".
func parseModelFilename(stem string) (name string, version int) {
	idx := strings.LastIndex(stem, "_v")
	if idx <= 0 {
		return "", 0
	}
	version, err := strconv.Atoi(stem[idx+2:])
	if err != nil || version < 1 {
		return "", 0
	}
	return stem[:idx], version
}

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Save stores a model with the given name and version.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("version must be positive, got %d", version)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()
	meta.Name = name
	meta.Version = version

	s.mu.Lock()
	defer s.mu.Unlock()

	filename := s.modelPath(name, version)
	tmp, err := os.CreateTemp(s.baseDir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("publish model file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// SaveNext stores a model as the next version after the latest one and returns that version.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) SaveNext(ctx context.Context, name string, data interface{}, meta ModelMetadata) (int, error) {
	latest, _ := s.GetLatestVersion(name)
	version := latest + 1
	if err := s.Save(ctx, name, version, data, meta); err != nil {
		return 0, err
	}
	return version, nil
}

// Load loads a model by name and version into target.
// If version is 0, loads the latest version.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrModelNotFound)
		}
	}

	sf, err := s.readStoredFile(s.modelPath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s v%d: %w", name, version, ErrModelNotFound)
		}
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	return &sf.Metadata, nil
}

func (s *Store) readStoredFile(filename string) (*storedFile, error) {
	f, err := os.Open(filename) //nolint:gosec // filename is constructed from trusted name parameter
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns metadata for the latest version of every stored model, sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]ModelMetadata, 0, len(s.versions))
	for name, version := range s.versions {
		sf, err := s.readStoredFile(s.modelPath(name, version))
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Prune removes old model versions, keeping only the latest keepVersions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	found, err := s.listVersions()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	versions := found[name]
	for i := keepVersions; i < len(versions); i++ {
		_ = os.Remove(s.modelPath(name, versions[i])) //nolint:errcheck // best-effort cleanup of old versions
	}
	return nil
}

// modelPath returns the file path for a model.
func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, modelExt))
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(ScalerState{})
	gob.Register(KMeansState{})
	gob.Register(ModelMetadata{})
	gob.Register(storedFile{})
}
