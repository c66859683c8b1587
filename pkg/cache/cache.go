// Package cache stores computed distance fields on disk so that later runs
// over the same surfaces can skip the computation.
//
// Entries are legacy VTK polydata files whose title line carries a content
// key. A file with a different key is stale and gets recomputed.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"kneescan/internal/models"
	"kneescan/pkg/vtkio"
)

// DefaultPath is where the distance field is cached when nothing else is configured
const DefaultPath = "./distanceFilter.vtk"

const titlePrefix = "kneescan distance key="

// Status describes the outcome of a cache lookup
type Status int

const (
	// Miss means no cache file exists
	Miss Status = iota
	// Stale means a cache file exists but was built from other inputs
	Stale
	// Hit means the cached field matches the key
	Hit
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Hasher builds a content key from meshes and parameters
type Hasher struct {
	h   hash.Hash
	buf [8]byte
}

// NewHasher returns a Hasher seeded with a format tag
func NewHasher(tag string) *Hasher {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with an oversized MAC key
		panic(err)
	}
	k := &Hasher{h: h}
	k.String(tag)
	return k
}

// Int adds an integer to the key
func (k *Hasher) Int(v int) *Hasher {
	binary.LittleEndian.PutUint64(k.buf[:], uint64(v))
	k.h.Write(k.buf[:])
	return k
}

// Float adds a float to the key
func (k *Hasher) Float(v float64) *Hasher {
	binary.LittleEndian.PutUint64(k.buf[:], math.Float64bits(v))
	k.h.Write(k.buf[:])
	return k
}

// Bool adds a flag to the key
func (k *Hasher) Bool(v bool) *Hasher {
	if v {
		return k.Int(1)
	}
	return k.Int(0)
}

// String adds a length-prefixed string to the key
func (k *Hasher) String(s string) *Hasher {
	k.Int(len(s))
	k.h.Write([]byte(s))
	return k
}

// Mesh adds the geometry and topology of m to the key
func (k *Hasher) Mesh(m *models.Mesh) *Hasher {
	if m == nil {
		m = &models.Mesh{}
	}
	k.Int(len(m.Points))
	for _, p := range m.Points {
		k.Float(p.X).Float(p.Y).Float(p.Z)
	}
	k.Int(len(m.Triangles))
	for _, t := range m.Triangles {
		k.Int(t[0]).Int(t[1]).Int(t[2])
	}
	return k
}

// Sum returns the hex encoded key
func (k *Hasher) Sum() string {
	return hex.EncodeToString(k.h.Sum(nil))
}

// DistanceKey derives the cache key of a distance field from its inputs.
// The core count does not change the result and is left out.
func DistanceKey(bone, skin *models.Mesh, neighbors int, signed bool) string {
	return NewHasher("distance/v1").
		Mesh(bone).
		Mesh(skin).
		Int(neighbors).
		Bool(signed).
		Sum()
}

// Store is a single-entry cache file
type Store struct {
	// Path is the cache file location
	Path string

	// Verbose enables progress messages
	Verbose bool
}

// NewStore returns a Store at path, or at DefaultPath when path is empty
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Load returns the cached mesh when the file exists and was written for key.
// A missing or stale file is not an error; a corrupt one is.
func (s *Store) Load(key string) (*models.Mesh, Status, error) {
	mesh, title, err := vtkio.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Miss, nil
	}
	if err != nil {
		return nil, Miss, fmt.Errorf("failed to read cache %s: %w", s.Path, err)
	}

	stored, ok := strings.CutPrefix(title, titlePrefix)
	if !ok || stored != key || len(mesh.Scalars) != len(mesh.Points) {
		return nil, Stale, nil
	}
	return mesh, Hit, nil
}

// Save writes mesh under key. The file is written next to Path and renamed
// into place so readers never see a partial entry.
func (s *Store) Save(key string, mesh *models.Mesh) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if err := vtkio.Write(tmp, mesh, titlePrefix+key); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move cache into place: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached mesh for key, or runs compute and stores
// its result. A failed save is reported as a warning and the computed mesh is
// still returned.
func (s *Store) GetOrCompute(key string, compute func() (*models.Mesh, error)) (*models.Mesh, Status, error) {
	mesh, status, err := s.Load(key)
	if err != nil {
		fmt.Printf("Warning: ignoring unreadable cache: %v\n", err)
		status = Stale
	}
	if status == Hit {
		if s.Verbose {
			fmt.Printf("Loaded distance field from %s\n", s.Path)
		}
		return mesh, status, nil
	}

	if s.Verbose {
		if status == Stale {
			fmt.Printf("Cache %s is stale, recomputing distance field\n", s.Path)
		} else {
			fmt.Printf("No cache at %s, computing distance field\n", s.Path)
		}
	}

	mesh, err = compute()
	if err != nil {
		return nil, status, err
	}
	if err := s.Save(key, mesh); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	return mesh, status, nil
}
