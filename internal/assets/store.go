// ABOUTME: Flat-file asset store for uploads, fonts, clipart, and templates
// ABOUTME: Each asset is a blob plus a JSON metadata sidecar under <dir>/<kind>/

package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Asset kinds. Each kind gets its own subdirectory.
const (
	KindUpload   = "upload"
	KindFont     = "font"
	KindClipart  = "clipart"
	KindTemplate = "template"
)

// Store errors
var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidKind = errors.New("invalid asset kind")
	ErrInvalidID   = errors.New("invalid asset id")
)

var validKinds = map[string]bool{
	KindUpload:   true,
	KindFont:     true,
	KindClipart:  true,
	KindTemplate: true,
}

// Meta describes one stored asset. It lives next to the blob as <id>.json.
type Meta struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store keeps asset blobs on the local filesystem.
type Store struct {
	dir string
}

// NewStore opens the asset store rooted at dir, creating the per-kind
// subdirectories if they are missing.
func NewStore(dir string) (*Store, error) {
	for kind := range validKinds {
		if err := os.MkdirAll(filepath.Join(dir, kind), 0755); err != nil {
			return nil, fmt.Errorf("creating asset directory for %s: %w", kind, err)
		}
	}
	return &Store{dir: dir}, nil
}

// ValidKind reports whether kind names a known asset category.
func ValidKind(kind string) bool {
	return validKinds[kind]
}

// checkID rejects IDs that could escape the store directory. Stored IDs are
// always UUIDs, but lookups take the ID from the URL path.
func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}

// Save stores a new asset and returns its metadata. The content type is
// sniffed from the first bytes when the caller does not supply one.
func (s *Store) Save(kind, name, contentType string, r io.Reader) (*Meta, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}

	id := uuid.New().String()
	blobPath := filepath.Join(s.dir, kind, id)

	f, err := os.Create(blobPath)
	if err != nil {
		return nil, fmt.Errorf("creating asset blob: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		os.Remove(blobPath)
		return nil, fmt.Errorf("reading asset content: %w", err)
	}
	head = head[:n]

	if contentType == "" {
		contentType = http.DetectContentType(head)
	}

	written, err := f.Write(head)
	if err == nil {
		var rest int64
		rest, err = io.Copy(f, r)
		written += int(rest)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(blobPath)
		return nil, fmt.Errorf("writing asset blob: %w", err)
	}

	meta := &Meta{
		ID:          id,
		Kind:        kind,
		Name:        name,
		ContentType: contentType,
		Size:        int64(written),
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.writeMeta(meta); err != nil {
		os.Remove(blobPath)
		return nil, err
	}
	return meta, nil
}

func (s *Store) writeMeta(meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding asset metadata: %w", err)
	}
	path := filepath.Join(s.dir, meta.Kind, meta.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing asset metadata: %w", err)
	}
	return nil
}

// Get returns the metadata for one asset.
func (s *Store) Get(kind, id string) (*Meta, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, kind, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset metadata: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding asset metadata: %w", err)
	}
	return &meta, nil
}

// Open returns the metadata and an open reader for one asset blob. The
// caller owns closing the reader.
func (s *Store) Open(kind, id string) (*Meta, io.ReadCloser, error) {
	meta, err := s.Get(kind, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, kind, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening asset blob: %w", err)
	}
	return meta, f, nil
}

// List returns the metadata of every asset of one kind.
func (s *Store) List(kind string) ([]*Meta, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	var out []*Meta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		meta, err := s.Get(kind, id)
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

// Delete removes one asset's blob and metadata.
func (s *Store) Delete(kind, id string) error {
	if !ValidKind(kind) {
		return ErrInvalidKind
	}
	if err := checkID(id); err != nil {
		return err
	}

	metaPath := filepath.Join(s.dir, kind, id+".json")
	if _, err := os.Stat(metaPath); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}

	if err := os.Remove(metaPath); err != nil {
		return fmt.Errorf("removing asset metadata: %w", err)
	}
	if err := os.Remove(filepath.Join(s.dir, kind, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing asset blob: %w", err)
	}
	return nil
}
