// ABOUTME: JSON-file lookup tables for product design settings and named links
// ABOUTME: In-memory maps persisted atomically via temp-file rename

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Catalog errors
var (
	ErrProductNotFound = errors.New("product settings not found")
	ErrLinkNotFound    = errors.New("link not found")
)

// ProductSettings are the studio-side design settings attached to one
// platform product: which surfaces are printable, canvas dimensions, and an
// opaque options blob the browser client owns.
type ProductSettings struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	CanvasW   int             `json:"canvas_w"`
	CanvasH   int             `json:"canvas_h"`
	Options   json.RawMessage `json:"options,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Link is a named shareable link to a stored design.
type Link struct {
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog holds the two lookup tables. All access is guarded by a single
// RWMutex; mutations rewrite the backing JSON file before returning.
type Catalog struct {
	dir string

	mu       sync.RWMutex
	products map[string]*ProductSettings
	links    map[string]*Link
}

const (
	productsFile = "products.json"
	linksFile    = "links.json"
)

// Open loads the catalog from dir, creating it (and empty tables) if needed.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	c := &Catalog{
		dir:      dir,
		products: make(map[string]*ProductSettings),
		links:    make(map[string]*Link),
	}

	if err := loadTable(filepath.Join(dir, productsFile), &c.products); err != nil {
		return nil, fmt.Errorf("loading products table: %w", err)
	}
	if err := loadTable(filepath.Join(dir, linksFile), &c.links); err != nil {
		return nil, fmt.Errorf("loading links table: %w", err)
	}
	return c, nil
}

// loadTable reads a JSON table from disk into out. A missing file is an
// empty table, not an error.
func loadTable[T any](path string, out *map[string]*T) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// saveTable writes a JSON table atomically: marshal to a temp file in the
// same directory, then rename over the target.
func saveTable[T any](path string, table map[string]*T) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing table file: %w", err)
	}
	return nil
}

// GetProduct returns the settings for one product.
func (c *Catalog) GetProduct(productID string) (*ProductSettings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProducts returns all product settings.
func (c *Catalog) ListProducts() []*ProductSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*ProductSettings, 0, len(c.products))
	for _, p := range c.products {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// PutProduct inserts or replaces the settings for one product and persists
// the table.
func (c *Catalog) PutProduct(settings *ProductSettings) error {
	if settings.ProductID == "" {
		return errors.New("product_id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *settings
	cp.UpdatedAt = time.Now().UTC()
	c.products[cp.ProductID] = &cp
	return saveTable(filepath.Join(c.dir, productsFile), c.products)
}

// DeleteProduct removes the settings for one product and persists the table.
func (c *Catalog) DeleteProduct(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[productID]; !ok {
		return ErrProductNotFound
	}
	delete(c.products, productID)
	return saveTable(filepath.Join(c.dir, productsFile), c.products)
}

// GetLink returns one named link.
func (c *Catalog) GetLink(name string) (*Link, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.links[name]
	if !ok {
		return nil, ErrLinkNotFound
	}
	cp := *l
	return &cp, nil
}

// ListLinks returns all named links.
func (c *Catalog) ListLinks() []*Link {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Link, 0, len(c.links))
	for _, l := range c.links {
		cp := *l
		out = append(out, &cp)
	}
	return out
}

// PutLink inserts or replaces a named link and persists the table.
func (c *Catalog) PutLink(link *Link) error {
	if link.Name == "" || link.Target == "" {
		return errors.New("name and target are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *link
	cp.CreatedAt = time.Now().UTC()
	c.links[cp.Name] = &cp
	return saveTable(filepath.Join(c.dir, linksFile), c.links)
}

// DeleteLink removes a named link and persists the table.
func (c *Catalog) DeleteLink(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.links[name]; !ok {
		return ErrLinkNotFound
	}
	delete(c.links, name)
	return saveTable(filepath.Join(c.dir, linksFile), c.links)
}
