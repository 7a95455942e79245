// ABOUTME: Tests for the catalog lookup tables
// ABOUTME: Covers CRUD, persistence across reopen, and atomic file replacement

package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ProductCRUD(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = c.GetProduct("42")
	assert.ErrorIs(t, err, ErrProductNotFound)

	err = c.PutProduct(&ProductSettings{
		ProductID: "42",
		Name:      "Classic Tee",
		Enabled:   true,
		CanvasW:   1200,
		CanvasH:   1600,
		Options:   json.RawMessage(`{"surfaces":["front","back"]}`),
	})
	require.NoError(t, err)

	got, err := c.GetProduct("42")
	require.NoError(t, err)
	assert.Equal(t, "Classic Tee", got.Name)
	assert.True(t, got.Enabled)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, c.DeleteProduct("42"))
	_, err = c.GetProduct("42")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, c.DeleteProduct("42"), ErrProductNotFound)
}

func TestCatalog_PutProductRequiresID(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, c.PutProduct(&ProductSettings{Name: "nameless"}))
}

func TestCatalog_LinkCRUD(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = c.GetLink("summer-sale")
	assert.ErrorIs(t, err, ErrLinkNotFound)

	require.NoError(t, c.PutLink(&Link{Name: "summer-sale", Target: "/designs/abc123"}))

	got, err := c.GetLink("summer-sale")
	require.NoError(t, err)
	assert.Equal(t, "/designs/abc123", got.Target)
	assert.False(t, got.CreatedAt.IsZero())

	assert.Len(t, c.ListLinks(), 1)

	require.NoError(t, c.DeleteLink("summer-sale"))
	assert.ErrorIs(t, c.DeleteLink("summer-sale"), ErrLinkNotFound)
}

func TestCatalog_PutLinkRequiresNameAndTarget(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, c.PutLink(&Link{Name: "no-target"}))
	assert.Error(t, c.PutLink(&Link{Target: "/no-name"}))
}

func TestCatalog_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.PutProduct(&ProductSettings{ProductID: "7", Name: "Mug"}))
	require.NoError(t, c.PutLink(&Link{Name: "front-page", Target: "/designs/xyz"}))

	reopened, err := Open(dir)
	require.NoError(t, err)

	got, err := reopened.GetProduct("7")
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Name)

	link, err := reopened.GetLink("front-page")
	require.NoError(t, err)
	assert.Equal(t, "/designs/xyz", link.Target)
}

func TestCatalog_ListProductsReturnsCopies(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.PutProduct(&ProductSettings{ProductID: "1", Name: "Poster"}))

	list := c.ListProducts()
	require.Len(t, list, 1)
	list[0].Name = "mutated"

	got, err := c.GetProduct("1")
	require.NoError(t, err)
	assert.Equal(t, "Poster", got.Name)
}

func TestCatalog_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.PutProduct(&ProductSettings{ProductID: "1", Name: "Sticker"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".catalog-", "temp file %s left behind", filepath.Join(dir, e.Name()))
	}
}

func TestCatalog_RejectsCorruptTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, productsFile), []byte("{not json"), 0644))

	_, err := Open(dir)
	assert.Error(t, err)
}
