// ABOUTME: Tests for order archive assembly
// ABOUTME: Covers zip structure, missing-asset skipping, and design fetch failures

package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/studio-gateway/internal/assets"
	"github.com/2389/studio-gateway/internal/upstream"
)

type fakeDesigns struct {
	docs map[string]json.RawMessage
}

func (f *fakeDesigns) FetchDesign(_ context.Context, id string) (*upstream.DesignDocument, error) {
	data, ok := f.docs[id]
	if !ok {
		return nil, upstream.ErrRejected
	}
	return &upstream.DesignDocument{ID: id, Data: data}, nil
}

type fakeAssets struct {
	blobs map[string]string
}

func (f *fakeAssets) Open(kind, id string) (*assets.Meta, io.ReadCloser, error) {
	content, ok := f.blobs[id]
	if !ok {
		return nil, nil, assets.ErrNotFound
	}
	meta := &assets.Meta{ID: id, Kind: kind, Name: id + ".png"}
	return meta, io.NopCloser(strings.NewReader(content)), nil
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(content)
	}
	return out
}

func TestBuilder_WriteOrder(t *testing.T) {
	designs := &fakeDesigns{docs: map[string]json.RawMessage{
		"d1": json.RawMessage(`{"layers":[{"type":"text","value":"hello"}]}`),
	}}
	blobs := &fakeAssets{blobs: map[string]string{"a1": "png-bytes", "a2": "more-bytes"}}

	b := NewBuilder(designs, blobs, slog.Default())

	order := &upstream.Order{
		ID:     "1001",
		Number: "WEB-1001",
		Items: []upstream.OrderItem{
			{ProductID: "42", Quantity: 2, DesignID: "d1", AssetIDs: []string{"a1", "a2"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, b.WriteOrder(context.Background(), &buf, order))

	files := readZip(t, buf.Bytes())
	assert.Len(t, files, 3)
	assert.Contains(t, files, "item-1/design-d1.json")
	assert.Equal(t, "png-bytes", files["item-1/assets/a1.png"])
	assert.Equal(t, "more-bytes", files["item-1/assets/a2.png"])
	assert.Contains(t, files["item-1/design-d1.json"], `"hello"`)
}

func TestBuilder_SkipsMissingAssets(t *testing.T) {
	designs := &fakeDesigns{docs: map[string]json.RawMessage{"d1": json.RawMessage(`{}`)}}
	blobs := &fakeAssets{blobs: map[string]string{"a1": "present"}}

	b := NewBuilder(designs, blobs, slog.Default())
	order := &upstream.Order{
		ID: "1002",
		Items: []upstream.OrderItem{
			{DesignID: "d1", AssetIDs: []string{"a1", "gone"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, b.WriteOrder(context.Background(), &buf, order))

	files := readZip(t, buf.Bytes())
	assert.Len(t, files, 2)
	assert.Contains(t, files, "item-1/assets/a1.png")
}

func TestBuilder_MissingDesignFails(t *testing.T) {
	b := NewBuilder(&fakeDesigns{}, &fakeAssets{}, slog.Default())
	order := &upstream.Order{
		ID:    "1003",
		Items: []upstream.OrderItem{{DesignID: "nope"}},
	}

	var buf bytes.Buffer
	err := b.WriteOrder(context.Background(), &buf, order)
	assert.True(t, errors.Is(err, upstream.ErrRejected))
}

func TestBuilder_MultipleItems(t *testing.T) {
	designs := &fakeDesigns{docs: map[string]json.RawMessage{
		"d1": json.RawMessage(`{"a":1}`),
		"d2": json.RawMessage(`{"b":2}`),
	}}
	b := NewBuilder(designs, &fakeAssets{}, slog.Default())

	order := &upstream.Order{
		ID: "1004",
		Items: []upstream.OrderItem{
			{DesignID: "d1"},
			{DesignID: "d2"},
			{}, // no design, no assets
		},
	}

	var buf bytes.Buffer
	require.NoError(t, b.WriteOrder(context.Background(), &buf, order))

	files := readZip(t, buf.Bytes())
	assert.Contains(t, files, "item-1/design-d1.json")
	assert.Contains(t, files, "item-2/design-d2.json")
	assert.Len(t, files, 2)
}
