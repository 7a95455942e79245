// ABOUTME: Builds downloadable ZIP archives for completed orders
// ABOUTME: Bundles each order item's design document with its uploaded assets

package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/2389/studio-gateway/internal/assets"
	"github.com/2389/studio-gateway/internal/upstream"
)

// DesignFetcher retrieves a stored design document from the platform.
type DesignFetcher interface {
	FetchDesign(ctx context.Context, designID string) (*upstream.DesignDocument, error)
}

// AssetOpener yields stored asset blobs by kind and ID.
type AssetOpener interface {
	Open(kind, id string) (*assets.Meta, io.ReadCloser, error)
}

// Builder assembles order archives.
type Builder struct {
	designs DesignFetcher
	assets  AssetOpener
	logger  *slog.Logger
}

// NewBuilder creates an archive builder.
func NewBuilder(designs DesignFetcher, assetStore AssetOpener, logger *slog.Logger) *Builder {
	return &Builder{
		designs: designs,
		assets:  assetStore,
		logger:  logger.With("component", "archive"),
	}
}

// WriteOrder streams a ZIP of the order's designs and assets to w. Each
// item contributes a design JSON file plus its referenced upload blobs.
// Missing assets are logged and skipped rather than failing the archive;
// a missing design document fails the whole build.
func (b *Builder) WriteOrder(ctx context.Context, w io.Writer, order *upstream.Order) error {
	zw := zip.NewWriter(w)

	for i, item := range order.Items {
		prefix := fmt.Sprintf("item-%d", i+1)

		if item.DesignID != "" {
			if err := b.addDesign(ctx, zw, prefix, item.DesignID); err != nil {
				zw.Close()
				return err
			}
		}

		for _, assetID := range item.AssetIDs {
			if err := b.addAsset(zw, prefix, assetID); err != nil {
				b.logger.Warn("skipping missing order asset",
					"order_id", order.ID,
					"asset_id", assetID,
					"error", err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func (b *Builder) addDesign(ctx context.Context, zw *zip.Writer, prefix, designID string) error {
	doc, err := b.designs.FetchDesign(ctx, designID)
	if err != nil {
		return fmt.Errorf("fetching design %s: %w", designID, err)
	}

	f, err := zw.Create(fmt.Sprintf("%s/design-%s.json", prefix, designID))
	if err != nil {
		return fmt.Errorf("creating design entry: %w", err)
	}

	data, err := json.MarshalIndent(doc.Data, "", "  ")
	if err != nil {
		// Raw document bytes still make a usable archive entry.
		data = doc.Data
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing design entry: %w", err)
	}
	return nil
}

func (b *Builder) addAsset(zw *zip.Writer, prefix, assetID string) error {
	meta, rc, err := b.assets.Open(assets.KindUpload, assetID)
	if err != nil {
		return err
	}
	defer rc.Close()

	name := meta.Name
	if name == "" {
		name = meta.ID
	}
	f, err := zw.Create(fmt.Sprintf("%s/assets/%s", prefix, name))
	if err != nil {
		return fmt.Errorf("creating asset entry: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("writing asset entry: %w", err)
	}
	return nil
}
