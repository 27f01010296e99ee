package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"productshot/internal/domain"
	"productshot/pkg/zip"
)

// ManifestName is the index written next to the view images.
const ManifestName = "result.json"

type manifest struct {
	IdentifiedProduct string         `json:"identifiedProduct"`
	Views             []manifestView `json:"views"`
}

type manifestView struct {
	Original  string `json:"original"`
	Segmented string `json:"segmented"`
	Enhanced  string `json:"enhanced"`
}

// ViewAssets lays out processed views as named files: one original,
// segmented and enhanced image per view, plus a JSON manifest.
func ViewAssets(data *domain.ProcessedData) ([]zip.Asset, error) {
	if data == nil {
		return nil, fmt.Errorf("storage: no processed data")
	}
	assets := make([]zip.Asset, 0, len(data.GeneratedViews)*3+1)
	index := manifest{IdentifiedProduct: data.IdentifiedProduct, Views: make([]manifestView, 0, len(data.GeneratedViews))}
	for i, view := range data.GeneratedViews {
		original := imageAsset(i, "original", view.OriginalFrame)
		segmented := imageAsset(i, "segmented", view.SegmentedImage)
		enhanced := imageAsset(i, "enhanced", view.EnhancedImage)
		assets = append(assets, original, segmented, enhanced)
		index.Views = append(index.Views, manifestView{
			Original:  original.Filename,
			Segmented: segmented.Filename,
			Enhanced:  enhanced.Filename,
		})
	}
	raw, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode manifest: %w", err)
	}
	assets = append(assets, zip.Asset{Filename: ManifestName, MIME: "application/json", Data: raw})
	return assets, nil
}

// WriteAssets stores every asset under prefix and returns the written keys.
func (s *FileStore) WriteAssets(ctx context.Context, prefix string, assets []zip.Asset) ([]string, error) {
	keys := make([]string, 0, len(assets))
	for _, asset := range assets {
		key := asset.Filename
		if prefix != "" {
			key = prefix + "/" + key
		}
		written, err := s.Write(ctx, key, asset.Data)
		if err != nil {
			return keys, err
		}
		keys = append(keys, written)
	}
	return keys, nil
}

func imageAsset(i int, kind string, data []byte) zip.Asset {
	mime := http.DetectContentType(data)
	return zip.Asset{
		Filename: fmt.Sprintf("view_%02d_%s%s", i+1, kind, extensionFor(mime)),
		MIME:     mime,
		Data:     data,
	}
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
