// Package zip bundles in-memory files into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// Write streams assets into w as a zip archive. Entries keep the given order
// and carry modTime so identical inputs yield identical archives.
func Write(w io.Writer, assets []Asset, modTime time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if asset.Filename == "" {
			return errors.New("zip: asset filename is required")
		}
		if _, dup := seen[asset.Filename]; dup {
			return fmt.Errorf("zip: duplicate entry %q", asset.Filename)
		}
		seen[asset.Filename] = struct{}{}

		header := &zip.FileHeader{Name: asset.Filename, Method: zip.Deflate, Modified: modTime}
		if isCompressed(asset.MIME) {
			header.Method = zip.Store
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

// ArchiveAssets returns the archive of assets as bytes.
func ArchiveAssets(assets []Asset, modTime time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Write(buf, assets, modTime); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isCompressed(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/webp", "application/zip":
		return true
	}
	return false
}
