// Package zip bundles generated video clips into a single archive for
// batch download.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Clip is one finished video to include in an archive.
type Clip struct {
	Filename string
	Data     []byte
}

// ArchiveClips packs the clips into a zip archive, in order. Duplicate
// filenames are disambiguated so no clip silently overwrites another.
func ArchiveClips(clips []Clip) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	seen := map[string]int{}
	for _, clip := range clips {
		name := clip.Filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d-%s", n, name)
		}
		seen[clip.Filename]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %s: %w", name, err)
		}
		if _, err := w.Write(clip.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close archive: %w", err)
	}
	return buf.Bytes(), nil
}
