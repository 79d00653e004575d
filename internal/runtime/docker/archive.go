package docker

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"time"
)

// unitArchive packs the composed unit as a single world-readable file so the
// non-root sandbox user can read it.
func unitArchive(name, source string, modTime time.Time) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(source)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return nil, fmt.Errorf("write unit header: %w", err)
	}
	if _, err := io.WriteString(tw, source); err != nil {
		return nil, fmt.Errorf("write unit: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close unit archive: %w", err)
	}

	return &buf, nil
}
