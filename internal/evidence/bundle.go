package evidence

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/linnemanlabs/incidentd/internal/incident"
)

// Manifest describes a bundle for the consuming agent.
type Manifest struct {
	IncidentID string    `json:"incidentId"`
	Trigger    string    `json:"trigger"`
	StartsAt   time.Time `json:"startsAt"`
	Timestamp  time.Time `json:"timestamp"`
}

// BundleResult locates the produced archive.
type BundleResult struct {
	Dir          string
	ArchivePath  string
	ManifestPath string
}

// Bundle adds a manifest to an existing evidence directory and produces a
// gzip-compressed tar archive of it at <dir>.tar.gz. The bundle is the
// agent's only input, so any failure here is fatal to the run.
func Bundle(dir string, inc *incident.Incident) (*BundleResult, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	manifest := Manifest{
		IncidentID: inc.ID,
		Trigger:    string(inc.Trigger),
		StartsAt:   inc.StartsAt,
		Timestamp:  time.Now().UTC(),
	}
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	archivePath := dir + ".tar.gz"
	if err := archiveDir(dir, archivePath); err != nil {
		return nil, fmt.Errorf("create evidence archive: %w", err)
	}

	return &BundleResult{
		Dir:          dir,
		ArchivePath:  archivePath,
		ManifestPath: manifestPath,
	}, nil
}

// archiveDir writes a tar.gz of dir. Entries are prefixed with the
// directory's base name so the archive unpacks into a single folder.
func archiveDir(dir, archivePath string) error {
	out, err := os.Create(archivePath) //nolint:gosec // G304: path derived from the run's own working dir
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	prefix := filepath.Base(dir)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(prefix, rel))

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path) //nolint:gosec // G304: walking the run's own working dir
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		_ = f.Close()
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
