// Package archive locates the input case archive and unpacks it into
// the working directory.
package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoArchive reports that the input directory holds no archive.
var ErrNoArchive = eris.New("archive: no input archive found")

// ErrAmbiguousArchive reports multiple candidate archives with no
// selection rule to pick one.
var ErrAmbiguousArchive = eris.New("archive: multiple candidate archives")

// Find returns the single ZIP archive in dataDir.
func Find(dataDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "*.zip"))
	if err != nil {
		return "", eris.Wrapf(err, "archive: scan %s", dataDir)
	}
	switch len(matches) {
	case 0:
		return "", eris.Wrapf(ErrNoArchive, "in %s", dataDir)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", eris.Wrapf(ErrAmbiguousArchive, "in %s: %s", dataDir, strings.Join(matches, ", "))
	}
}

// Extract unpacks the archive into extractDir and returns the markup
// file paths found, sorted. Any prior extraction contents are cleared
// first so stale files never leak into the run.
func Extract(zipPath, extractDir string) ([]string, error) {
	if err := os.RemoveAll(extractDir); err != nil {
		return nil, eris.Wrapf(err, "archive: clear %s", extractDir)
	}
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "archive: create %s", extractDir)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "archive: open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if err := extractEntry(f, extractDir); err != nil {
			return nil, err
		}
	}

	return markupFiles(extractDir)
}

// extractEntry writes a single zip entry under destDir.
func extractEntry(f *zip.File, destDir string) error {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return eris.Errorf("archive: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		return eris.Wrap(os.MkdirAll(destPath, 0o755), "archive: create directory")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return eris.Wrap(err, "archive: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return eris.Wrap(err, "archive: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return eris.Wrap(err, "archive: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return eris.Wrap(err, "archive: write file")
	}

	return nil
}

// markupFiles walks extractDir recursively for .xml files.
func markupFiles(extractDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(extractDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "archive: walk %s", extractDir)
	}
	sort.Strings(files)
	return files, nil
}
