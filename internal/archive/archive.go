// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive downloads dataset archives and unpacks them into the
// output directory.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/gpreg/internal/httputil"
)

// DataFileExt is the extension of the tabular file expected inside each archive.
const DataFileExt = ".csv"

// ErrUnsafePath is returned for archive entries that would be written
// outside the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination directory")

// DataFileError reports that the data file derived from the archive name is
// not among the archive's entries.
type DataFileError struct {
	Expected string
	Entries  []string
}

func (e *DataFileError) Error() string {
	if len(e.Entries) == 0 {
		return fmt.Sprintf("expected data file %s, archive is empty", e.Expected)
	}
	return fmt.Sprintf("expected data file %s, archive contains: %s",
		e.Expected, strings.Join(e.Entries, ", "))
}

// Download fetches the archive at archiveURL into memory. The request is sent
// without any extra headers.
func Download(ctx context.Context, client *http.Client, archiveURL string) ([]byte, error) {
	resp, err := httputil.Get(ctx, client, archiveURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading archive body: %w", err)
	}
	return data, nil
}

// Extract writes every entry of the zip archive in data into destDir and
// returns the entry names of the extracted files in archive order.
// Directories inside the archive are created as needed. Existing files are
// overwritten.
func Extract(data []byte, destDir string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	var files []string
	for _, f := range zr.File {
		target, err := entryPath(destDir, f.Name)
		if err != nil {
			return files, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("creating directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return files, fmt.Errorf("creating directory %s: %w", filepath.Dir(target), err)
		}
		if err := extractFile(f, target); err != nil {
			return files, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		files = append(files, f.Name)
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, rc)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

// entryPath maps an archive entry name to a path under destDir.
func entryPath(destDir, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(destDir, filepath.FromSlash(clean)), nil
}

// ExpectedDataFile derives the data file name from the archive URL: the last
// path segment with its extension replaced by DataFileExt.
func ExpectedDataFile(archiveURL string) (string, error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return "", fmt.Errorf("parsing archive URL: %w", err)
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "", fmt.Errorf("archive URL %s has no file name", archiveURL)
	}
	return strings.TrimSuffix(base, path.Ext(base)) + DataFileExt, nil
}

// ResolveDataFile returns the entry whose base name is expected. When no
// entry matches, a *DataFileError lists the actual entries.
func ResolveDataFile(expected string, entries []string) (string, error) {
	for _, e := range entries {
		if path.Base(strings.ReplaceAll(e, `\`, "/")) == expected {
			return e, nil
		}
	}
	return "", &DataFileError{Expected: expected, Entries: entries}
}
