// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert rewrites comma-separated data files as tab-separated files.
package convert

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("no columns to parse from file")

const utf8BOM = "\ufeff"

// CSVToTSV reads comma-separated records from r and writes them to w with
// tab delimiters. The header and row order are preserved and field values
// are written unchanged. Rows shorter than the header are padded with empty
// fields; longer rows are an error. Quotes inside unquoted fields are read
// literally. It returns the number of data rows written, header excluded.
func CSVToTSV(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	bw := bufio.NewWriter(w)

	header, err := cr.Read()
	if err == io.EOF {
		return 0, ErrEmpty
	}
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	width := len(header)
	if err := writeRecord(bw, header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading row %d: %w", rows+1, err)
		}
		if len(rec) > width {
			line, _ := cr.FieldPos(0)
			return rows, fmt.Errorf("reading row %d: record on line %d: %w (expected %d, saw %d)",
				rows+1, line, csv.ErrFieldCount, width, len(rec))
		}
		for len(rec) < width {
			rec = append(rec, "")
		}
		if err := writeRecord(bw, rec); err != nil {
			return rows, fmt.Errorf("writing row %d: %w", rows+1, err)
		}
		rows++
	}

	if err := bw.Flush(); err != nil {
		return rows, fmt.Errorf("flushing output: %w", err)
	}
	return rows, nil
}

// writeRecord writes fields joined by tabs. A field is quoted only when it
// contains a tab, a double quote, or a line break; embedded quotes are doubled.
func writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte('\t')
		}
		if strings.ContainsAny(f, "\t\"\r\n") {
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(f, `"`, `""`))
			w.WriteByte('"')
			continue
		}
		w.WriteString(f)
	}
	_, err := w.WriteString("\n")
	return err
}

// FileToTSV converts the CSV file at csvPath into a TSV file at tsvPath.
// Output goes to a temporary file in the destination directory that is
// renamed over tsvPath on success, so a failed conversion leaves any
// previous output intact.
func FileToTSV(csvPath, tsvPath string) (int, error) {
	in, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("opening data file: %w", err)
	}
	defer in.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(tsvPath), ".convert-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	rows, convErr := CSVToTSV(in, tmpFile)
	closeErr := tmpFile.Close()
	if convErr != nil {
		os.Remove(tmpPath)
		return rows, fmt.Errorf("converting %s: %w", filepath.Base(csvPath), convErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return rows, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, tsvPath); err != nil {
		os.Remove(tmpPath)
		return rows, fmt.Errorf("renaming temp file: %w", err)
	}
	return rows, nil
}
