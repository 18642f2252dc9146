// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVToTSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantRows int
	}{
		{
			name:     "simple",
			input:    "code,value\nA,1\nB,2\n",
			want:     "code\tvalue\nA\t1\nB\t2\n",
			wantRows: 2,
		},
		{
			name:     "header only",
			input:    "code,value\n",
			want:     "code\tvalue\n",
			wantRows: 0,
		},
		{
			name:     "crlf input and no trailing newline",
			input:    "code,value\r\nA,1\r\nB,2",
			want:     "code\tvalue\nA\t1\nB\t2\n",
			wantRows: 2,
		},
		{
			name:     "quoted comma becomes plain field",
			input:    "name,count\n\"Smith, J\",3\n",
			want:     "name\tcount\nSmith, J\t3\n",
			wantRows: 1,
		},
		{
			name:     "field containing a tab is quoted",
			input:    "name,count\n\"a\tb\",3\n",
			want:     "name\tcount\n\"a\tb\"\t3\n",
			wantRows: 1,
		},
		{
			name:     "byte order mark stripped",
			input:    "\ufeffPUBLICATION,EXTRACT_DATE\nGP_PRAC_PAT_LIST,01JAN2024\n",
			want:     "PUBLICATION\tEXTRACT_DATE\nGP_PRAC_PAT_LIST\t01JAN2024\n",
			wantRows: 1,
		},
		{
			name:     "leading spaces kept unquoted",
			input:    "code, value\nA, 1\n",
			want:     "code\t value\nA\t 1\n",
			wantRows: 1,
		},
		{
			name:     "quote inside unquoted field read literally",
			input:    "name,count\nO\"Brien,3\n",
			want:     "name\tcount\n\"O\"\"Brien\"\t3\n",
			wantRows: 1,
		},
		{
			name:     "short row padded",
			input:    "a,b,c\n1\n4,5,6\n",
			want:     "a\tb\tc\n1\t\t\n4\t5\t6\n",
			wantRows: 2,
		},
		{
			name:     "quoted newline kept",
			input:    "a,b\n\"x\ny\",2\n",
			want:     "a\tb\n\"x\ny\"\t2\n",
			wantRows: 1,
		},
		{
			name:     "empty fields kept",
			input:    "a,b,c\n1,,3\n",
			want:     "a\tb\tc\n1\t\t3\n",
			wantRows: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rows, err := CSVToTSV(strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, rows)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestCSVToTSV_PreservesOrderAndShape(t *testing.T) {
	var in strings.Builder
	in.WriteString("ORG_CODE,SEX,AGE,NUMBER_OF_PATIENTS\n")
	for i := 0; i < 100; i++ {
		in.WriteString("Y" + strings.Repeat("0", 3) + string(rune('A'+i%26)) + ",MALE," + string(rune('0'+i%10)) + ",42\n")
	}

	var out bytes.Buffer
	rows, err := CSVToTSV(strings.NewReader(in.String()), &out)
	require.NoError(t, err)
	assert.Equal(t, 100, rows)

	inRecs, err := csv.NewReader(strings.NewReader(in.String())).ReadAll()
	require.NoError(t, err)

	tr := csv.NewReader(&out)
	tr.Comma = '\t'
	outRecs, err := tr.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, inRecs, outRecs)
}

func TestCSVToTSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty input",
			input: "",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrEmpty))
			},
		},
		{
			name:  "ragged row",
			input: "a,b\n1,2,3\n",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, csv.ErrFieldCount))
				assert.Contains(t, err.Error(), "row 1")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CSVToTSV(strings.NewReader(tt.input), &bytes.Buffer{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFileToTSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.csv")
	tsvPath := filepath.Join(dir, "out.tsv")
	require.NoError(t, os.WriteFile(csvPath, []byte("code,value\nA,1\nB,2\n"), 0o644))

	rows, err := FileToTSV(csvPath, tsvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	got, err := os.ReadFile(tsvPath)
	require.NoError(t, err)
	assert.Equal(t, "code\tvalue\nA\t1\nB\t2\n", string(got))
}

func TestFileToTSV_FailureKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.csv")
	tsvPath := filepath.Join(dir, "out.tsv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2,3\n"), 0o644))
	require.NoError(t, os.WriteFile(tsvPath, []byte("previous"), 0o644))

	_, err := FileToTSV(csvPath, tsvPath)
	require.Error(t, err)

	got, err := os.ReadFile(tsvPath)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file should be removed")
}

func TestFileToTSV_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := FileToTSV(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "out.tsv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
