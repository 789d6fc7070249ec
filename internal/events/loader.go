package events

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
)

const listExportMarker = "Letterboxd list export"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one CSV record keyed by its header.
type Row map[string]string

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// LoadRows reads the export at path.
//
// When isList is set the file must be a Letterboxd list export; its metadata block is
// returned as a [models.ListMeta] and the rows come from the table that follows it.
// Otherwise the first record is the header and meta is nil.
func LoadRows(path string, isList bool) (*models.ListMeta, []Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadRows(f, isList)
}

// ReadRows is [LoadRows] over an arbitrary reader.
func ReadRows(r io.Reader, isList bool) (*models.ListMeta, []Row, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, nil
	}

	if !isList {
		return nil, zipRows(records[0], records[1:]), nil
	}

	return splitListExport(records)
}

func readRecords(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedCSV, err)
	}
	return records, nil
}

// splitListExport parses the list export layout:
//
//	Letterboxd list export v7
//	Date,Name,Tags,URL,Description
//	<meta row>
//	<blank>
//	Position,Name,Year,URL,Description
//	<entries>
//
// Blank lines never reach us as records, so the entry header is the record after the meta row.
func splitListExport(records [][]string) (*models.ListMeta, []Row, error) {
	if len(records[0]) == 0 || !strings.HasPrefix(records[0][0], listExportMarker) {
		return nil, nil, fmt.Errorf("%w: not a Letterboxd list export", shared.ErrMalformedCSV)
	}

	if len(records) < 4 {
		return nil, nil, fmt.Errorf("%w: list export is too short to parse", shared.ErrMalformedCSV)
	}

	metaRow := records[2]
	if len(metaRow) < 4 {
		return nil, nil, fmt.Errorf("%w: list metadata row has %d columns", shared.ErrMalformedCSV, len(metaRow))
	}

	meta := &models.ListMeta{
		Date: metaRow[0],
		Name: metaRow[1],
		URL:  metaRow[3],
	}
	if metaRow[2] != "" {
		for tag := range strings.SplitSeq(metaRow[2], ",") {
			meta.Tags = append(meta.Tags, strings.TrimSpace(tag))
		}
	}
	if len(metaRow) > 4 {
		meta.Description = metaRow[4]
	}

	return meta, zipRows(records[3], records[4:]), nil
}

// zipRows pairs each record with header; short records leave trailing columns absent.
func zipRows(header []string, records [][]string) []Row {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(keys))
		for i, v := range rec {
			if i >= len(keys) {
				break
			}
			row[keys[i]] = v
		}
		rows = append(rows, row)
	}
	return rows
}
