// package formatter renders the error ledger, run history and cache contents for the terminal and for export (CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
)

// Format is an output format for the error report.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted formats in help order.
func Formats() []Format {
	return []Format{FormatTable, FormatCSV, FormatMarkdown, FormatJSON}
}

// ParseFormat accepts a format name, with "md" as shorthand for markdown.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = FormatMarkdown
	}
	if slices.Contains(Formats(), f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

var errorHeaders = []string{"Time", "Kind", "Reference", "Payload", "Error"}

// maxErrorWidth bounds the error column in terminal tables.
const maxErrorWidth = 80

// ErrorReport renders error ledger entries in format f.
func ErrorReport(entries []store.ErrorEntry, f Format) ([]byte, error) {
	switch f {
	case FormatTable:
		return []byte(errorTable(entries).Render() + "\n"), nil
	case FormatMarkdown:
		return []byte(errorTable(entries).RenderMarkdown() + "\n"), nil
	case FormatCSV:
		return ErrorsToCSV(entries)
	case FormatJSON:
		if entries == nil {
			entries = []store.ErrorEntry{}
		}
		return shared.MarshalJSON(entries, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteErrorReport renders entries in format f to path.
//
// Defaults to errors.{ext} in the working directory when path is empty.
func WriteErrorReport(entries []store.ErrorEntry, f Format, path string) (string, error) {
	if path == "" {
		path = "errors." + f.Ext()
	}

	data, err := ErrorReport(entries, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Ext is the file extension used for reports in this format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatTable:
		return "txt"
	default:
		return string(f)
	}
}

// ErrorsToCSV converts error entries to CSV with columns: Time, Kind, Reference, Payload, Error
func ErrorsToCSV(entries []store.ErrorEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(errorHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Kind.String(),
			e.SourceReference,
			FormatPayload(e.Payload),
			e.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func errorTable(entries []store.ErrorEntry) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(errorHeaders))

	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Kind,
			e.SourceReference,
			FormatPayload(e.Payload),
			shared.Truncate(e.Error, maxErrorWidth),
		})
	}
	return t
}

// FormatPayload renders payload fields as sorted key=value pairs.
func FormatPayload(p map[string]any) string {
	keys := slices.Sorted(maps.Keys(p))

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(p[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case nil:
		return "-"
	default:
		return fmt.Sprint(v)
	}
}

// RunsTable renders sync runs, newest first as given.
func RunsTable(runs []*models.SyncRun) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Started", "Mode", "Status", "Dry Run", "Total", "Applied", "Skipped", "Unresolved", "Failed", "Duration"})

	for _, r := range runs {
		c := r.Counts()
		t.AppendRow(table.Row{
			r.Sequence(),
			r.StartedAt().Local().Format("2006-01-02 15:04"),
			r.Mode(),
			r.Status(),
			yesNo(r.DryRun()),
			c.Total, c.Applied, c.Skipped, c.Unresolved, c.Failed,
			r.Duration().Round(time.Second),
		})
	}
	return t.Render()
}

// CacheStatsTable renders resolve cache counts by status plus the number of cached lists.
func CacheStatsTable(stats map[models.ResolveStatus]int, lists int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Entry", "Count"})

	total := 0
	for _, s := range []models.ResolveStatus{models.StatusFound, models.StatusNotFound, models.StatusBlocked, models.StatusError} {
		t.AppendRow(table.Row{string(s), stats[s]})
		total += stats[s]
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"references", total})
	t.AppendRow(table.Row{"lists", lists})
	return t.Render()
}

// CacheEntryTable renders a single resolve cache entry.
func CacheEntryTable(ref string, e store.ResolveEntry) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Reference", ref})
	t.AppendRow(table.Row{"Status", e.Status})
	if e.Status == models.StatusFound {
		t.AppendRow(table.Row{"TMDB ID", e.DestinationID})
		t.AppendRow(table.Row{"Media Type", e.MediaType})
	}
	t.AppendRow(table.Row{"Cached At", e.Timestamp.Local().Format(time.RFC3339)})
	return t.Render()
}

func headerRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
