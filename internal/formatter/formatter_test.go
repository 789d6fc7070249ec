package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
	th "github.com/desertthunder/lbsync/internal/testing"
)

func sampleEntries() []store.ErrorEntry {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []store.ErrorEntry{
		{
			Kind:            models.KindRating,
			SourceReference: "https://letterboxd.com/film/the-matrix",
			Payload:         map[string]any{"rating": 4.5},
			Error:           "remote mutation rejected: status 401",
			Timestamp:       ts,
		},
		{
			Kind:            models.KindList,
			SourceReference: "tt0133093",
			Payload:         map[string]any{"list_title": "Sci-Fi, Favourites", "rating": 9.0},
			Error:           "not_found",
			Timestamp:       ts.Add(time.Minute),
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"table", FormatTable},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFormatPayload(t *testing.T) {
	got := FormatPayload(map[string]any{"rating": 4.5, "list_title": "Top", "note": nil})
	if got != "list_title=Top note=- rating=4.5" {
		t.Errorf("FormatPayload() = %q", got)
	}
	if FormatPayload(nil) != "" {
		t.Error("expected empty string for nil payload")
	}
}

func TestErrorReport(t *testing.T) {
	entries := sampleEntries()

	t.Run("CSV", func(t *testing.T) {
		data, err := ErrorReport(entries, FormatCSV)
		if err != nil {
			t.Fatalf("ErrorReport failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Time,Kind,Reference,Payload,Error\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "2025-03-01T12:00:00Z,rating,https://letterboxd.com/film/the-matrix,rating=4.5,") {
			t.Errorf("CSV missing rating row, got: %s", output)
		}
		if !strings.Contains(output, `"list_title=Sci-Fi, Favourites rating=9"`) {
			t.Errorf("CSV should quote fields with commas, got: %s", output)
		}
	})

	t.Run("Table", func(t *testing.T) {
		data, err := ErrorReport(entries, FormatTable)
		if err != nil {
			t.Fatalf("ErrorReport failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{"KIND", "REFERENCE", "tt0133093", "not_found", "┌"} {
			if !strings.Contains(output, want) {
				t.Errorf("table missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := ErrorReport(entries, FormatMarkdown)
		if err != nil {
			t.Fatalf("ErrorReport failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "|") || !strings.Contains(output, "---") {
			t.Errorf("expected a markdown table, got:\n%s", output)
		}
		if !strings.Contains(output, "tt0133093") {
			t.Errorf("markdown missing reference:\n%s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := ErrorReport(entries, FormatJSON)
		if err != nil {
			t.Fatalf("ErrorReport failed: %v", err)
		}

		var decoded []store.ErrorEntry
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[1].Error != "not_found" {
			t.Errorf("unexpected decoded entries: %+v", decoded)
		}
	})

	t.Run("JSON Empty Ledger", func(t *testing.T) {
		data, err := ErrorReport(nil, FormatJSON)
		if err != nil {
			t.Fatalf("ErrorReport failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %q", data)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := ErrorReport(entries, Format("xml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteErrorReport(t *testing.T) {
	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")

		got, err := WriteErrorReport(sampleEntries(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteErrorReport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}

		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "tt0133093") {
			t.Error("report missing entries")
		}
	})

	t.Run("Extensions", func(t *testing.T) {
		want := map[Format]string{FormatTable: "txt", FormatCSV: "csv", FormatMarkdown: "md", FormatJSON: "json"}
		for f, ext := range want {
			if f.Ext() != ext {
				t.Errorf("%s.Ext() = %q, want %q", f, f.Ext(), ext)
			}
		}
	})
}

func TestRunsTable(t *testing.T) {
	run := models.NewSyncRun("ratings", "ratings.csv", true, true)
	run.SetSequence(7)
	run.Finish(models.RunCompleted, models.RunCounts{Total: 10, Applied: 6, Skipped: 2, Unresolved: 1, Failed: 1}, nil)

	output := RunsTable([]*models.SyncRun{run})
	for _, want := range []string{"ratings", "completed", "yes", "7"} {
		if !strings.Contains(output, want) {
			t.Errorf("runs table missing %q:\n%s", want, output)
		}
	}
}

func TestCacheTables(t *testing.T) {
	t.Run("Stats", func(t *testing.T) {
		output := CacheStatsTable(map[models.ResolveStatus]int{models.StatusFound: 3, models.StatusBlocked: 1}, 2)
		for _, want := range []string{"found", "not_found", "blocked", "references", "lists"} {
			if !strings.Contains(output, want) {
				t.Errorf("stats table missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("Entry", func(t *testing.T) {
		found := CacheEntryTable("https://letterboxd.com/film/the-matrix", store.ResolveEntry{
			Status:        models.StatusFound,
			DestinationID: 603,
			MediaType:     models.MediaMovie,
			Timestamp:     time.Now(),
		})
		if !strings.Contains(found, "603") || !strings.Contains(found, "movie") {
			t.Errorf("entry table missing destination:\n%s", found)
		}

		missing := CacheEntryTable("https://letterboxd.com/film/nope", store.ResolveEntry{Status: models.StatusNotFound})
		if strings.Contains(missing, "TMDB ID") {
			t.Errorf("unresolved entry should not show an id:\n%s", missing)
		}
	})
}
