package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/lbsync/internal/tasks"
)

// Summary renders the end-of-run counts.
func Summary(res *tasks.RunResult, dryRun bool) string {
	var b strings.Builder

	heading := "Sync complete"
	if dryRun {
		heading = "Dry run complete"
	}
	b.WriteString(Title(heading) + "\n")

	processed := "applied"
	if dryRun {
		processed = "resolved"
	}

	fmt.Fprintf(&b, "  %-11s %d\n", "total", res.Total)
	fmt.Fprintf(&b, "  %-11s %s\n", processed, OK(fmt.Sprint(res.Processed)))
	fmt.Fprintf(&b, "  %-11s %s\n", "skipped", Help(fmt.Sprint(res.Skipped)))
	fmt.Fprintf(&b, "  %-11s %s\n", "unresolved", Warn(fmt.Sprint(res.Unresolved)))
	fmt.Fprintf(&b, "  %-11s %s\n", "failed", Err(fmt.Sprint(res.Failed)))

	if res.Failed > 0 || res.Unresolved > 0 {
		b.WriteString("\n" + Help("See `lbsync errors` for details.") + "\n")
	}
	return b.String()
}
