package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const summaryRule = 72

var (
	successMark = color.New(color.FgGreen).Sprint("✓")
	failureMark = color.New(color.FgRed).Sprint("✗")
)

// WriteSummary writes a human readable summary of the batch to the writer
// provided: a tally, followed by the URLs of each successful item and the
// stage and message of each failed item.
func WriteSummary(w io.Writer, batch *BatchResult) error {
	var sb strings.Builder
	if len(batch.Items) == 0 {
		sb.WriteString("\n  (no video files found)\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	tag := ""
	if batch.DryRun {
		tag = "  [DRY-RUN]"
	}

	rule := strings.Repeat("─", summaryRule)
	fmt.Fprintf(&sb, "\n%s\n", rule)
	fmt.Fprintf(&sb, "  Ingest complete%s   succeeded %d / failed %d / total %d\n", tag, batch.Successes(), batch.Failures(), len(batch.Items))
	fmt.Fprintf(&sb, "%s\n", rule)

	for _, item := range batch.Items {
		if item == nil || !item.Succeeded() {
			continue
		}

		fmt.Fprintf(&sb, "  %s  %-30s  dur=%4ds  id=%d\n", successMark, item.Stem(), item.WholeDuration(), item.CatalogID)
		fmt.Fprintf(&sb, "       video:    %s\n", item.VideoURL)
		if item.SidecarURL != "" {
			fmt.Fprintf(&sb, "       sidecar:  %s\n", item.SidecarURL)
		}
		fmt.Fprintf(&sb, "       cover:    %s\n", item.CoverURL)
	}

	if failed := batch.FailedItems(); len(failed) > 0 {
		sb.WriteString("\n  Failures:\n")
		for _, item := range failed {
			fmt.Fprintf(&sb, "  %s  %-30s  [%s] %s\n", failureMark, item.Stem(), item.Error.Stage, item.ErrorMessage())
			for _, artifact := range item.Artifacts {
				fmt.Fprintf(&sb, "       uploaded: %s\n", artifact.URL)
			}
		}
	}

	fmt.Fprintf(&sb, "%s\n", rule)
	_, err := io.WriteString(w, sb.String())
	return err
}
