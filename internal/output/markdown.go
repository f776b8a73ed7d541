package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dabinuss/clipcore/internal/types"
)

type Report struct {
	Title         string
	Input         string
	RunID         string
	ChapterSource string
	Duration      time.Duration
	Chapters      []types.ChapterMarker
	Windows       []types.CandidateWindow
}

const windowTextLimit = 160

// RenderMarkdown writes the human readable run report.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
	} else {
		b.WriteString("# Chapters\n\n")
	}
	if r.Input != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", r.Input)
	}
	if r.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	}
	if r.ChapterSource != "" {
		fmt.Fprintf(&b, "- Chapters from: %s\n", r.ChapterSource)
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", r.Duration.Truncate(time.Second))
	}
	b.WriteString("\n## Chapters\n\n")
	if len(r.Chapters) == 0 {
		b.WriteString("_No chapters._\n")
	} else {
		b.WriteString("```\n")
		b.WriteString(FormatChapters(r.Chapters))
		b.WriteString("```\n")
	}

	b.WriteString("\n## Candidate windows\n\n")
	if len(r.Windows) == 0 {
		b.WriteString("_No candidate windows._\n")
		return b.String()
	}
	hours := r.Windows[len(r.Windows)-1].End >= time.Hour
	for _, w := range r.Windows {
		fmt.Fprintf(&b, "%d. [%s-%s] %s\n",
			w.Index+1,
			Timestamp(w.Start, hours),
			Timestamp(w.End, hours),
			clip(strings.TrimSpace(w.Text), windowTextLimit),
		)
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
