package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dabinuss/clipcore/internal/types"
)

// FormatChapters renders one "MM:SS Title" line per marker, ordered by time,
// in the form video platforms read from a description. Once a marker is past
// the first hour every line uses H:MM:SS. The first line always starts at zero.
func FormatChapters(markers []types.ChapterMarker) string {
	if len(markers) == 0 {
		return ""
	}
	sorted := make([]types.ChapterMarker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	hours := sorted[len(sorted)-1].Start >= time.Hour
	var b strings.Builder
	for i, m := range sorted {
		at := m.Start
		if i == 0 {
			at = 0
		}
		fmt.Fprintf(&b, "%s %s\n", Timestamp(at, hours), strings.TrimSpace(m.Title))
	}
	return b.String()
}

// Timestamp formats d as MM:SS, or H:MM:SS when hours is set.
func Timestamp(d time.Duration, hours bool) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if hours {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", total/60, s)
}
