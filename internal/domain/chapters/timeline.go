package chapters

import (
	"sort"
	"strings"
	"time"

	"github.com/dabinuss/clipcore/internal/types"
)

// Timeline joins segment texts into the normalized transcript the extractor
// works on and maps byte positions in it back to segment start times.
type Timeline struct {
	Text string

	offsets []int
	starts  []time.Duration
}

func NewTimeline(segs []types.TimedSegment) Timeline {
	ordered := make([]types.TimedSegment, len(segs))
	copy(ordered, segs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var b strings.Builder
	tl := Timeline{}
	for _, s := range ordered {
		text := collapseSpace(s.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		tl.offsets = append(tl.offsets, b.Len())
		tl.starts = append(tl.starts, s.Start)
		b.WriteString(text)
	}
	tl.Text = b.String()
	return tl
}

// TimeAt returns the start of the segment containing byte position pos.
func (t Timeline) TimeAt(pos int) time.Duration {
	if len(t.offsets) == 0 {
		return 0
	}
	i := sort.Search(len(t.offsets), func(i int) bool { return t.offsets[i] > pos }) - 1
	if i < 0 {
		i = 0
	}
	return t.starts[i]
}

// Markers converts titled topics into chapter markers ordered by time. Topics
// landing in the same segment keep only the first.
func (t Timeline) Markers(topics []types.ChapterTopic) []types.ChapterMarker {
	out := make([]types.ChapterMarker, 0, len(topics))
	seen := make(map[time.Duration]struct{}, len(topics))
	for _, tp := range topics {
		if tp.Title == "" {
			continue
		}
		at := t.TimeAt(tp.Position)
		if _, dup := seen[at]; dup {
			continue
		}
		seen[at] = struct{}{}
		out = append(out, types.ChapterMarker{Start: at, Title: tp.Title, Anchor: tp.AnchorText})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
