package highlights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dabinuss/clipcore/internal/types"
)

func sec(n float64) time.Duration { return time.Duration(n * float64(time.Second)) }

func seg(start, end float64, text string) types.TimedSegment {
	return types.TimedSegment{Start: sec(start), End: sec(end), Text: text}
}

func contiguous(n int, each float64) []types.TimedSegment {
	out := make([]types.TimedSegment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, seg(float64(i)*each, float64(i+1)*each, "part"))
	}
	return out
}

// rawWindows runs the sliding pass without dedup so tests can compare sizes.
func rawWindows(segs []types.TimedSegment, cfg WindowConfig) []types.CandidateWindow {
	var raw []types.CandidateWindow
	var timelineEnd time.Duration
	for _, s := range segs {
		if s.End > timelineEnd {
			timelineEnd = s.End
		}
	}
	first := 0
	for cursor := time.Duration(0); cursor < timelineEnd; cursor += cfg.Step {
		for first < len(segs) && segs[first].End <= cursor {
			first++
		}
		if first >= len(segs) {
			break
		}
		if w, ok := growWindow(segs, first, cfg); ok {
			raw = append(raw, w)
		}
	}
	return raw
}

func TestGenerateWindows_ShortTranscriptYieldsNothing(t *testing.T) {
	segs := []types.TimedSegment{seg(0, 4, "a"), seg(4, 8, "b"), seg(8, 12, "c")}
	assert.Empty(t, GenerateWindows(segs, DefaultWindowConfig()))
}

func TestGenerateWindows_ContiguousSegmentsDeduplicated(t *testing.T) {
	segs := contiguous(5, 20)
	cfg := DefaultWindowConfig()

	raw := rawWindows(segs, cfg)
	got := GenerateWindows(segs, cfg)

	require.Greater(t, len(raw), 1, "expected overlapping raw windows")
	require.NotEmpty(t, got)
	assert.Less(t, len(got), len(raw))

	assert.Equal(t, sec(0), got[0].Start)
	assert.Equal(t, sec(80), got[0].End)
	assert.Equal(t, sec(20), got[1].Start)
	assert.Equal(t, sec(100), got[1].End)
	assert.Len(t, got, 2)
}

func TestGenerateWindows_BoundsAndNoNearDuplicates(t *testing.T) {
	var segs []types.TimedSegment
	at := 0.0
	lengths := []float64{3, 7, 2.5, 11, 4, 9, 1.5, 6, 13, 2, 8, 5, 3.5, 10, 4.5, 7, 2, 12, 6, 3}
	for i, l := range lengths {
		gap := 0.2
		if i%6 == 5 {
			gap = 3.5
		}
		segs = append(segs, seg(at, at+l, "words"))
		at += l + gap
	}
	cfg := DefaultWindowConfig()
	got := GenerateWindows(segs, cfg)
	require.NotEmpty(t, got)

	for i, w := range got {
		assert.Equal(t, i, w.Index)
		d := w.End - w.Start
		assert.GreaterOrEqual(t, d, cfg.Min, "window %d too short", i)
		assert.LessOrEqual(t, d, cfg.Max, "window %d too long", i)
		for j := i + 1; j < len(got); j++ {
			assert.LessOrEqual(t, overlapRatio(w, got[j]), cfg.DuplicateOverlap,
				"windows %d and %d overlap too much", i, j)
		}
	}
}

func TestGenerateWindows_PauseClosesWindowAfterMinimum(t *testing.T) {
	segs := []types.TimedSegment{
		seg(0, 8, "one"),
		seg(8, 16, "two"),
		seg(20, 30, "after pause"),
	}
	cfg := DefaultWindowConfig()
	got := GenerateWindows(segs, cfg)
	require.NotEmpty(t, got)

	assert.Equal(t, sec(0), got[0].Start)
	assert.Equal(t, sec(16), got[0].End, "4s pause after reaching min must close the window")
	assert.Equal(t, "one two", got[0].Text)
	assert.Equal(t, 0, got[0].StartSegmentIndex)
	assert.Equal(t, 1, got[0].EndSegmentIndex)
	assert.Len(t, got[0].Segments, 2)
}

func TestGenerateWindows_PauseToleratedBelowMinimum(t *testing.T) {
	segs := []types.TimedSegment{
		seg(0, 5, "one"),
		seg(10, 20, "two"),
	}
	got := GenerateWindows(segs, DefaultWindowConfig())
	require.Len(t, got, 1)
	assert.Equal(t, sec(0), got[0].Start)
	assert.Equal(t, sec(20), got[0].End)
}

func TestGenerateWindows_OversizedSegmentSkipped(t *testing.T) {
	segs := []types.TimedSegment{
		seg(0, 120, "monologue"),
		seg(120, 140, "tail"),
	}
	got := GenerateWindows(segs, DefaultWindowConfig())
	require.Len(t, got, 1)
	assert.Equal(t, sec(120), got[0].Start)
	assert.Equal(t, "tail", got[0].Text)
}

func TestGenerateWindows_InvalidConfig(t *testing.T) {
	segs := contiguous(5, 20)
	tests := []struct {
		name string
		cfg  WindowConfig
	}{
		{"zero min", WindowConfig{Min: 0, Max: time.Minute, Step: time.Second}},
		{"max below min", WindowConfig{Min: time.Minute, Max: time.Second, Step: time.Second}},
		{"zero step", WindowConfig{Min: time.Second, Max: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, GenerateWindows(segs, tt.cfg))
		})
	}
	assert.Empty(t, GenerateWindows(nil, DefaultWindowConfig()))
}

func TestGenerateWindows_UnorderedInputIsSorted(t *testing.T) {
	segs := contiguous(5, 20)
	shuffled := []types.TimedSegment{segs[3], segs[0], segs[4], segs[1], segs[2]}

	want := GenerateWindows(segs, DefaultWindowConfig())
	got := GenerateWindows(shuffled, DefaultWindowConfig())
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Start, got[i].Start)
		assert.Equal(t, want[i].End, got[i].End)
	}
	assert.Equal(t, sec(60), shuffled[0].Start, "caller slice must not be reordered")
}

func TestGenerateWindows_DegenerateSegmentsIgnored(t *testing.T) {
	segs := []types.TimedSegment{
		seg(0, 10, "a"),
		seg(10, 10, "zero length"),
		seg(10, 20, "b"),
	}
	got := GenerateWindows(segs, DefaultWindowConfig())
	require.Len(t, got, 1)
	assert.Equal(t, "a b", got[0].Text)
}

func TestDedupWindows_ReassignsIndex(t *testing.T) {
	in := []types.CandidateWindow{
		{Index: 7, Start: sec(30), End: sec(60)},
		{Index: 3, Start: sec(0), End: sec(20)},
		{Index: 9, Start: sec(1), End: sec(20)},
	}
	got := DedupWindows(in, 0.8)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, sec(0), got[0].Start)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, sec(30), got[1].Start)
	assert.Equal(t, 7, in[0].Index, "input must not be modified")
}
