package chapters

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dabinuss/clipcore/internal/testutil"
	"github.com/dabinuss/clipcore/internal/types"
)

func timelineSegments() []types.TimedSegment {
	return []types.TimedSegment{
		{Start: 12 * time.Second, End: 20 * time.Second, Text: "We also answer a few questions."},
		{Start: 0, End: 5 * time.Second, Text: "  Welcome to\nthe show.  "},
		{Start: 5 * time.Second, End: 12 * time.Second, Text: "Today the new pricing model."},
		{Start: 20 * time.Second, End: 21 * time.Second, Text: "   "},
	}
}

func TestNewTimeline_JoinsSortedSegments(t *testing.T) {
	tl := NewTimeline(timelineSegments())
	assert.Equal(t, "Welcome to the show. Today the new pricing model. We also answer a few questions.", tl.Text)
}

func TestTimeline_TimeAt(t *testing.T) {
	tl := NewTimeline(timelineSegments())
	assert.Equal(t, time.Duration(0), tl.TimeAt(0))
	assert.Equal(t, 5*time.Second, tl.TimeAt(strings.Index(tl.Text, "new pricing")))
	assert.Equal(t, 12*time.Second, tl.TimeAt(strings.Index(tl.Text, "questions")))
	assert.Equal(t, 12*time.Second, tl.TimeAt(len(tl.Text)+50))
	assert.Equal(t, time.Duration(0), Timeline{}.TimeAt(10))
}

func TestTimeline_Markers(t *testing.T) {
	tl := NewTimeline(timelineSegments())
	topics := []types.ChapterTopic{
		{AnchorText: "a few questions", Title: "Questions", Position: strings.Index(tl.Text, "a few")},
		{AnchorText: "the new pricing model", Title: "Pricing", Position: strings.Index(tl.Text, "the new")},
		{AnchorText: "Today the new", Title: "Same segment", Position: strings.Index(tl.Text, "Today")},
		{AnchorText: "Welcome to the show", Position: 0},
	}

	got := tl.Markers(topics)
	require.Len(t, got, 2)
	assert.Equal(t, types.ChapterMarker{Start: 5 * time.Second, Title: "Pricing", Anchor: "the new pricing model"}, got[0])
	assert.Equal(t, types.ChapterMarker{Start: 12 * time.Second, Title: "Questions", Anchor: "a few questions"}, got[1])
}

func TestTimeline_WithExtractor(t *testing.T) {
	var segs []types.TimedSegment
	for i, sentence := range strings.Split(extractorTranscript, "\n  ") {
		segs = append(segs, types.TimedSegment{
			Start: time.Duration(i) * 30 * time.Second,
			End:   time.Duration(i+1) * 30 * time.Second,
			Text:  sentence,
		})
	}
	tl := NewTimeline(segs)

	o := testutil.NewScriptedOracle().On(anchorPrompt, bothAnchors).On(titlePrompt, bothTitles)
	topics, err := NewExtractor(o, DefaultConfig()).Extract(context.Background(), tl.Text)
	require.NoError(t, err)

	markers := tl.Markers(topics)
	require.Len(t, markers, 2)
	assert.Equal(t, 30*time.Second, markers[0].Start)
	assert.Equal(t, "Pricing for teams", markers[0].Title)
	assert.Equal(t, 90*time.Second, markers[1].Start)
}
