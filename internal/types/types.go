package types

import "time"

// Transcript is the whisper.cpp style JSON document produced by the
// transcription collaborator.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Timed converts the JSON segments into TimedSegments, keeping their order.
func (t Transcript) Timed() []TimedSegment {
	out := make([]TimedSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		out = append(out, TimedSegment{Start: dur(s.Start), End: dur(s.End), Text: s.Text})
	}
	return out
}

// TimedSegment is one atomic unit of transcribed speech.
type TimedSegment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func (s TimedSegment) Duration() time.Duration { return s.End - s.Start }

// CandidateWindow aggregates contiguous segments into a highlight candidate.
type CandidateWindow struct {
	Index             int
	Start             time.Duration
	End               time.Duration
	Text              string
	Segments          []TimedSegment
	StartSegmentIndex int
	EndSegmentIndex   int
}

func (w CandidateWindow) Duration() time.Duration { return w.End - w.Start }

// TranscriptChunk is a bounded slice of the normalized transcript.
// StartOffset is a byte offset into that transcript.
type TranscriptChunk struct {
	Text        string
	StartOffset int
}

// ChapterTopic is an anchor proposed by the oracle and grounded in the transcript.
// Position is the byte offset of the anchor in the normalized transcript, set by the merger.
type ChapterTopic struct {
	AnchorText string   `json:"anchor"`
	Keywords   []string `json:"keywords,omitempty"`
	Title      string   `json:"title,omitempty"`
	Position   int      `json:"position"`
}

// WithTitle returns a copy of the topic carrying title.
func (c ChapterTopic) WithTitle(title string) ChapterTopic {
	c.Keywords = append([]string(nil), c.Keywords...)
	c.Title = title
	return c
}

// ChapterMarker is a titled chapter start on the media timeline.
type ChapterMarker struct {
	Start  time.Duration
	Title  string
	Anchor string
}

type Manifest struct {
	RunID         string            `json:"run_id"`
	Input         string            `json:"input"`
	Windows       []ManifestWindow  `json:"windows"`
	Chapters      []ManifestChapter `json:"chapters"`
	ChapterSource string            `json:"chapter_source,omitempty"`
}

type ManifestWindow struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

type ManifestChapter struct {
	StartSec float64 `json:"start_sec"`
	Title    string  `json:"title"`
	Anchor   string  `json:"anchor,omitempty"`
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
