package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dabinuss/clipcore/internal/domain/chapters"
	"github.com/dabinuss/clipcore/internal/domain/fallback"
	"github.com/dabinuss/clipcore/internal/domain/highlights"
)

// Tuning holds the engine thresholds. Every value defaults to the engine
// default and may be overridden from a TOML file.
type Tuning struct {
	Windows  highlights.WindowConfig
	Chapters chapters.Config
	Fallback fallback.Config
}

func DefaultTuning() Tuning {
	return Tuning{
		Windows:  highlights.DefaultWindowConfig(),
		Chapters: chapters.DefaultConfig(),
		Fallback: fallback.DefaultConfig(),
	}
}

type tuningFile struct {
	Windows  windowsSection  `toml:"windows"`
	Chapters chaptersSection `toml:"chapters"`
	Merge    mergeSection    `toml:"merge"`
	Titles   titlesSection   `toml:"titles"`
	Fallback fallbackSection `toml:"fallback"`
}

type windowsSection struct {
	MinSec           float64 `toml:"min_sec"`
	MaxSec           float64 `toml:"max_sec"`
	StepSec          float64 `toml:"step_sec"`
	PauseSec         float64 `toml:"pause_sec"`
	DuplicateOverlap float64 `toml:"duplicate_overlap"`
}

type chaptersSection struct {
	ChunkSize          int           `toml:"chunk_size"`
	ChunkOverlap       int           `toml:"chunk_overlap"`
	MinTranscriptWords int           `toml:"min_transcript_words"`
	CharsPerTopic      int           `toml:"chars_per_topic"`
	MinTopicsPerChunk  int           `toml:"min_topics_per_chunk"`
	MaxTopicsPerChunk  int           `toml:"max_topics_per_chunk"`
	Concurrency        int           `toml:"concurrency"`
	Tiers              []tierSection `toml:"tiers"`
}

type tierSection struct {
	Name           string `toml:"name"`
	MinWords       int    `toml:"min_words"`
	MaxWords       int    `toml:"max_words"`
	MaxOccurrences int    `toml:"max_occurrences"`
}

type mergeSection struct {
	ProximityFactor int     `toml:"proximity_factor"`
	ProximityFloor  int     `toml:"proximity_floor"`
	TitleSimilarity float64 `toml:"title_similarity"`
	KeywordOverlap  float64 `toml:"keyword_overlap"`
	CharsPerTopic   int     `toml:"chars_per_topic"`
	MinDesired      int     `toml:"min_desired"`
	Capacity        int     `toml:"capacity"`
}

type titlesSection struct {
	BatchSize     int     `toml:"batch_size"`
	MinLength     int     `toml:"min_length"`
	MaxLength     int     `toml:"max_length"`
	ContextChars  int     `toml:"context_chars"`
	ContainRatio  float64 `toml:"contain_ratio"`
	MaxSimilarity float64 `toml:"max_similarity"`
}

type fallbackSection struct {
	MinMediaSec      float64 `toml:"min_media_sec"`
	ChapterLengthSec float64 `toml:"chapter_length_sec"`
	MinChapters      int     `toml:"min_chapters"`
	MaxChapters      int     `toml:"max_chapters"`
	TitleWords       int     `toml:"title_words"`
}

// LoadTuning reads the TOML file at path over the defaults. An empty path
// returns the defaults. Unknown keys are an error.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	t, err := ParseTuning(b)
	if err != nil {
		return Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ParseTuning(b []byte) (Tuning, error) {
	f := toFile(DefaultTuning())
	// Tiers given in the file replace the defaults as a whole.
	f.Chapters.Tiers = nil
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}
	return f.tuning(), nil
}

func toFile(t Tuning) tuningFile {
	w, c := t.Windows, t.Chapters
	f := tuningFile{
		Windows: windowsSection{
			MinSec:           w.Min.Seconds(),
			MaxSec:           w.Max.Seconds(),
			StepSec:          w.Step.Seconds(),
			PauseSec:         w.Pause.Seconds(),
			DuplicateOverlap: w.DuplicateOverlap,
		},
		Chapters: chaptersSection{
			ChunkSize:          c.ChunkSize,
			ChunkOverlap:       c.ChunkOverlap,
			MinTranscriptWords: c.MinTranscriptWords,
			CharsPerTopic:      c.CharsPerTopic,
			MinTopicsPerChunk:  c.MinTopicsPerChunk,
			MaxTopicsPerChunk:  c.MaxTopicsPerChunk,
			Concurrency:        c.Concurrency,
		},
		Merge: mergeSection{
			ProximityFactor: c.Merge.ProximityFactor,
			ProximityFloor:  c.Merge.ProximityFloor,
			TitleSimilarity: c.Merge.TitleSimilarity,
			KeywordOverlap:  c.Merge.KeywordOverlap,
			CharsPerTopic:   c.Merge.CharsPerTopic,
			MinDesired:      c.Merge.MinDesired,
			Capacity:        c.Merge.Capacity,
		},
		Titles: titlesSection{
			BatchSize:     c.Titles.BatchSize,
			MinLength:     c.Titles.MinLength,
			MaxLength:     c.Titles.MaxLength,
			ContextChars:  c.Titles.ContextChars,
			ContainRatio:  c.Titles.ContainRatio,
			MaxSimilarity: c.Titles.MaxSimilarity,
		},
		Fallback: fallbackSection{
			MinMediaSec:      t.Fallback.MinMedia.Seconds(),
			ChapterLengthSec: t.Fallback.ChapterLength.Seconds(),
			MinChapters:      t.Fallback.MinChapters,
			MaxChapters:      t.Fallback.MaxChapters,
			TitleWords:       t.Fallback.TitleWords,
		},
	}
	for _, tr := range c.Tiers {
		f.Chapters.Tiers = append(f.Chapters.Tiers, tierSection(tr))
	}
	return f
}

func (f tuningFile) tuning() Tuning {
	t := DefaultTuning()
	t.Windows = highlights.WindowConfig{
		Min:              seconds(f.Windows.MinSec),
		Max:              seconds(f.Windows.MaxSec),
		Step:             seconds(f.Windows.StepSec),
		Pause:            seconds(f.Windows.PauseSec),
		DuplicateOverlap: f.Windows.DuplicateOverlap,
	}

	c := &t.Chapters
	c.ChunkSize = f.Chapters.ChunkSize
	c.ChunkOverlap = f.Chapters.ChunkOverlap
	c.MinTranscriptWords = f.Chapters.MinTranscriptWords
	c.CharsPerTopic = f.Chapters.CharsPerTopic
	c.MinTopicsPerChunk = f.Chapters.MinTopicsPerChunk
	c.MaxTopicsPerChunk = f.Chapters.MaxTopicsPerChunk
	c.Concurrency = f.Chapters.Concurrency
	if len(f.Chapters.Tiers) > 0 {
		c.Tiers = make([]chapters.Tier, 0, len(f.Chapters.Tiers))
		for _, tr := range f.Chapters.Tiers {
			c.Tiers = append(c.Tiers, chapters.Tier(tr))
		}
	}

	c.Merge = chapters.MergeConfig{
		ChunkOverlap:    f.Chapters.ChunkOverlap,
		ProximityFactor: f.Merge.ProximityFactor,
		ProximityFloor:  f.Merge.ProximityFloor,
		TitleSimilarity: f.Merge.TitleSimilarity,
		KeywordOverlap:  f.Merge.KeywordOverlap,
		CharsPerTopic:   f.Merge.CharsPerTopic,
		MinDesired:      f.Merge.MinDesired,
		Capacity:        f.Merge.Capacity,
	}
	c.Titles = chapters.TitleConfig{
		BatchSize:     f.Titles.BatchSize,
		MinLength:     f.Titles.MinLength,
		MaxLength:     f.Titles.MaxLength,
		ContextChars:  f.Titles.ContextChars,
		ContainRatio:  f.Titles.ContainRatio,
		MaxSimilarity: f.Titles.MaxSimilarity,
	}
	t.Fallback = fallback.Config{
		MinMedia:      seconds(f.Fallback.MinMediaSec),
		ChapterLength: seconds(f.Fallback.ChapterLengthSec),
		MinChapters:   f.Fallback.MinChapters,
		MaxChapters:   f.Fallback.MaxChapters,
		TitleWords:    f.Fallback.TitleWords,
	}
	return t
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
