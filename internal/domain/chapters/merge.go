package chapters

import (
	"sort"
	"strings"

	"github.com/dabinuss/clipcore/internal/types"
)

// ChunkResult holds the verified topics of one chunk.
type ChunkResult struct {
	Offset int
	Topics []types.ChapterTopic
}

type MergeConfig struct {
	// Two topics are merge candidates when their positions differ by at most
	// max(ChunkOverlap*ProximityFactor, ProximityFloor) bytes.
	ChunkOverlap    int
	ProximityFactor int
	ProximityFloor  int

	TitleSimilarity float64
	KeywordOverlap  float64

	// The relaxed pass replaces the aggressive one when the aggressive result
	// is below clamp(len(transcript)/CharsPerTopic, min(MinDesired, Capacity), Capacity).
	CharsPerTopic int
	MinDesired    int
	Capacity      int
}

func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		ChunkOverlap:    DefaultChunkOverlap,
		ProximityFactor: 3,
		ProximityFloor:  800,
		TitleSimilarity: 0.78,
		KeywordOverlap:  0.6,
		CharsPerTopic:   1500,
		MinDesired:      8,
		Capacity:        30,
	}
}

type positioned struct {
	topic types.ChapterTopic
	pos   int
	seq   int
}

// Merge orders the topics of all chunks by their position in transcript and
// removes duplicates. The aggressive pass is used unless it leaves fewer
// topics than the desired minimum, in which case the relaxed pass wins.
func Merge(results []ChunkResult, transcript string, cfg MergeConfig) []types.ChapterTopic {
	all := orderByPosition(results, transcript)
	if len(all) == 0 {
		return nil
	}
	aggressive := aggressivePass(all, cfg)
	if len(aggressive) >= desiredMinimum(len(transcript), len(all), cfg) {
		return aggressive
	}
	return relaxedPass(all, cfg)
}

func orderByPosition(results []ChunkResult, transcript string) []positioned {
	mt := newMatchText(transcript)
	var all []positioned
	for _, r := range results {
		for _, t := range r.Topics {
			t.Position = resolvePosition(mt, t, r.Offset)
			all = append(all, positioned{topic: t, pos: t.Position, seq: len(all)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].pos == all[j].pos {
			return all[i].seq < all[j].seq
		}
		return all[i].pos < all[j].pos
	})
	return all
}

// aggressivePass drops a topic close to a kept one when the anchors match,
// the titles are similar or the keywords overlap.
func aggressivePass(all []positioned, cfg MergeConfig) []types.ChapterTopic {
	return mergePass(all, proximity(cfg), func(a, b types.ChapterTopic) bool {
		return sameAnchor(a, b) ||
			(a.Title != "" && b.Title != "" && wordOverlap(a.Title, b.Title) >= cfg.TitleSimilarity) ||
			keywordOverlap(a.Keywords, b.Keywords) >= cfg.KeywordOverlap
	})
}

// relaxedPass only drops nearby topics with equal titles or anchors.
func relaxedPass(all []positioned, cfg MergeConfig) []types.ChapterTopic {
	return mergePass(all, proximity(cfg), func(a, b types.ChapterTopic) bool {
		return sameAnchor(a, b) ||
			(a.Title != "" && strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title)))
	})
}

func proximity(cfg MergeConfig) int {
	p := cfg.ChunkOverlap * cfg.ProximityFactor
	if p < cfg.ProximityFloor {
		p = cfg.ProximityFloor
	}
	return p
}

func mergePass(all []positioned, proximity int, dup func(a, b types.ChapterTopic) bool) []types.ChapterTopic {
	kept := make([]positioned, 0, len(all))
	for _, c := range all {
		duplicate := false
		for _, k := range kept {
			if absInt(c.pos-k.pos) <= proximity && dup(k.topic, c.topic) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	out := make([]types.ChapterTopic, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.topic)
	}
	return out
}

func desiredMinimum(transcriptLen, total int, cfg MergeConfig) int {
	capacity := cfg.Capacity
	if capacity <= 0 || capacity > total {
		capacity = total
	}
	floor := cfg.MinDesired
	if floor > capacity {
		floor = capacity
	}
	want := 0
	if cfg.CharsPerTopic > 0 {
		want = transcriptLen / cfg.CharsPerTopic
	}
	if want < floor {
		want = floor
	}
	if want > capacity {
		want = capacity
	}
	return want
}

// resolvePosition locates the anchor in the transcript, preferring an
// occurrence inside its chunk, then falls back to keywords, the title and
// finally the chunk offset.
func resolvePosition(mt matchText, t types.ChapterTopic, offset int) int {
	if p := mt.locateNear(t.AnchorText, offset); p >= 0 {
		return p
	}
	for _, k := range t.Keywords {
		if p := mt.locateNear(k, offset); p >= 0 {
			return p
		}
	}
	if t.Title != "" {
		if p := mt.locateNear(t.Title, offset); p >= 0 {
			return p
		}
	}
	return offset
}

func sameAnchor(a, b types.ChapterTopic) bool {
	return NormalizeForMatch(a.AnchorText) == NormalizeForMatch(b.AnchorText)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
