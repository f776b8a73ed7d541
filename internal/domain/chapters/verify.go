package chapters

import (
	"strings"

	"github.com/dabinuss/clipcore/internal/types"
)

// Tier bounds anchor length and how often it may occur in the transcript.
type Tier struct {
	Name           string
	MinWords       int
	MaxWords       int
	MaxOccurrences int
}

// DefaultTiers are evaluated together; see selectTier.
var DefaultTiers = []Tier{
	{Name: "strict", MinWords: 3, MaxWords: 14, MaxOccurrences: 6},
	{Name: "relaxed", MinWords: 2, MaxWords: 16, MaxOccurrences: 10},
	{Name: "loose", MinWords: 2, MaxWords: 20, MaxOccurrences: 14},
}

// ParseAndVerify parses an anchor extraction response and keeps only anchors
// that literally occur in transcript, using DefaultTiers.
func ParseAndVerify(response, transcript string, minExpected int) []types.ChapterTopic {
	return VerifyProposals(ParseAnchorResponse(response), transcript, minExpected, DefaultTiers)
}

// VerifyProposals drops every proposal whose normalized anchor does not occur
// in the normalized transcript, buckets the rest into tiers and returns the
// largest tier holding at least minExpected topics. When no tier reaches
// minExpected the largest tier wins. Ties go to the earlier, stricter tier.
func VerifyProposals(props []AnchorProposal, transcript string, minExpected int, tiers []Tier) []types.ChapterTopic {
	if len(props) == 0 || len(tiers) == 0 {
		return nil
	}
	normTranscript := NormalizeForMatch(transcript)
	if normTranscript == "" {
		return nil
	}

	buckets := make([][]types.ChapterTopic, len(tiers))
	seen := make([]map[string]struct{}, len(tiers))
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}

	for _, p := range props {
		na := NormalizeForMatch(p.Anchor)
		if na == "" {
			continue
		}
		occurrences := strings.Count(normTranscript, na)
		if occurrences == 0 {
			continue
		}
		words := len(strings.Fields(na))
		key := strings.ToLower(strings.TrimSpace(p.Anchor))

		for i, t := range tiers {
			if words < t.MinWords || words > t.MaxWords || occurrences > t.MaxOccurrences {
				continue
			}
			if _, dup := seen[i][key]; dup {
				continue
			}
			seen[i][key] = struct{}{}
			buckets[i] = append(buckets[i], topicFromProposal(p))
		}
	}

	return buckets[selectTier(buckets, minExpected)]
}

func selectTier(buckets [][]types.ChapterTopic, minExpected int) int {
	best := -1
	for i, b := range buckets {
		if len(b) < minExpected {
			continue
		}
		if best < 0 || len(b) > len(buckets[best]) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	best = 0
	for i, b := range buckets {
		if len(b) > len(buckets[best]) {
			best = i
		}
	}
	return best
}

func topicFromProposal(p AnchorProposal) types.ChapterTopic {
	t := types.ChapterTopic{
		AnchorText: strings.TrimSpace(p.Anchor),
		Keywords:   append([]string(nil), p.Keywords...),
	}
	if title := cleanTitle(p.Title); ValidTitle(title, t.AnchorText, DefaultTitleConfig()) {
		t.Title = title
	}
	return t
}
