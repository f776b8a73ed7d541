package chapters

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeForMatch lowercases s, keeps letters, digits and single spaces, and
// drops everything else. Dashes and slashes separate words.
func NormalizeForMatch(s string) string {
	return newMatchText(s).norm
}

// matchText is a normalized view of a source string that remembers, for every
// normalized byte, the byte offset it came from.
type matchText struct {
	norm    string
	offsets []int
}

func newMatchText(src string) matchText {
	var b strings.Builder
	b.Grow(len(src))
	offsets := make([]int, 0, len(src))
	pendingSpace := false
	var buf [utf8.UTFMax]byte

	for i, r := range src {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
				offsets = append(offsets, i)
			}
			pendingSpace = false
			n := utf8.EncodeRune(buf[:], unicode.ToLower(r))
			b.Write(buf[:n])
			for k := 0; k < n; k++ {
				offsets = append(offsets, i)
			}
		case unicode.IsSpace(r) || isWordSeparator(r):
			pendingSpace = true
		}
	}
	return matchText{norm: b.String(), offsets: offsets}
}

func isWordSeparator(r rune) bool {
	switch r {
	case '-', '/', '–', '—', '_':
		return true
	}
	return false
}

// locate returns the source offset of the first normalized occurrence of
// needle at or after source offset from, or -1.
func (m matchText) locate(needle string, from int) int {
	n := NormalizeForMatch(needle)
	if n == "" || m.norm == "" {
		return -1
	}
	start := sort.SearchInts(m.offsets, from)
	if start >= len(m.norm) {
		return -1
	}
	idx := strings.Index(m.norm[start:], n)
	if idx < 0 {
		return -1
	}
	return m.offsets[start+idx]
}

// locateNear prefers an occurrence at or after from and falls back to the first one.
func (m matchText) locateNear(needle string, from int) int {
	if from > 0 {
		if p := m.locate(needle, from); p >= 0 {
			return p
		}
	}
	return m.locate(needle, 0)
}

// collapseSpace trims s and replaces every whitespace run with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(NormalizeForMatch(s))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// wordOverlap is |A∩B| / max(|A|,|B|) over normalized word sets.
func wordOverlap(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	larger := len(wa)
	if len(wb) > larger {
		larger = len(wb)
	}
	return float64(shared) / float64(larger)
}

// keywordOverlap is |A∩B| / min(|A|,|B|) over normalized keywords.
func keywordOverlap(a, b []string) float64 {
	sa := make(map[string]struct{}, len(a))
	for _, k := range a {
		if n := NormalizeForMatch(k); n != "" {
			sa[n] = struct{}{}
		}
	}
	sb := make(map[string]struct{}, len(b))
	for _, k := range b {
		if n := NormalizeForMatch(k); n != "" {
			sb[n] = struct{}{}
		}
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for k := range sa {
		if _, ok := sb[k]; ok {
			shared++
		}
	}
	smaller := len(sa)
	if len(sb) < smaller {
		smaller = len(sb)
	}
	return float64(shared) / float64(smaller)
}
