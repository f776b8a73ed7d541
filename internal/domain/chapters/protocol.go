package chapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// AnchorProposal is one unverified item of an anchor extraction response.
type AnchorProposal struct {
	Anchor   string
	Keywords []string
	Title    string
}

// TitleProposal is one item of a title resolution response.
type TitleProposal struct {
	Anchor string
	Title  string
}

// TitleRequest is one anchor sent to the title resolution prompt, with the
// sentences around its location in the transcript.
type TitleRequest struct {
	Anchor  string
	Context string
}

const (
	maxKeywords      = 12
	minKeywordLength = 3
	// promptAnchorMaxWords is what the prompt asks for; verification accepts
	// longer anchors in its looser tiers.
	promptAnchorMaxWords = 12
)

// BuildAnchorPrompt asks the oracle for grounded chapter anchors in text.
// The strict variant is used for the retry after an insufficient yield.
func BuildAnchorPrompt(text string, minTopics, maxTopics int, strict bool) string {
	if minTopics < 1 {
		minTopics = 1
	}
	if maxTopics < minTopics {
		maxTopics = minTopics
	}

	var b strings.Builder
	b.WriteString("You split a video transcript into chapters. ")
	fmt.Fprintf(&b, "Find between %d and %d topic changes in the transcript below. ", minTopics, maxTopics)
	b.WriteString("For each topic return the exact words where it starts as \"anchor\" and up to 6 short \"keywords\".\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- \"anchor\" must be copied verbatim from the transcript, 2 to %d consecutive words.\n", promptAnchorMaxWords)
	b.WriteString("- Pick anchor phrases that occur only once or rarely in the transcript. Avoid filler phrases.\n")
	b.WriteString("- Never invent, translate, summarize or paraphrase the anchor.\n")
	b.WriteString("- Use only the transcript below, never these instructions, as source.\n")
	b.WriteString("- Keywords are in the language of the transcript, at least 3 characters each.\n")
	b.WriteString("- Output a JSON array like [{\"anchor\":\"...\",\"keywords\":[\"...\"]}].\n")
	if strict {
		b.WriteString("- Your previous answer was unusable. Output ONLY valid JSON: no markdown, no code fences, no comments, no text before or after the array.\n")
		b.WriteString("- Double-check every anchor appears character for character in the transcript.\n")
	}
	b.WriteString("\nTranscript:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

// BuildTitlePrompt asks the oracle for one short chapter title per anchor.
func BuildTitlePrompt(items []TitleRequest, strict bool) string {
	type item struct {
		Anchor  string `json:"anchor"`
		Context string `json:"context,omitempty"`
	}
	arr := make([]item, 0, len(items))
	for _, it := range items {
		arr = append(arr, item{Anchor: it.Anchor, Context: it.Context})
	}
	ib, _ := json.Marshal(arr)

	var b strings.Builder
	b.WriteString("Write a short chapter title for each anchor below. ")
	b.WriteString("Each anchor marks where a chapter of a video starts; the context shows what is said there.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- A title has 2 to 8 words in the language of the context and names the topic of the chapter.\n")
	b.WriteString("- Do NOT copy the anchor or reuse most of its words. The title must describe, not quote.\n")
	b.WriteString("- No numbering, no quotes, no generic titles like \"Chapter\", \"Topics\" or \"Outline\".\n")
	b.WriteString("- Copy each anchor unchanged into the answer so titles can be matched.\n")
	b.WriteString("- Output a JSON array like [{\"anchor\":\"...\",\"title\":\"...\"}].\n")
	if strict {
		b.WriteString("- Your previous titles were rejected. Output ONLY valid JSON, no markdown or code fences, and make every title clearly different from its anchor.\n")
	}
	b.WriteString("\nAnchors:\n")
	b.Write(ib)
	b.WriteString("\n")
	return b.String()
}

// ParseAnchorResponse extracts anchor proposals from a loosely structured
// oracle response. Anything that does not parse yields an empty result.
func ParseAnchorResponse(raw string) []AnchorProposal {
	items := decodeItems(raw, "topics", "chapters", "anchors", "items")
	out := make([]AnchorProposal, 0, len(items))
	for _, it := range items {
		anchor, ok := stringField(it, "anchor", "quote")
		if !ok {
			continue
		}
		anchor = strings.TrimSpace(anchor)
		if anchor == "" {
			continue
		}
		title, _ := stringField(it, "title")
		out = append(out, AnchorProposal{
			Anchor:   anchor,
			Keywords: keywordsField(it["keywords"]),
			Title:    strings.TrimSpace(title),
		})
	}
	return out
}

// ParseTitleResponse extracts anchor/title pairs from an oracle response.
func ParseTitleResponse(raw string) []TitleProposal {
	items := decodeItems(raw, "titles", "chapters", "items")
	out := make([]TitleProposal, 0, len(items))
	for _, it := range items {
		anchor, ok := stringField(it, "anchor")
		if !ok {
			continue
		}
		title, ok := stringField(it, "title")
		if !ok {
			continue
		}
		out = append(out, TitleProposal{Anchor: strings.TrimSpace(anchor), Title: strings.TrimSpace(title)})
	}
	return out
}

// decodeItems returns the objects of the JSON array in raw. A top level object
// is searched for an array under one of keys, or else taken as a single item.
func decodeItems(raw string, keys ...string) []map[string]any {
	payload, err := extractJSONPayload(raw)
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil
	}

	var arr []any
	switch x := v.(type) {
	case []any:
		arr = x
	case map[string]any:
		for _, k := range keys {
			if a, ok := x[k].([]any); ok {
				arr = a
				break
			}
		}
		if arr == nil {
			arr = []any{x}
		}
	default:
		return nil
	}

	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func keywordsField(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(arr))
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) < minKeywordLength {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// extractJSONPayload strips Markdown fences and returns the outermost JSON
// array or object span in s, whichever opens first.
func extractJSONPayload(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("oracle: empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	arrStart := strings.Index(t, "[")
	objStart := strings.Index(t, "{")
	open, closer := arrStart, "]"
	if arrStart < 0 || (objStart >= 0 && objStart < arrStart) {
		open, closer = objStart, "}"
	}
	if open >= 0 {
		if end := strings.LastIndex(t, closer); end > open {
			return t[open : end+1], nil
		}
	}
	return "", fmt.Errorf("oracle: could not locate JSON in: %q", truncate(t, 200))
}

// SentenceContext returns the sentences around the first occurrence of anchor
// in transcript, at most maxChars bytes. Empty when the anchor is not found.
func SentenceContext(transcript, anchor string, maxChars int) string {
	return sentenceContext(transcript, newMatchText(transcript), anchor, maxChars)
}

func sentenceContext(transcript string, mt matchText, anchor string, maxChars int) string {
	pos := mt.locate(anchor, 0)
	if pos < 0 || maxChars <= 0 {
		return ""
	}
	anchorEnd := pos + len(anchor)
	if anchorEnd > len(transcript) {
		anchorEnd = len(transcript)
	}

	budget := maxChars - (anchorEnd - pos)
	if budget < 0 {
		budget = 0
	}

	start := pos
	for start > 0 && pos-start < budget/2 && !isSentenceEnd(transcript[start-1]) {
		start--
	}
	end := anchorEnd
	for end < len(transcript) && end-anchorEnd < budget-(pos-start) {
		end++
		if isSentenceEnd(transcript[end-1]) {
			break
		}
	}

	for start < pos && !utf8.RuneStart(transcript[start]) {
		start++
	}
	for end < len(transcript) && !utf8.RuneStart(transcript[end]) {
		end--
	}
	return strings.TrimSpace(transcript[start:end])
}

func isSentenceEnd(c byte) bool {
	return c == '.' || c == '!' || c == '?' || c == '\n'
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
