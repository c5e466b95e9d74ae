package segmentation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/legisbr/consolida/internal/devices"
)

// Structural marker patterns following Brazilian legislative drafting
// conventions. Each pattern matches the START of a device on its own
// line; the device's text runs from the end of the marker to the next
// marker of any kind.
var (
	articlePattern       = regexp.MustCompile(`(?mi)^Art\.?\s+(\d+[ºª°]?(?:-[A-Z])?)\s*[.–-]?\s*`)
	paragraphPattern     = regexp.MustCompile(`(?m)^§\s*(\d+[ºª°]?(?:-[A-Z])?)\s*[.–-]?\s*`)
	soleParagraphPattern = regexp.MustCompile(`(?mi)^Parágrafo\s+único\.?\s*[.–-]?\s*`)
	itemPattern          = regexp.MustCompile(`(?m)^([IVX]+)\s*[.–-]\s*`)
	subitemPattern       = regexp.MustCompile(`(?m)^([a-z])\)\s+`)
	clausePattern        = regexp.MustCompile(`(?m)^(\d+)\.\s+`)

	// Roman numerals preceded by date-like context are not items.
	dateContextPattern = regexp.MustCompile(`\d{4}|\d{1,2}/\d{1,2}`)
)

type marker struct {
	kind   devices.Kind
	start  int    // byte offset of the marker itself
	end    int    // byte offset where the device's text begins
	number string // captured ordinal token: "1º", "II", "a", "único"
}

// findMarkers locates every structural marker in text, ordered by
// position. When two patterns match at the same offset the shallower
// kind wins, so "Parágrafo único" is never read as an item run.
func findMarkers(text string) []marker {
	var found []marker

	collect := func(kind devices.Kind, p *regexp.Regexp) {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			m := marker{kind: kind, start: loc[0], end: loc[1]}
			if len(loc) > 3 && loc[2] >= 0 {
				m.number = strings.TrimSpace(text[loc[2]:loc[3]])
			} else {
				m.number = "único"
			}

			if kind == devices.KindItem && looksLikeDate(text, m.start) {
				continue
			}

			found = append(found, m)
		}
	}

	collect(devices.KindArticle, articlePattern)
	collect(devices.KindParagraph, paragraphPattern)
	collect(devices.KindParagraph, soleParagraphPattern)
	collect(devices.KindItem, itemPattern)
	collect(devices.KindSubitem, subitemPattern)
	collect(devices.KindClause, clausePattern)

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].start != found[j].start {
			return found[i].start < found[j].start
		}
		return found[i].kind.Level() < found[j].kind.Level()
	})

	// Collapse duplicate matches at one offset, keeping the shallowest.
	deduped := found[:0]
	for _, m := range found {
		if len(deduped) > 0 && deduped[len(deduped)-1].start == m.start {
			continue
		}
		deduped = append(deduped, m)
	}

	return deduped
}

func looksLikeDate(text string, pos int) bool {
	lo := max(0, pos-10)
	return dateContextPattern.MatchString(text[lo:pos])
}

// label renders the display label for a marker, e.g. "Art. 5º",
// "§ 2º", "Parágrafo único", "II", "a)", "1.".
func (m marker) label() string {
	switch m.kind {
	case devices.KindArticle:
		return "Art. " + m.number
	case devices.KindParagraph:
		if m.number == "único" {
			return "Parágrafo único"
		}
		return "§ " + m.number
	case devices.KindSubitem:
		return m.number + ")"
	case devices.KindClause:
		return m.number + "."
	default:
		return m.number
	}
}
