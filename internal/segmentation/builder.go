// Package segmentation implements the device tree builder: it turns
// one norm's raw extracted text into an ordered, typed hierarchy of
// legal devices. The package is pure: no I/O, no persistence. Callers
// own storing the resulting forest.
package segmentation

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/legisbr/consolida/internal/devices"
)

// Node is one device produced by the builder. Nodes live in an arena;
// Parent is the index of the parent node, or -1 for roots. Children
// are ordered by Ordinal among siblings.
type Node struct {
	Kind       devices.Kind
	Label      string
	Number     string
	Text       string
	Span       devices.SourceSpan
	Parent     int
	Ordinal    int
	Unverified bool
}

// Result is the builder's output: the device arena in document order
// plus per-kind counts for reporting.
type Result struct {
	Nodes  []Node
	Counts map[devices.Kind]int
}

// Builder segments raw legal text into a device forest.
type Builder struct {
	ocrThreshold float64
	logger       *slog.Logger
}

// NewBuilder creates a Builder. Spans whose mean OCR confidence falls
// below ocrThreshold are tagged unverified on the resulting nodes.
func NewBuilder(ocrThreshold float64, logger *slog.Logger) *Builder {
	return &Builder{
		ocrThreshold: ocrThreshold,
		logger:       logger.With("system", "segmentation"),
	}
}

// Build parses raw text into a device forest. Each device captures its
// entire textual span up to the next marker of any kind, including
// continuation lines. Returns *MalformedStructureError when the marker
// sequence cannot form a consistent hierarchy.
func (b *Builder) Build(raw string, conf ConfidenceMap) (*Result, error) {
	markers := findMarkers(raw)

	result := &Result{
		Nodes:  make([]Node, 0, len(markers)),
		Counts: make(map[devices.Kind]int),
	}

	// Open-device stack: indices into the arena, shallowest at the
	// bottom. A marker at level L closes everything at level >= L and
	// attaches under the nearest open device at level < L.
	var stack []int
	childCount := make(map[int]int)
	rootCount := 0

	for i, m := range markers {
		level := m.kind.Level()

		for len(stack) > 0 && result.Nodes[stack[len(stack)-1]].Kind.Level() >= level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 && level > 0 {
			return nil, &MalformedStructureError{
				Offset: m.start,
				Kind:   m.kind,
				Marker: strings.TrimSpace(raw[m.start:m.end]),
			}
		}

		textEnd := len(raw)
		if i+1 < len(markers) {
			textEnd = markers[i+1].start
		}

		parent := -1
		var ordinal int
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
			ordinal = childCount[parent]
			childCount[parent]++
		} else {
			ordinal = rootCount
			rootCount++
		}

		node := Node{
			Kind:       m.kind,
			Label:      m.label(),
			Number:     m.number,
			Text:       normalizeText(raw[m.end:textEnd]),
			Span:       devices.SourceSpan{Start: m.start, End: textEnd},
			Parent:     parent,
			Ordinal:    ordinal,
			Unverified: conf.Mean(m.start, textEnd) < b.ocrThreshold,
		}

		result.Nodes = append(result.Nodes, node)
		result.Counts[m.kind]++
		stack = append(stack, len(result.Nodes)-1)
	}

	b.logger.Debug("segmentation complete",
		"devices", len(result.Nodes),
		"articles", result.Counts[devices.KindArticle],
		"paragraphs", result.Counts[devices.KindParagraph],
		"items", result.Counts[devices.KindItem],
	)

	return result, nil
}

var multiNewline = regexp.MustCompile(`\n{3,}`)
var intraSpace = regexp.MustCompile(`[ \t]+`)

// normalizeText preserves line structure but normalizes whitespace:
// runs of three or more newlines collapse to a paragraph break, and
// runs of spaces or tabs within a line collapse to one space.
func normalizeText(s string) string {
	s = strings.TrimRight(s, " \t\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(intraSpace.ReplaceAllString(line, " "))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
