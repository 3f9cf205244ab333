// Package chunker implements ports.Chunker, splitting a resource's
// extracted markdown into ordered, heading-aware chunks. The strategy
// selection and heading/paragraph-boundary heuristics are grounded on the
// teacher's rag/chunker package; chunking here additionally tracks each
// chunk's enclosing heading path, which the teacher's flat Chunk{Index,Text}
// shape does not need but the property-graph chunk model does.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"knowledgeservice/internal/domain"
)

// MVP chunking is paragraph/heading-sized with no contextual decoration;
// a richer document-structure model (see usecases commentary on
// contextualised extracts) is future work.
const defaultTargetChars = 512 * 4

// Chunker selects a splitting strategy from the resource type's name and
// produces ordered domain.ResourceChunk values for a resource's markdown.
type Chunker struct{}

func New() Chunker { return Chunker{} }

func (Chunker) Chunk(ctx context.Context, resourceType domain.ResourceType, resource domain.Resource) ([]domain.ResourceChunk, error) {
	text := resource.MarkdownContent
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunk: resource %s has no extracted text", resource.ID)
	}

	var raw []rawChunk
	if strings.Contains(strings.ToLower(resourceType.Name), "code") {
		raw = codeChunks(text)
	} else {
		raw = markdownChunks(text)
	}

	out := make([]domain.ResourceChunk, 0, len(raw))
	for i, c := range raw {
		out = append(out, domain.ResourceChunk{
			ID:         fmt.Sprintf("%s-chunk-%04d", resource.ID, i),
			ResourceID: resource.ID,
			Sequence:   i,
			Text:       c.text,
			Extract:    c.text,
			Preamble:   headingPath(c.path),
			Path:       c.path,
		})
	}
	return out, nil
}

type rawChunk struct {
	text string
	path []domain.SectionHeader
}

func headingPath(path []domain.SectionHeader) string {
	headings := make([]string, len(path))
	for i, h := range path {
		headings[i] = h.Heading
	}
	return strings.Join(headings, " > ")
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// markdownChunks splits on headings and paragraph breaks, flushing the
// buffer at a heading boundary or once it reaches the target size,
// grounded on chunker.markdownChunk.
func markdownChunks(text string) []rawChunk {
	lines := strings.Split(text, "\n")
	var out []rawChunk
	var buf strings.Builder
	var stack []domain.SectionHeader

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			path := make([]domain.SectionHeader, len(stack))
			copy(path, stack)
			out = append(out, rawChunk{text: s, path: path})
			buf.Reset()
		}
	}

	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			heading := domain.SectionHeader{ID: fmt.Sprintf("h%d-%d", level, i), Heading: strings.TrimSpace(m[2])}
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			stack = append(stack, heading)
			continue
		}
		isParaBreak := strings.TrimSpace(line) == "" && i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != ""
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
		if isParaBreak && buf.Len() >= defaultTargetChars {
			flush()
		}
	}
	flush()
	return out
}

var codeSplitRe = regexp.MustCompile(`(?m)^\s*(func |class |def |//)`)

// codeChunks keeps function/class boundaries intact where possible,
// grounded on chunker.codeChunk.
func codeChunks(text string) []rawChunk {
	lines := strings.Split(text, "\n")
	var out []rawChunk
	var buf strings.Builder
	for i, line := range lines {
		if codeSplitRe.MatchString(line) && buf.Len() > defaultTargetChars {
			out = append(out, rawChunk{text: strings.TrimRight(buf.String(), "\n")})
			buf.Reset()
		}
		buf.WriteString(line)
		if i < len(lines)-1 {
			buf.WriteString("\n")
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		out = append(out, rawChunk{text: s})
	}
	return out
}
