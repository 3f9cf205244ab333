// Package filemanager implements ports.FileManager: MIME detection, format
// validation, and markdown extraction. HTML is extracted via readability +
// html-to-markdown, and audio via whisper.cpp bindings, the same libraries
// and call shapes the teacher's tools/web/fetch.go and cmd/whisper-go use
// for the same jobs — generalized here from "things a web fetch or a CLI
// saw" to "things an uploaded resource might be".
package filemanager

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"knowledgeservice/internal/ports"
)

var supported = []string{
	"text/plain",
	"text/markdown",
	"text/html",
	"application/pdf",
	"audio/wav",
	"audio/x-wav",
}

// Manager implements ports.FileManager. ModelPath, when non-empty, is a
// whisper.cpp ggml model used to transcribe audio resources; audio
// extraction returns an error when it is unset.
type Manager struct {
	ModelPath string
}

func New(modelPath string) *Manager {
	return &Manager{ModelPath: modelPath}
}

func (m *Manager) SupportedMIMETypes(ctx context.Context) ([]string, error) {
	return supported, nil
}

func (m *Manager) DetectMIME(ctx context.Context, fileName string, content []byte) (string, error) {
	kind, err := filetype.Match(content)
	if err == nil && kind != types.Unknown {
		return kind.MIME.Value, nil
	}
	// filetype only recognizes binary signatures; fall back to extension
	// and content sniffing for the plain-text formats it can't see.
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown"):
		return "text/markdown", nil
	case strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm"):
		return "text/html", nil
	case looksLikeHTML(content):
		return "text/html", nil
	default:
		return "text/plain", nil
	}
}

func (m *Manager) ValidateFormat(ctx context.Context, declaredMIME string, content []byte) (bool, error) {
	switch declaredMIME {
	case "text/plain", "text/markdown":
		return true, nil // no binary signature to check against
	case "text/html":
		return looksLikeHTML(content), nil
	default:
		return filetype.IsMIME(content, declaredMIME), nil
	}
}

func (m *Manager) ExtractMarkdown(ctx context.Context, mimeType string, content []byte) (string, error) {
	switch mimeType {
	case "text/plain", "text/markdown":
		return string(content), nil
	case "text/html":
		return extractHTMLMarkdown(content)
	case "audio/wav", "audio/x-wav":
		return m.transcribeAudio(content)
	default:
		return "", fmt.Errorf("extract markdown: unsupported mime type %q", mimeType)
	}
}

func looksLikeHTML(content []byte) bool {
	trimmed := strings.TrimSpace(string(content))
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}

func extractHTMLMarkdown(content []byte) (string, error) {
	html := string(content)
	base, _ := url.Parse("about:blank")

	articleHTML := html
	title := ""
	if art, err := readability.FromReader(strings.NewReader(html), base); err == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(""))
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}
