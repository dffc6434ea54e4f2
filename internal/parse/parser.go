package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/llm-gateway/internal/logger"
)

// Parser extracts plain text from one family of file formats.
type Parser interface {
	Name() string
	Parse(ctx context.Context, path string) (string, error)
}

// Result reports the outcome of a parse attempt, including every
// parser that was tried before one succeeded.
type Result struct {
	Status    int
	Text      string
	ToolsUsed []string
}

// Registry maps file extensions to an ordered parser chain. When a
// parser fails the next one in the chain is tried; ambiguous container
// formats like .mp4 carry both a video and an audio parser.
type Registry struct {
	log    *logger.Logger
	chains map[string][]Parser
}

func NewRegistry(g GeminiMedia, log *logger.Logger) *Registry {
	pdf := &geminiParser{name: "GeminiPDFParser", media: g, mimes: pdfMimes, instruction: pdfInstruction}
	rtf := &geminiParser{name: "GeminiRichTextParser", media: g, mimes: richTextMimes, instruction: richTextInstruction}
	img := &geminiParser{name: "GeminiImageParser", media: g, mimes: imageMimes, instruction: imageInstruction}
	aud := &geminiParser{name: "GeminiAudioParser", media: g, mimes: audioMimes, instruction: audioInstruction}
	vid := &geminiParser{name: "GeminiVideoParser", media: g, mimes: videoMimes, instruction: videoInstruction}
	txt := &textParser{}

	chains := map[string][]Parser{
		".pdf": {pdf},
	}
	for ext := range richTextMimes {
		chains[ext] = []Parser{rtf}
	}
	for ext := range imageMimes {
		chains[ext] = []Parser{img}
	}
	for _, ext := range []string{".aac", ".flac", ".mp3", ".m4a", ".mpga", ".opus", ".pcm", ".wav"} {
		chains[ext] = []Parser{aud}
	}
	for _, ext := range []string{".flv", ".mov", ".mpg", ".mpegps", ".wmv", ".3gpp"} {
		chains[ext] = []Parser{vid}
	}
	// Container formats that can hold either track type get both
	// parsers, ordered by the more likely interpretation.
	chains[".mpeg"] = []Parser{aud, vid}
	chains[".mp4"] = []Parser{vid, aud}
	chains[".webm"] = []Parser{vid, aud}

	for _, ext := range textExtensions {
		chains[ext] = []Parser{txt}
	}

	return &Registry{log: log.With("component", "parse"), chains: chains}
}

// Supported reports whether any parser chain handles the extension.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.chains[strings.ToLower(ext)]
	return ok
}

// Parse runs the chain for the file's extension, returning the first
// successful extraction. Every tried parser is recorded in ToolsUsed.
func (r *Registry) Parse(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		r.log.Error("Parse target missing", "path", path, "error", err)
		return Result{Status: 400, Text: fmt.Sprintf("File not found: %s", path)}
	}

	ext := strings.ToLower(filepath.Ext(path))
	chain, ok := r.chains[ext]
	if !ok {
		r.log.Error("Unsupported file type", "ext", ext, "path", path)
		return Result{Status: 400, Text: fmt.Sprintf("Unsupported file type: %s", ext)}
	}

	var tried []string
	for _, p := range chain {
		tried = append(tried, p.Name())
		text, err := p.Parse(ctx, path)
		if err != nil {
			r.log.Warn("Parser failed, trying next", "parser", p.Name(), "path", path, "error", err)
			continue
		}
		r.log.Info("Parsed file", "parser", p.Name(), "path", path, "chars", len(text))
		return Result{Status: 200, Text: text, ToolsUsed: tried}
	}

	r.log.Error("All parsers failed", "path", path, "tried", strings.Join(tried, ","))
	return Result{Status: 400, Text: "All parsers failed or file type not supported correctly", ToolsUsed: tried}
}
