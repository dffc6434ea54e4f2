package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GeminiMedia is the slice of the Gemini client the media parsers use.
type GeminiMedia interface {
	GenerateFromBytes(ctx context.Context, mimeType string, data []byte, instruction string) (string, error)
}

const (
	pdfInstruction      = "Extract all original content from the PDF file in plain text format."
	richTextInstruction = "Extract all original content from this document in plain text format, preserving structure and formatting where possible."
	imageInstruction    = "Extract all text and describe the content visible in this image in detail."
	audioInstruction    = "Transcribe this audio content and provide a detailed description of what you hear."
	videoInstruction    = "Analyze this video content and provide a detailed description of what is happening, including any text, speech, and significant visual elements."
)

var pdfMimes = map[string]string{
	".pdf": "application/pdf",
}

var richTextMimes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".rtf":  "application/rtf",
	".dot":  "application/msword",
	".dotx": "application/vnd.openxmlformats-officedocument.wordprocessingml.template",
	".hwp":  "application/x-hwp",
	".hwpx": "application/x-hwpx",
}

var imageMimes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

var audioMimes = map[string]string{
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".mp4":  "audio/mp4",
	".opus": "audio/opus",
	".pcm":  "audio/pcm",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

var videoMimes = map[string]string{
	".flv":    "video/x-flv",
	".mov":    "video/quicktime",
	".mpeg":   "video/mpeg",
	".mpegps": "video/mpeg",
	".mpg":    "video/mpeg",
	".mp4":    "video/mp4",
	".webm":   "video/webm",
	".wmv":    "video/x-ms-wmv",
	".3gpp":   "video/3gpp",
}

const mediaParseTimeout = 60 * time.Second

// geminiParser sends the raw file bytes inline to Gemini with an
// extraction instruction appropriate for the media family.
type geminiParser struct {
	name        string
	media       GeminiMedia
	mimes       map[string]string
	instruction string
}

func (p *geminiParser) Name() string { return p.name }

func (p *geminiParser) Parse(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := p.mimes[ext]
	if !ok {
		return "", fmt.Errorf("%s does not handle %s", p.name, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, mediaParseTimeout)
	defer cancel()

	text, err := p.media.GenerateFromBytes(ctx, mime, data, p.instruction)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s extracted no content", p.name)
	}
	return text, nil
}
