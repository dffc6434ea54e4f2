package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/llm-gateway/internal/httpx"
	"github.com/yungbote/llm-gateway/internal/logger"
)

// YouTube fetches video transcripts from the public timedtext
// endpoint. No API key is required.
type YouTube struct {
	log        *logger.Logger
	httpClient *http.Client
}

func NewYouTube(log *logger.Logger) *YouTube {
	return &YouTube{
		log:        log.With("search", "youtube"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExtractVideoID pulls the 11-character video ID out of the URL
// shapes YouTube uses, or returns the input unchanged when it already
// looks like a bare ID.
func ExtractVideoID(urlOrID string) string {
	s := strings.TrimSpace(urlOrID)
	switch {
	case strings.Contains(s, "youtube.com/watch?v="):
		s = strings.SplitN(s, "watch?v=", 2)[1]
		return strings.SplitN(s, "&", 2)[0]
	case strings.Contains(s, "youtu.be/"):
		s = strings.SplitN(s, "youtu.be/", 2)[1]
		return strings.SplitN(s, "?", 2)[0]
	default:
		return s
	}
}

type timedText struct {
	Texts []struct {
		Content string `xml:",chardata"`
	} `xml:"text"`
}

func (y *YouTube) Transcript(ctx context.Context, urlOrID string) (TranscriptResult, error) {
	videoID := ExtractVideoID(urlOrID)
	if videoID == "" {
		return TranscriptResult{}, fmt.Errorf("could not determine video id from %q", urlOrID)
	}

	u := fmt.Sprintf("https://www.youtube.com/api/timedtext?lang=en&v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return TranscriptResult{}, err
	}
	resp, err := y.httpClient.Do(req)
	if err != nil {
		return TranscriptResult{}, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return TranscriptResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return TranscriptResult{}, &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Truncate(string(payload), 256)}
	}
	if len(payload) == 0 {
		return TranscriptResult{}, fmt.Errorf("no transcript available for video %s", videoID)
	}

	var tt timedText
	if err := xml.Unmarshal(payload, &tt); err != nil {
		return TranscriptResult{}, fmt.Errorf("transcript decode for %s: %w", videoID, err)
	}
	var sb strings.Builder
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Content))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	if sb.Len() == 0 {
		return TranscriptResult{}, fmt.Errorf("transcript for video %s is empty", videoID)
	}

	y.log.Debug("Fetched video transcript", "video_id", videoID, "chars", sb.Len())
	return TranscriptResult{VideoID: videoID, Transcript: sb.String()}, nil
}
