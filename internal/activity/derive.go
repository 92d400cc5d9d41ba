package activity

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/meridianhq/agentdesk/pkg/models"
)

// Display derivations. All of these are presentation enhancements:
// anything malformed degrades to "absent" instead of failing the turn.

const (
	summaryMaxLen = 80
	// mediaMaxDepth bounds the JSON traversal so adversarial payloads
	// cannot cause runaway recursion.
	mediaMaxDepth = 8
	mediaMaxRefs  = 16
)

// SummarizeInput extracts a single-line summary from a tool's
// structured input. Returns "" when no summary applies.
func SummarizeInput(toolName string, input map[string]any) string {
	if input == nil {
		return ""
	}
	var raw string
	switch toolName {
	case "Bash", "BashOutput":
		raw = stringField(input, "command")
	case "Grep", "Glob":
		raw = stringField(input, "pattern")
	case "Read", "Edit", "Write", "MultiEdit", "NotebookEdit":
		raw = stringField(input, "file_path")
	case "WebFetch", "WebSearch":
		raw = stringField(input, "url")
		if raw == "" {
			raw = stringField(input, "query")
		}
	case TaskToolName:
		raw = stringField(input, "description")
	default:
		return ""
	}
	return truncateLine(raw, summaryMaxLen)
}

// DiffLineDelta estimates the size of a file edit as the line-count
// delta between the before and after text blocks, clamped at zero.
// Returns false for tools that do not edit text.
func DiffLineDelta(toolName string, input map[string]any) (int, bool) {
	switch toolName {
	case "Edit":
		oldText := stringField(input, "old_string")
		newText := stringField(input, "new_string")
		if oldText == "" && newText == "" {
			return 0, false
		}
		return clampZero(lineCount(newText) - lineCount(oldText)), true
	case "Write":
		content := stringField(input, "content")
		if content == "" {
			return 0, false
		}
		return lineCount(content), true
	default:
		return 0, false
	}
}

var mediaURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+\.(?:png|jpe?g|gif|webp|svg|mp4|webm|mp3|wav)`)

// ExtractMedia recovers media references embedded in a tool's raw
// result. Structured JSON is walked with a bounded depth; when the
// payload is not JSON it falls back to matching URL-shaped substrings.
func ExtractMedia(result string) []models.MediaRef {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var payload any
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			var refs []models.MediaRef
			walkMedia(payload, 0, &refs)
			if len(refs) > 0 {
				return refs
			}
		}
	}

	matches := mediaURLPattern.FindAllString(trimmed, mediaMaxRefs)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]models.MediaRef, 0, len(matches))
	seen := map[string]bool{}
	for _, url := range matches {
		if seen[url] {
			continue
		}
		seen[url] = true
		refs = append(refs, models.MediaRef{URL: url, MediaType: mediaTypeFor(url)})
	}
	return refs
}

// walkMedia traverses a decoded JSON value looking for media objects
// ({"url": ...} with a media-looking url, or {"type": "image", ...}).
func walkMedia(node any, depth int, refs *[]models.MediaRef) {
	if depth > mediaMaxDepth || len(*refs) >= mediaMaxRefs {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		url, _ := v["url"].(string)
		if url != "" && mediaURLPattern.MatchString(url) {
			mediaType, _ := v["mediaType"].(string)
			if mediaType == "" {
				mediaType, _ = v["media_type"].(string)
			}
			if mediaType == "" {
				mediaType = mediaTypeFor(url)
			}
			*refs = append(*refs, models.MediaRef{URL: url, MediaType: mediaType})
		}
		for _, child := range v {
			walkMedia(child, depth+1, refs)
		}
	case []any:
		for _, child := range v {
			walkMedia(child, depth+1, refs)
		}
	}
}

func mediaTypeFor(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(lower, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(lower, ".webm"):
		return "video/webm"
	case strings.HasSuffix(lower, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(lower, ".wav"):
		return "audio/wav"
	default:
		return ""
	}
}

func stringField(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max-1]) + "…"
	}
	return s
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
