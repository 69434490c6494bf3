package gateway

import (
	"encoding/json"
	"strings"
)

// envelope covers the response shapes of the providers the gateway fronts.
// Fields whose type varies between providers stay raw.
type envelope struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Candidates []struct {
		Content struct {
			Parts []textPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Content    json.RawMessage `json:"content"`
	OutputText *string         `json:"output_text"`
	Output     []struct {
		Content []textPart `json:"content"`
	} `json:"output"`
	Message *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Text *string `json:"text"`
}

// hasTextPath reports whether any known location for completion text is
// present, even when the text itself is blank.
func (e envelope) hasTextPath() bool {
	return len(e.Choices) > 0 ||
		len(e.Candidates) > 0 ||
		len(e.Content) > 0 ||
		e.OutputText != nil ||
		len(e.Output) > 0 ||
		e.Message != nil ||
		e.Text != nil
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type attempt func(envelope) string

// attempts are tried in order; the first non-blank result wins.
var attempts = []attempt{
	func(e envelope) string {
		if len(e.Choices) == 0 {
			return ""
		}
		return rawText(e.Choices[0].Message.Content)
	},
	func(e envelope) string {
		if len(e.Choices) == 0 {
			return ""
		}
		return e.Choices[0].Text
	},
	func(e envelope) string {
		if len(e.Candidates) == 0 {
			return ""
		}
		return joinParts(e.Candidates[0].Content.Parts)
	},
	func(e envelope) string { return rawText(e.Content) },
	func(e envelope) string { return deref(e.OutputText) },
	func(e envelope) string {
		var parts []textPart
		for _, o := range e.Output {
			parts = append(parts, o.Content...)
		}
		return joinParts(parts)
	},
	func(e envelope) string {
		if e.Message == nil {
			return ""
		}
		return rawText(e.Message.Content)
	},
	func(e envelope) string { return deref(e.Text) },
}

// CompletionText locates the completion text inside a provider response body.
// A known path holding blank text yields ("", true) so the caller can fall
// back; ok is false only when the body has no known path at all.
func CompletionText(body []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	for _, try := range attempts {
		if text := try(env); strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", env.hasTextPath()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// rawText accepts either a JSON string or an array of text parts.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []textPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		return joinParts(parts)
	}
	return ""
}

func joinParts(parts []textPart) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" && p.Type != "output_text" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
