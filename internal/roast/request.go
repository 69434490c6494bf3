package roast

import "unicode/utf8"

const (
	// MaxLen is the most resume characters sent upstream.
	MaxLen = 2000
	// TruncationMarker is appended after MaxLen characters of a longer resume.
	TruncationMarker = "\n\n[Content truncated for processing]"
)

// Request is the bounded text sent to the critique service.
type Request struct {
	Text      string
	Truncated bool
}

// Build bounds text to MaxLen runes. It never splits a multi-byte character.
func Build(text string) Request {
	if utf8.RuneCountInString(text) <= MaxLen {
		return Request{Text: text}
	}
	runes := []rune(text)
	return Request{
		Text:      string(runes[:MaxLen]) + TruncationMarker,
		Truncated: true,
	}
}
