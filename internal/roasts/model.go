package roasts

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("roast not found")
	ErrInvalidReaction = errors.New("invalid reaction")
)

// Reaction is one of the toy counters a visitor can bump.
type Reaction string

const (
	ReactionFire     Reaction = "fire"
	ReactionLaugh    Reaction = "laugh"
	ReactionThinking Reaction = "thinking"
)

// ParseReaction validates a reaction name.
func ParseReaction(raw string) (Reaction, error) {
	switch r := Reaction(strings.ToLower(strings.TrimSpace(raw))); r {
	case ReactionFire, ReactionLaugh, ReactionThinking:
		return r, nil
	default:
		return "", ErrInvalidReaction
	}
}

func (r Reaction) column() (string, error) {
	switch r {
	case ReactionFire:
		return "fire_count", nil
	case ReactionLaugh:
		return "laugh_count", nil
	case ReactionThinking:
		return "thinking_count", nil
	default:
		return "", ErrInvalidReaction
	}
}

// Record is one persisted critique item.
type Record struct {
	ID            string    `json:"id"`
	OriginalText  string    `json:"original_text"`
	RoastFeedback string    `json:"roast_feedback"`
	RoastType     string    `json:"roast_type"`
	FireCount     int64     `json:"fire_count"`
	LaughCount    int64     `json:"laugh_count"`
	ThinkingCount int64     `json:"thinking_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRoast is the insert payload; counters always start at zero.
type NewRoast struct {
	OriginalText  string
	RoastFeedback string
	RoastType     string
}

// MaxSample caps Sample regardless of the requested size.
const MaxSample = 20
