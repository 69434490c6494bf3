package roast

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/system.txt
	systemPrompt string
)

// UserPromptPrefix precedes the resume text in the user turn.
const UserPromptPrefix = "Roast this resume content:\n\n"

// SystemPrompt returns the critic instruction sent with every roast.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// UserPrompt wraps bounded resume text for the user turn.
func UserPrompt(req Request) string {
	return UserPromptPrefix + req.Text
}
