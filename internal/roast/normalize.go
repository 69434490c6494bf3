package roast

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Category classifies the flaw a roast points at.
type Category string

const (
	CategoryVague          Category = "vague"
	CategoryCliche         Category = "cliche"
	CategoryOutdated       Category = "outdated"
	CategoryMissingMetrics Category = "missing_metrics"
	CategoryBuzzwords      Category = "buzzwords"
	CategoryOther          Category = "other"
)

const (
	fallbackOriginalLen = 100
	fallbackRoastLen    = 500
	ellipsis            = "..."
)

// Item is one critique of one resume line.
type Item struct {
	Original string   `json:"original"`
	Roast    string   `json:"roast"`
	Category Category `json:"category"`
}

// Result is always non-empty. Fallback marks the synthesized single item used
// when the completion could not be parsed.
type Result struct {
	Items    []Item
	Fallback bool
}

type payload struct {
	Roasts *[]rawItem `json:"roasts"`
}

type rawItem struct {
	Original string `json:"original"`
	Roast    string `json:"roast"`
	Category string `json:"category"`
}

// Normalize turns a raw completion into a critique batch. It never fails.
func Normalize(raw, requestText string) Result {
	if items, ok := parse(raw); ok {
		return Result{Items: items}
	}
	return Result{
		Items: []Item{{
			Original: prefix(requestText, fallbackOriginalLen),
			Roast:    prefix(raw, fallbackRoastLen),
			Category: CategoryOther,
		}},
		Fallback: true,
	}
}

func parse(raw string) ([]Item, bool) {
	cleaned := stripFences(raw)
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var p payload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, false
	}
	if p.Roasts == nil || len(*p.Roasts) == 0 {
		return nil, false
	}
	items := make([]Item, 0, len(*p.Roasts))
	for _, r := range *p.Roasts {
		items = append(items, Item{
			Original: r.Original,
			Roast:    r.Roast,
			Category: ParseCategory(r.Category),
		})
	}
	return items, true
}

// stripFences drops markdown code-fence lines such as ``` or ```json.
func stripFences(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isFence(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isFence(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "```") {
		return false
	}
	for _, r := range strings.TrimPrefix(line, "```") {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// ParseCategory clamps a model-supplied category to the closed set.
func ParseCategory(raw string) Category {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch c := Category(normalized); c {
	case CategoryVague, CategoryCliche, CategoryOutdated, CategoryMissingMetrics, CategoryBuzzwords, CategoryOther:
		return c
	default:
		return CategoryOther
	}
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + ellipsis
}
