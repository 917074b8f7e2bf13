package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// GroupPolicy bounds group creation.
type GroupPolicy struct {
	MaxActiveGroups int
	MinCapacity     int
	MaxCapacity     int
}

// DefaultGroupPolicy returns the stock limits: five active groups, capacity 2..50.
func DefaultGroupPolicy() GroupPolicy {
	return GroupPolicy{MaxActiveGroups: 5, MinCapacity: 2, MaxCapacity: 50}
}

func (p GroupPolicy) normalized() GroupPolicy {
	def := DefaultGroupPolicy()
	if p.MaxActiveGroups <= 0 {
		p.MaxActiveGroups = def.MaxActiveGroups
	}
	if p.MinCapacity < def.MinCapacity {
		p.MinCapacity = def.MinCapacity
	}
	if p.MaxCapacity < p.MinCapacity {
		p.MaxCapacity = def.MaxCapacity
	}
	return p
}

// ContentPolicy governs what message content is accepted.
// The denylist is a plain case-insensitive substring match, not moderation.
type ContentPolicy struct {
	Denylist      []string
	MaxLength     int
	PreviewLength int
}

// DefaultContentPolicy returns the stock denylist and limits.
func DefaultContentPolicy() ContentPolicy {
	return ContentPolicy{
		Denylist:      []string{"spam", "lixo", "idiota", "burro", "estúpido"},
		MaxLength:     1000,
		PreviewLength: 50,
	}
}

func (p ContentPolicy) normalized() ContentPolicy {
	def := DefaultContentPolicy()
	if p.MaxLength <= 0 {
		p.MaxLength = def.MaxLength
	}
	if p.PreviewLength <= 0 {
		p.PreviewLength = def.PreviewLength
	}
	lowered := make([]string, 0, len(p.Denylist))
	for _, word := range p.Denylist {
		if w := strings.ToLower(strings.TrimSpace(word)); w != "" {
			lowered = append(lowered, w)
		}
	}
	p.Denylist = lowered
	return p
}

// Matches reports whether content contains a denylisted substring.
func (p ContentPolicy) Matches(content string) bool {
	lower := strings.ToLower(content)
	for _, word := range p.Denylist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Preview truncates content to the policy's preview length, appending "..." when cut.
func (p ContentPolicy) Preview(content string) string {
	return preview(content, p.PreviewLength)
}

func preview(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit]) + "..."
}

// plainText trims surrounding whitespace and drops control characters other
// than newlines and tabs. Everything else is stored exactly as typed; the API
// serves JSON, so escaping is left to whoever renders the text.
func plainText(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
