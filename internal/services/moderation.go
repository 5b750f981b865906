package services

import "strings"

// DefaultBlockedPhrases is the built-in blocklist; deployments extend it
// through BLOCKED_PHRASES.
var DefaultBlockedPhrases = []string{
	"мирас мусабек плохой учитель",
	"алихан алматинец",
	"badword3",
}

// Moderator flags user text containing a blocked phrase. It holds no state
// beyond the blocklist and is safe for concurrent use.
type Moderator struct {
	phrases map[string]string // lowercased -> as configured
}

func NewModerator(phrases ...[]string) *Moderator {
	m := &Moderator{phrases: make(map[string]string)}
	for _, list := range phrases {
		for _, p := range list {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			m.phrases[strings.ToLower(p)] = p
		}
	}
	return m
}

// CheckBlocked returns a blocked phrase contained in text, matched case
// insensitively. When several phrases match, which one is reported is
// unspecified.
func (m *Moderator) CheckBlocked(text string) (string, bool) {
	lower := strings.ToLower(text)
	for needle, phrase := range m.phrases {
		if strings.Contains(lower, needle) {
			return phrase, true
		}
	}
	return "", false
}

func (m *Moderator) Len() int {
	return len(m.phrases)
}
