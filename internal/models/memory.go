package models

import "fmt"

// MemoryTier selects one of the two append-only memory logs of a user.
type MemoryTier string

const (
	MemoryShort MemoryTier = "short"
	MemoryLong  MemoryTier = "long"
)

func ParseMemoryTier(s string) (MemoryTier, error) {
	switch MemoryTier(s) {
	case MemoryShort, MemoryLong:
		return MemoryTier(s), nil
	default:
		return "", fmt.Errorf("unknown memory tier %q", s)
	}
}

type MemoryRecord struct {
	UserID int64      `json:"user_id"`
	Tier   MemoryTier `json:"tier"`
	Line   string     `json:"line"`
}

// Labelled formats a memory line as "<Label>: <content>".
func Labelled(label, content string) string {
	return label + ": " + content
}
