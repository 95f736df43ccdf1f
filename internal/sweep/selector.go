package sweep

import (
	"strings"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
)

// BroadcastMarker addresses every member of a room.
const BroadcastMarker = "[toall]"

// Selector picks the message a room's read pointer should move to.
// It is immutable after construction and safe for concurrent use.
type Selector struct {
	markers []string
}

// NewSelector builds a selector that treats broadcasts and mentions of any of
// accountIDs as exclusion triggers.
func NewSelector(accountIDs []string) *Selector {
	markers := make([]string, 0, len(accountIDs)+1)
	markers = append(markers, BroadcastMarker)
	for _, id := range accountIDs {
		markers = append(markers, "[To:"+id+"]")
	}
	return &Selector{markers: markers}
}

// Excluded reports whether body carries a broadcast or a watched mention.
func (s *Selector) Excluded(body string) bool {
	for _, m := range s.markers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// Select returns the message right after the most recent excluded one, or the
// oldest message when none is excluded. It returns false for an empty list or
// when the most recent excluded message is also the last one.
func (s *Selector) Select(messages []chatwork.Message) (chatwork.Message, bool) {
	if len(messages) == 0 {
		return chatwork.Message{}, false
	}

	target := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if s.Excluded(messages[i].Body) {
			target = i + 1
			break
		}
	}

	if target >= len(messages) {
		return chatwork.Message{}, false
	}
	return messages[target], true
}

// SelectTarget is a convenience wrapper around NewSelector(accountIDs).Select.
func SelectTarget(messages []chatwork.Message, accountIDs []string) (chatwork.Message, bool) {
	return NewSelector(accountIDs).Select(messages)
}
