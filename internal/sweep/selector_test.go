package sweep

import (
	"testing"

	"github.com/flemzord/chatwork-autoread/internal/chatwork"
)

func msgs(pairs ...string) []chatwork.Message {
	out := make([]chatwork.Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, chatwork.Message{MessageID: pairs[i], Body: pairs[i+1]})
	}
	return out
}

func TestSelectTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		messages []chatwork.Message
		accounts []string
		wantID   string // "" = no target
	}{
		{
			name:     "empty list",
			messages: nil,
		},
		{
			name:     "single plain message",
			messages: msgs("1", "hi"),
			wantID:   "1",
		},
		{
			name:     "no exclusions picks oldest",
			messages: msgs("1", "a", "2", "b", "3", "c"),
			accounts: []string{"9"},
			wantID:   "1",
		},
		{
			name:     "after broadcast",
			messages: msgs("1", "hi", "2", "[toall] alert", "3", "ok"),
			wantID:   "3",
		},
		{
			name:     "mention is last element",
			messages: msgs("1", "[To:9] x"),
			accounts: []string{"9"},
		},
		{
			name:     "only excluded messages",
			messages: msgs("1", "[toall] a", "2", "[To:9] b"),
			accounts: []string{"9"},
		},
		{
			name:     "uses most recent exclusion",
			messages: msgs("1", "[To:9] first", "2", "x", "3", "[toall] second", "4", "y", "5", "z"),
			accounts: []string{"9"},
			wantID:   "4",
		},
		{
			name:     "unwatched mention is ordinary traffic",
			messages: msgs("1", "a", "2", "[To:8] not me", "3", "b"),
			accounts: []string{"9"},
			wantID:   "1",
		},
		{
			name:     "any watched account triggers",
			messages: msgs("1", "a", "2", "[To:8] hey", "3", "b"),
			accounts: []string{"9", "8"},
			wantID:   "3",
		},
		{
			name:     "marker embedded mid-body",
			messages: msgs("1", "a", "2", "fyi [To:9] Bob see above", "3", "b"),
			accounts: []string{"9"},
			wantID:   "3",
		},
		{
			name:     "broadcast marker is case sensitive",
			messages: msgs("1", "a", "2", "[TOALL] loud", "3", "b"),
			wantID:   "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := SelectTarget(tt.messages, tt.accounts)
			if tt.wantID == "" {
				if ok {
					t.Fatalf("got target %q, want none", got.MessageID)
				}
				return
			}
			if !ok {
				t.Fatalf("got no target, want %q", tt.wantID)
			}
			if got.MessageID != tt.wantID {
				t.Errorf("target = %q, want %q", got.MessageID, tt.wantID)
			}
		})
	}
}

func TestSelector_Excluded(t *testing.T) {
	t.Parallel()

	s := NewSelector([]string{"123", "456"})

	tests := []struct {
		body string
		want bool
	}{
		{"hello", false},
		{"[toall] everyone", true},
		{"[To:123] Alice", true},
		{"[To:456]", true},
		{"[To:1234] someone else", false},
		{"[rp aid=123 to=1-2] reply", false},
	}
	for _, tt := range tests {
		if got := s.Excluded(tt.body); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestSelector_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ids := []string{"9"}
	in := msgs("1", "a", "2", "[To:9] b", "3", "c")
	snapshot := append([]chatwork.Message(nil), in...)

	s := NewSelector(ids)
	_, _ = s.Select(in)
	ids[0] = "changed"

	for i := range in {
		if in[i] != snapshot[i] {
			t.Errorf("message %d mutated: %+v", i, in[i])
		}
	}
	if !s.Excluded("[To:9] still watched") {
		t.Error("selector should keep its own copy of the markers")
	}
}
