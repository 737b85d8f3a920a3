package nlu

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"command": "greet"}`, `{"command": "greet"}`},
		{"```json\n{\"command\": \"greet\"}\n```", `{"command": "greet"}`},
		{"Sure! {\"reply\": \"hi\"} Hope that helps.", `{"reply": "hi"}`},
		{"no json here", "no json here"},
	}
	for _, tc := range cases {
		if got := extractJSON(tc.in); got != tc.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	b := &Bridge{sessions: make(map[sessionKey]*session)}
	key := sessionKey{channel: "C1", user: "U1"}

	first := b.findOrCreateSession(key)
	if first == nil {
		t.Fatal("expected a session")
	}
	if second := b.findOrCreateSession(key); second != first {
		t.Fatal("expected the existing session to be reused")
	}
	if other := b.findOrCreateSession(sessionKey{channel: "C1", user: "U2"}); other == first {
		t.Fatal("expected sessions to be scoped per user")
	}

	b.dropSession(key)
	if recreated := b.findOrCreateSession(key); recreated == first {
		t.Fatal("expected a fresh session after the drop")
	}
}

func TestNewBridgeRequiresAPIKey(t *testing.T) {
	if _, err := NewBridge("", "gpt-5-mini", nil, nil, nil); err == nil {
		t.Fatal("expected an error for a missing API key")
	}
}
