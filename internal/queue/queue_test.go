package queue

import "testing"

func TestStateIsTerminal(t *testing.T) {
	cases := map[State]bool{
		StateQueued:      false,
		StateDownloading: false,
		StateExtracting:  false,
		StateOCR:         false,
		StateChunking:    false,
		StateEmbedding:   false,
		StateSaving:      false,
		StateReady:       true,
		StateFailed:      true,
		StateError:       true,
		StateUnknown:     true,
	}
	for state, want := range cases {
		if got := state.IsTerminal(); got != want {
			t.Errorf("State(%q).IsTerminal() = %v, want %v", state, got, want)
		}
	}
}
