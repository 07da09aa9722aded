// Package replay feeds recorded conversation streams through the engine. A
// transcript is a sequence of render snapshots, exactly what the surrounding
// chat transport would hand the engine on each re-render, so duplicated and
// incrementally-filled messages are reproduced faithfully.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"caseflow/internal/chat"
)

// Step is one observed render of the conversation: the full message list
// plus the connection status at that moment.
type Step struct {
	Status   chat.Status    `json:"status"`
	Messages []chat.Message `json:"messages"`
}

// Transcript is an ordered list of renders.
type Transcript struct {
	Name  string `json:"name,omitempty"`
	Steps []Step `json:"steps"`
}

// Load reads a transcript from a JSON file.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if len(t.Steps) == 0 {
		return nil, fmt.Errorf("transcript has no steps")
	}
	for i := range t.Steps {
		if t.Steps[i].Status == "" {
			t.Steps[i].Status = chat.StatusReady
		}
	}
	return &t, nil
}
