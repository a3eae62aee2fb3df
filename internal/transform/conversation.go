package transform

import (
	"strings"

	"github.com/goccy/go-json"
)

const unknownSpeaker = "Unknown speaker"

// NameResolver is the part of ParticipantResolver needed to label speakers
type NameResolver interface {
	ResolveName(callID, personID string) string
}

// RenderConversation renders the transcript as "Speaker: text" lines. A
// transcript stored as a JSON string is decoded first.
func RenderConversation(callID string, raw map[string]any, resolver NameResolver) string {
	transcript := raw["transcript"]
	if s, ok := transcript.(string); ok {
		var decoded []any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return s
		}
		transcript = decoded
	}

	utterances, _ := transcript.([]any)
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		utterance, ok := u.(map[string]any)
		if !ok {
			continue
		}
		speaker := unknownSpeaker
		if personID := stringify(utterance["personId"]); personID != "" {
			speaker = resolver.ResolveName(callID, personID)
		}
		lines = append(lines, speaker+": "+getString(utterance, "text"))
	}
	return strings.Join(lines, "\n")
}
