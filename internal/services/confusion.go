// internal/services/confusion.go
package services

import (
	"strings"

	"github.com/claritutor/claritutor/internal/models"
)

// Lexical signals that a student is stuck. Deliberately approximate: false
// positives are acceptable since the only consequence is surfacing extra
// clarification actions.
var confusionIndicators = []string{
	"confused", "don't understand", "what do you mean", "can you explain",
	"lost", "unclear", "not sure", "could you clarify", "what?", "how?",
	"why?", "doesn't make sense", "repeat", "again please",
}

// DetectConfusion inspects the last three turns for lexical confusion
// signals. Fewer than two total turns never counts as confused. A repeated
// token across the two most recent user turns counts as an unresolved
// question.
func DetectConfusion(messages []models.Message) bool {
	if len(messages) < 2 {
		return false
	}

	recent := messages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	for _, msg := range recent {
		if msg.Role != models.RoleUser {
			continue
		}
		content := strings.ToLower(msg.Content)
		for _, keyword := range confusionIndicators {
			if strings.Contains(content, keyword) {
				return true
			}
		}
	}

	var userMessages []string
	for _, msg := range recent {
		if msg.Role == models.RoleUser {
			userMessages = append(userMessages, strings.ToLower(msg.Content))
		}
	}

	if len(userMessages) >= 2 {
		last := userMessages[len(userMessages)-1]
		previous := userMessages[len(userMessages)-2]
		for _, word := range strings.Fields(last) {
			if strings.Contains(previous, word) {
				return true
			}
		}
	}

	return false
}
