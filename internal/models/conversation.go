// internal/models/conversation.go
package models

import (
	"time"
)

// Message roles within a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a tutoring conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an ordered, append-only sequence of messages bound to a
// tutor persona. Title and tags are derived asynchronously from the first
// user message; Summary is computed on save.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject,omitempty"`
	PersonaID string    `json:"persona_id"`
	Messages  []Message `json:"messages"`
	Tags      []string  `json:"tags,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Student complexity levels used to steer the generator.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ConversationContext carries per-conversation steering signals derived once
// from content-complexity analysis of the opening message.
type ConversationContext struct {
	StudentLevel        string   `json:"student_level,omitempty"`
	LearningPreferences []string `json:"learning_preferences,omitempty"`
	PreviousTopics      []string `json:"previous_topics,omitempty"`
}

// QuickAction is a pre-canned user turn surfaced next to the chat input and
// highlighted when the confusion heuristic fires.
type QuickAction struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}
