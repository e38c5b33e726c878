// internal/models/persona.go
package models

// TutorPersona is a fixed behavioral configuration selectable by the user to
// bias generated responses. Personas are defined at process start and never
// mutated.
type TutorPersona struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Subject        string `json:"subject"`
	Description    string `json:"description"`
	SystemPrompt   string `json:"system_prompt"`
	Specialization string `json:"specialization"`
	TeachingStyle  string `json:"teaching_style"`
	Icon           string `json:"icon"`
}
