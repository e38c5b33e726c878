// internal/models/content.go
package models

import (
	"time"
)

// Content object types recognized by the repository.
const (
	TypeStudentProfiles = "student-profiles"
	TypeStudyMaterials  = "study-materials"
	TypeNotes           = "notes"
	TypeStudySessions   = "study-sessions"
	TypeStudyProjects   = "study-projects"
)

// ContentObject is the envelope every repository object shares. Metadata is
// decoded into the typed per-type structs below rather than kept as an open
// map.
type ContentObject struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Content    string    `json:"content,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// SelectValue mirrors the repository's select-dropdown fields.
type SelectValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MediaFile is an uploaded file reference.
type MediaFile struct {
	URL      string `json:"url"`
	ImgixURL string `json:"imgix_url,omitempty"`
}

// StudentProfile is a student-profiles object.
type StudentProfile struct {
	ContentObject
	Metadata StudentProfileMetadata `json:"metadata"`
}

type StudentProfileMetadata struct {
	FullName           string       `json:"full_name"`
	Email              string       `json:"email"`
	ProfilePicture     *MediaFile   `json:"profile_picture,omitempty"`
	EducationLevel     *SelectValue `json:"education_level,omitempty"`
	PrimarySubjects    string       `json:"primary_subjects,omitempty"`
	LearningStyle      *SelectValue `json:"learning_style,omitempty"`
	StudyGoals         string       `json:"study_goals,omitempty"`
	TotalStudyHours    float64      `json:"total_study_hours,omitempty"`
	DocumentsUploaded  int          `json:"documents_uploaded,omitempty"`
	NotesCreated       int          `json:"notes_created,omitempty"`
	LearningStreakDays int          `json:"learning_streak_days,omitempty"`
	AccountType        *SelectValue `json:"account_type,omitempty"`
	JoinDate           string       `json:"join_date,omitempty"`
	LastActive         string       `json:"last_active,omitempty"`
}

// StudyMaterial is a study-materials object.
type StudyMaterial struct {
	ContentObject
	Metadata StudyMaterialMetadata `json:"metadata"`
}

type StudyMaterialMetadata struct {
	DocumentTitle    string         `json:"document_title"`
	DocumentType     *SelectValue   `json:"document_type,omitempty"`
	Subject          string         `json:"subject,omitempty"`
	UploadFile       *MediaFile     `json:"upload_file,omitempty"`
	ExtractedContent string         `json:"extracted_content,omitempty"`
	ContentChunks    []ContentChunk `json:"content_chunks,omitempty"`
	KeyConcepts      []string       `json:"key_concepts,omitempty"`
	SourceURL        string         `json:"source_url,omitempty"`
	Author           string         `json:"author,omitempty"`
	PublicationDate  string         `json:"publication_date,omitempty"`
	PageCount        int            `json:"page_count,omitempty"`
	DifficultyLevel  *SelectValue   `json:"difficulty_level,omitempty"`
	Tags             string         `json:"tags,omitempty"`
	StudentOwner     string         `json:"student_owner,omitempty"`
	ProcessingStatus *SelectValue   `json:"processing_status,omitempty"`
}

type ContentChunk struct {
	ChunkID int    `json:"chunk_id"`
	Content string `json:"content"`
}

// Note is a notes object.
type Note struct {
	ContentObject
	Metadata NoteMetadata `json:"metadata"`
}

type NoteMetadata struct {
	NoteTitle      string       `json:"note_title"`
	NoteType       *SelectValue `json:"note_type,omitempty"`
	Content        string       `json:"content,omitempty"`
	KeyTakeaways   []string     `json:"key_takeaways,omitempty"`
	StudyQuestions []string     `json:"study_questions,omitempty"`
	Subject        string       `json:"subject,omitempty"`
	Tags           string       `json:"tags,omitempty"`
	Priority       *SelectValue `json:"priority,omitempty"`
	AIGenerated    bool         `json:"ai_generated,omitempty"`
	StudentOwner   string       `json:"student_owner,omitempty"`
	CreatedDate    string       `json:"created_date,omitempty"`
	LastReviewed   string       `json:"last_reviewed,omitempty"`
	ReviewCount    int          `json:"review_count,omitempty"`
}

// StudySession is a study-sessions object.
type StudySession struct {
	ContentObject
	Metadata StudySessionMetadata `json:"metadata"`
}

type StudySessionMetadata struct {
	SessionTitle       string              `json:"session_title"`
	SessionType        *SelectValue        `json:"session_type,omitempty"`
	ConversationLog    []ConversationEntry `json:"conversation_history,omitempty"`
	KeyInsights        string              `json:"key_insights,omitempty"`
	QuestionsAsked     int                 `json:"questions_asked,omitempty"`
	ComprehensionScore int                 `json:"comprehension_score,omitempty"`
	DurationMinutes    int                 `json:"duration_minutes,omitempty"`
	Student            string              `json:"student,omitempty"`
	SessionDate        string              `json:"session_date,omitempty"`
	Status             *SelectValue        `json:"status,omitempty"`
	FollowUpSuggested  bool                `json:"follow_up_suggested,omitempty"`
}

type ConversationEntry struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// StudyProject is a study-projects object.
type StudyProject struct {
	ContentObject
	Metadata StudyProjectMetadata `json:"metadata"`
}

type StudyProjectMetadata struct {
	ProjectName   string       `json:"project_name"`
	ProjectType   *SelectValue `json:"project_type,omitempty"`
	Description   string       `json:"description,omitempty"`
	Subject       string       `json:"subject,omitempty"`
	DueDate       string       `json:"due_date,omitempty"`
	Status        *SelectValue `json:"status,omitempty"`
	ProgressNotes string       `json:"progress_notes,omitempty"`
	StudentOwner  string       `json:"student_owner,omitempty"`
	Milestones    []string     `json:"milestones,omitempty"`
	CompletionPct int          `json:"completion_percentage,omitempty"`
}
