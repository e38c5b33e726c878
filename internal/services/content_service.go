// internal/services/content_service.go
package services

import (
	"context"

	"github.com/claritutor/claritutor/internal/cms"
	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
)

// ContentService serves read-only study content from the headless repository.
// Lists come back empty when the repository holds nothing; single-object
// lookups turn absence into a not-found error for uniform handler mapping.
type ContentService struct {
	client *cms.Client
}

// NewContentService wires the content reader.
func NewContentService(client *cms.Client) *ContentService {
	return &ContentService{client: client}
}

// ListStudents returns all student profiles.
func (s *ContentService) ListStudents(ctx context.Context) ([]models.StudentProfile, error) {
	students, err := s.client.GetStudents(ctx)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch student profiles", err)
	}
	return students, nil
}

// GetStudent returns one student profile by slug.
func (s *ContentService) GetStudent(ctx context.Context, slug string) (*models.StudentProfile, error) {
	student, err := s.client.GetStudent(ctx, slug)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch student profile", err)
	}
	if student == nil {
		return nil, apperrors.NewNotFoundError("student profile not found: "+slug, nil)
	}
	return student, nil
}

// ListStudyMaterials returns all study materials.
func (s *ContentService) ListStudyMaterials(ctx context.Context) ([]models.StudyMaterial, error) {
	materials, err := s.client.GetStudyMaterials(ctx)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study materials", err)
	}
	return materials, nil
}

// GetStudyMaterial returns one study material by slug.
func (s *ContentService) GetStudyMaterial(ctx context.Context, slug string) (*models.StudyMaterial, error) {
	material, err := s.client.GetStudyMaterial(ctx, slug)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study material", err)
	}
	if material == nil {
		return nil, apperrors.NewNotFoundError("study material not found: "+slug, nil)
	}
	return material, nil
}

// ListNotes returns all notes.
func (s *ContentService) ListNotes(ctx context.Context) ([]models.Note, error) {
	notes, err := s.client.GetNotes(ctx)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch notes", err)
	}
	return notes, nil
}

// GetNote returns one note by slug.
func (s *ContentService) GetNote(ctx context.Context, slug string) (*models.Note, error) {
	note, err := s.client.GetNote(ctx, slug)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch note", err)
	}
	if note == nil {
		return nil, apperrors.NewNotFoundError("note not found: "+slug, nil)
	}
	return note, nil
}

// ListStudySessions returns all recorded study sessions.
func (s *ContentService) ListStudySessions(ctx context.Context) ([]models.StudySession, error) {
	sessions, err := s.client.GetStudySessions(ctx)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study sessions", err)
	}
	return sessions, nil
}

// GetStudySession returns one study session by slug.
func (s *ContentService) GetStudySession(ctx context.Context, slug string) (*models.StudySession, error) {
	session, err := s.client.GetStudySession(ctx, slug)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study session", err)
	}
	if session == nil {
		return nil, apperrors.NewNotFoundError("study session not found: "+slug, nil)
	}
	return session, nil
}

// ListStudyProjects returns all study projects.
func (s *ContentService) ListStudyProjects(ctx context.Context) ([]models.StudyProject, error) {
	projects, err := s.client.GetStudyProjects(ctx)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study projects", err)
	}
	return projects, nil
}

// GetStudyProject returns one study project by slug.
func (s *ContentService) GetStudyProject(ctx context.Context, slug string) (*models.StudyProject, error) {
	project, err := s.client.GetStudyProject(ctx, slug)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch study project", err)
	}
	if project == nil {
		return nil, apperrors.NewNotFoundError("study project not found: "+slug, nil)
	}
	return project, nil
}

// ListProjectsByStudent returns the study projects owned by a student.
func (s *ContentService) ListProjectsByStudent(ctx context.Context, studentID string) ([]models.StudyProject, error) {
	if studentID == "" {
		return nil, apperrors.NewValidationError("student id is required", nil)
	}
	projects, err := s.client.GetProjectsByStudent(ctx, studentID)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to fetch student projects", err)
	}
	return projects, nil
}
