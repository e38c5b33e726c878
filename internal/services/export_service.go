// internal/services/export_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/store"
)

var supportedExportFormats = []string{"json", "markdown", "txt"}

// ExportService renders saved conversations into downloadable documents and
// keeps a copy under the data directory.
type ExportService struct {
	repo    store.Repository
	dataDir string
}

// NewExportService wires the exporter. dataDir is where rendered exports are
// archived.
func NewExportService(repo store.Repository, dataDir string) *ExportService {
	return &ExportService{repo: repo, dataDir: dataDir}
}

// ExportConversation renders one saved conversation in the requested format.
func (s *ExportService) ExportConversation(ctx context.Context, userID, conversationID, format string) (*models.ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if !containsString(supportedExportFormats, format) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unsupported export format: %s (supported: %s)", format, strings.Join(supportedExportFormats, ", ")), nil)
	}
	if userID == "" {
		return nil, apperrors.NewUnauthenticatedError("sign in to export conversations")
	}

	conv, err := s.repo.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperrors.NewNotFoundError("conversation not found", nil)
	}

	content, err := s.formatConversation(conv, format)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to render export", err)
	}

	result := &models.ExportResult{
		FileName:   exportFileName(conv, format),
		Format:     format,
		Content:    content,
		Size:       int64(len(content)),
		ExportedAt: time.Now(),
	}

	if path, err := s.archiveExport(result); err == nil {
		result.FilePath = path
	}
	// Archive failure is non-fatal: the rendered content still goes out.

	return result, nil
}

func (s *ExportService) formatConversation(conv *models.Conversation, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "markdown":
		return formatAsMarkdown(conv), nil
	case "txt":
		return formatAsText(conv), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatAsMarkdown(conv *models.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "- Subject: %s\n", conv.Subject)
	fmt.Fprintf(&b, "- Tutor: %s\n", conv.PersonaID)
	fmt.Fprintf(&b, "- Date: %s\n", conv.CreatedAt.Format("2006-01-02 15:04"))
	if len(conv.Tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(conv.Tags, ", "))
	}
	if conv.Summary != "" {
		fmt.Fprintf(&b, "\n> %s\n", conv.Summary)
	}
	b.WriteString("\n---\n")
	for _, msg := range conv.Messages {
		speaker := "Tutor"
		if msg.Role == models.RoleUser {
			speaker = "Student"
		}
		fmt.Fprintf(&b, "\n**%s** (%s)\n\n%s\n", speaker, msg.Timestamp.Format("15:04"), msg.Content)
	}
	return b.String()
}

func formatAsText(conv *models.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", conv.Title, strings.Repeat("=", len(conv.Title)))
	if conv.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", conv.Summary)
	}
	for _, msg := range conv.Messages {
		speaker := "Tutor"
		if msg.Role == models.RoleUser {
			speaker = "Student"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.Format("2006-01-02 15:04"), speaker, msg.Content)
	}
	return b.String()
}

func (s *ExportService) archiveExport(result *models.ExportResult) (string, error) {
	exportDir := filepath.Join(s.dataDir, "exports")
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(exportDir, result.FileName)
	if err := os.WriteFile(path, []byte(result.Content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func exportFileName(conv *models.Conversation, format string) string {
	ext := format
	if format == "markdown" {
		ext = "md"
	}

	slug := strings.ToLower(conv.Title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "conversation"
	}

	return fmt.Sprintf("%s-%s.%s", slug, time.Now().Format("20060102-150405"), ext)
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
