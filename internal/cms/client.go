// internal/cms/client.go
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/claritutor/claritutor/internal/models"
)

// Client fetches read-only content objects from the headless content
// repository. Not-found is a normal empty/nil result; every other failure
// propagates to the caller. The client performs no caching.
type Client struct {
	baseURL    string
	bucketSlug string
	readKey    string
	httpClient *http.Client
}

// NewClient builds a content repository client. The httpClient may be nil,
// in which case http.DefaultClient is used.
func NewClient(baseURL, bucketSlug, readKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		bucketSlug: bucketSlug,
		readKey:    readKey,
		httpClient: httpClient,
	}
}

type findResponse struct {
	Objects []json.RawMessage `json:"objects"`
	Total   int               `json:"total"`
}

type findOneResponse struct {
	Object json.RawMessage `json:"object"`
}

func (c *Client) objectsURL(query map[string]string) string {
	q, _ := json.Marshal(query)
	params := url.Values{}
	params.Set("query", string(q))
	params.Set("read_key", c.readKey)
	params.Set("depth", "1")
	return fmt.Sprintf("%s/v3/buckets/%s/objects?%s", c.baseURL, c.bucketSlug, params.Encode())
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

// find fetches all objects of a type. A 404 means the type holds no objects
// and yields an empty list.
func (c *Client) find(ctx context.Context, query map[string]string) ([]json.RawMessage, error) {
	body, status, err := c.get(ctx, c.objectsURL(query))
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("content repository error (%d): %s", status, string(body))
	}

	var response findResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode content response: %w", err)
	}

	return response.Objects, nil
}

// findOne fetches a single object by type and slug. A 404 yields (nil, nil).
func (c *Client) findOne(ctx context.Context, objType, slug string) (json.RawMessage, error) {
	query := map[string]string{"type": objType, "slug": slug}
	body, status, err := c.get(ctx, c.objectsURL(query))
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("content repository error (%d): %s", status, string(body))
	}

	var response findOneResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode content response: %w", err)
	}
	if len(response.Object) == 0 || string(response.Object) == "null" {
		return nil, nil
	}

	return response.Object, nil
}

func decodeList[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("failed to decode content object: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetStudents lists all student-profiles objects.
func (c *Client) GetStudents(ctx context.Context) ([]models.StudentProfile, error) {
	raw, err := c.find(ctx, map[string]string{"type": models.TypeStudentProfiles})
	if err != nil {
		return nil, err
	}
	return decodeList[models.StudentProfile](raw)
}

// GetStudent fetches one student profile by slug; (nil, nil) when absent.
func (c *Client) GetStudent(ctx context.Context, slug string) (*models.StudentProfile, error) {
	raw, err := c.findOne(ctx, models.TypeStudentProfiles, slug)
	if err != nil || raw == nil {
		return nil, err
	}
	var obj models.StudentProfile
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode student profile: %w", err)
	}
	return &obj, nil
}

// GetStudyMaterials lists all study-materials objects.
func (c *Client) GetStudyMaterials(ctx context.Context) ([]models.StudyMaterial, error) {
	raw, err := c.find(ctx, map[string]string{"type": models.TypeStudyMaterials})
	if err != nil {
		return nil, err
	}
	return decodeList[models.StudyMaterial](raw)
}

// GetStudyMaterial fetches one study material by slug; (nil, nil) when absent.
func (c *Client) GetStudyMaterial(ctx context.Context, slug string) (*models.StudyMaterial, error) {
	raw, err := c.findOne(ctx, models.TypeStudyMaterials, slug)
	if err != nil || raw == nil {
		return nil, err
	}
	var obj models.StudyMaterial
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode study material: %w", err)
	}
	return &obj, nil
}

// GetNotes lists all notes objects.
func (c *Client) GetNotes(ctx context.Context) ([]models.Note, error) {
	raw, err := c.find(ctx, map[string]string{"type": models.TypeNotes})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Note](raw)
}

// GetNote fetches one note by slug; (nil, nil) when absent.
func (c *Client) GetNote(ctx context.Context, slug string) (*models.Note, error) {
	raw, err := c.findOne(ctx, models.TypeNotes, slug)
	if err != nil || raw == nil {
		return nil, err
	}
	var obj models.Note
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode note: %w", err)
	}
	return &obj, nil
}

// GetStudySessions lists all study-sessions objects.
func (c *Client) GetStudySessions(ctx context.Context) ([]models.StudySession, error) {
	raw, err := c.find(ctx, map[string]string{"type": models.TypeStudySessions})
	if err != nil {
		return nil, err
	}
	return decodeList[models.StudySession](raw)
}

// GetStudySession fetches one study session by slug; (nil, nil) when absent.
func (c *Client) GetStudySession(ctx context.Context, slug string) (*models.StudySession, error) {
	raw, err := c.findOne(ctx, models.TypeStudySessions, slug)
	if err != nil || raw == nil {
		return nil, err
	}
	var obj models.StudySession
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode study session: %w", err)
	}
	return &obj, nil
}

// GetStudyProjects lists all study-projects objects.
func (c *Client) GetStudyProjects(ctx context.Context) ([]models.StudyProject, error) {
	raw, err := c.find(ctx, map[string]string{"type": models.TypeStudyProjects})
	if err != nil {
		return nil, err
	}
	return decodeList[models.StudyProject](raw)
}

// GetStudyProject fetches one study project by slug; (nil, nil) when absent.
func (c *Client) GetStudyProject(ctx context.Context, slug string) (*models.StudyProject, error) {
	raw, err := c.findOne(ctx, models.TypeStudyProjects, slug)
	if err != nil || raw == nil {
		return nil, err
	}
	var obj models.StudyProject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode study project: %w", err)
	}
	return &obj, nil
}

// GetProjectsByStudent lists study projects owned by a student.
func (c *Client) GetProjectsByStudent(ctx context.Context, studentID string) ([]models.StudyProject, error) {
	raw, err := c.find(ctx, map[string]string{
		"type":                   models.TypeStudyProjects,
		"metadata.student_owner": studentID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[models.StudyProject](raw)
}
