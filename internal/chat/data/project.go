package data

import (
	"context"
	"fmt"
	"net/http"

	"converse/internal/chat/types"
)

// ProjectStore implements biz.ProjectStore against the backend API
type ProjectStore struct {
	client *Client
}

// NewProjectStore creates a project store sharing the API client
func NewProjectStore(client *Client) *ProjectStore {
	return &ProjectStore{client: client}
}

// projectPayload tolerates both wire shapes the backend emits: the list
// endpoint uses "id", the create endpoint uses "project_id".
type projectPayload struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (p *projectPayload) toProject() *types.Project {
	id := p.ID
	if id == "" {
		id = p.ProjectID
	}
	return &types.Project{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
	}
}

// ListProjects fetches all projects owned by the current user
func (s *ProjectStore) ListProjects(ctx context.Context) ([]*types.Project, error) {
	var payload []projectPayload
	if err := s.client.doRequest(ctx, http.MethodGet, "/projects/", nil, &payload); err != nil {
		return nil, err
	}

	projects := make([]*types.Project, 0, len(payload))
	for i := range payload {
		projects = append(projects, payload[i].toProject())
	}
	return projects, nil
}

// CreateProject creates a project with the given name and description
func (s *ProjectStore) CreateProject(ctx context.Context, name, description string) (*types.Project, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}

	var payload projectPayload
	if err := s.client.doRequest(ctx, http.MethodPost, "/projects/", body, &payload); err != nil {
		return nil, err
	}
	return payload.toProject(), nil
}

// FetchProject retrieves a single project by id
func (s *ProjectStore) FetchProject(ctx context.Context, id string) (*types.Project, error) {
	var payload projectPayload
	if err := s.client.doRequest(ctx, http.MethodGet, fmt.Sprintf("/projects/%s", id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.toProject(), nil
}

// UpdateProject renames a project and updates its description
func (s *ProjectStore) UpdateProject(ctx context.Context, id, name, description string) (*types.Project, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}

	var payload projectPayload
	if err := s.client.doRequest(ctx, http.MethodPut, fmt.Sprintf("/projects/%s", id), body, &payload); err != nil {
		return nil, err
	}
	return payload.toProject(), nil
}

// DeleteProject removes a project
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/projects/%s", id), nil, nil)
}
