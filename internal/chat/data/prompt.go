package data

import (
	"context"
	"fmt"
	"net/http"

	"converse/internal/chat/types"
)

// PromptStore manages saved prompts attached to a project
type PromptStore struct {
	client *Client
}

// NewPromptStore creates a prompt store sharing the API client
func NewPromptStore(client *Client) *PromptStore {
	return &PromptStore{client: client}
}

// ListPrompts fetches the prompts saved under a project
func (s *PromptStore) ListPrompts(ctx context.Context, projectID string) ([]*types.Prompt, error) {
	var prompts []*types.Prompt
	path := fmt.Sprintf("/projects/%s/prompts", projectID)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// CreatePrompt saves a prompt under a project
func (s *PromptStore) CreatePrompt(ctx context.Context, projectID, name, description, content string) (*types.Prompt, error) {
	body := map[string]string{
		"project_id":  projectID,
		"name":        name,
		"description": description,
		"content":     content,
	}

	var prompt types.Prompt
	if err := s.client.doRequest(ctx, http.MethodPost, "/prompts/", body, &prompt); err != nil {
		return nil, err
	}
	return &prompt, nil
}

// DeletePrompt removes a saved prompt
func (s *PromptStore) DeletePrompt(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/prompts/%s", id), nil, nil)
}

// RunPrompt executes a saved prompt and returns the recorded run
func (s *PromptStore) RunPrompt(ctx context.Context, id string) (*types.PromptRun, error) {
	var run types.PromptRun
	path := fmt.Sprintf("/prompts/%s/run", id)
	if err := s.client.doRequest(ctx, http.MethodPost, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
