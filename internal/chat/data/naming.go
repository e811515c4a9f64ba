package data

import (
	"context"
	"fmt"
	"net/http"

	"converse/internal/chat/types"
	"converse/internal/pkg/errors"
)

// Namer implements biz.Namer: it asks the backend to title a project
// from its first exchange.
type Namer struct {
	client *Client
}

// NewNamer creates a namer sharing the API client
func NewNamer(client *Client) *Namer {
	return &Namer{client: client}
}

type namingRequest struct {
	Messages []namingMessage `json:"messages"`
}

type namingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type namingResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerateName sends the first exchange and returns the generated name
func (n *Namer) GenerateName(ctx context.Context, projectID string, exchange types.Exchange) (string, error) {
	body := namingRequest{
		Messages: []namingMessage{
			{Role: string(types.RoleUser), Content: exchange.UserText},
			{Role: string(types.RoleAssistant), Content: exchange.AssistantText},
		},
	}

	var resp namingResponse
	path := fmt.Sprintf("/projects/%s/generate_name", projectID)
	if err := n.client.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", errors.Wrap(err, errors.ErrNamingFailed)
	}
	if resp.Name == "" {
		return "", errors.New(errors.ErrNamingFailed, "backend returned empty name")
	}
	return resp.Name, nil
}
