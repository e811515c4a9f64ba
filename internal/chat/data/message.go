package data

import (
	"context"
	"fmt"
	"net/http"

	"converse/internal/chat/types"
)

// HistoryStore implements biz.HistoryStore against the backend API
type HistoryStore struct {
	client *Client
}

// NewHistoryStore creates a history store sharing the API client
func NewHistoryStore(client *Client) *HistoryStore {
	return &HistoryStore{client: client}
}

// FetchMessages loads a project's recorded conversation in order
func (s *HistoryStore) FetchMessages(ctx context.Context, projectID string) ([]*types.Message, error) {
	var msgs []*types.Message
	path := fmt.Sprintf("/projects/%s/messages", projectID)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
