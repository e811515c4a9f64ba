package biz

import (
	"context"

	"converse/internal/chat/stream"
	"converse/internal/chat/types"
)

// ProjectStore is the remote project collection
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]*types.Project, error)
	CreateProject(ctx context.Context, name, description string) (*types.Project, error)
	FetchProject(ctx context.Context, id string) (*types.Project, error)
}

// HistoryStore loads a project's recorded conversation
type HistoryStore interface {
	FetchMessages(ctx context.Context, projectID string) ([]*types.Message, error)
}

// StreamOpener opens an incremental-response connection for one turn
type StreamOpener interface {
	OpenStream(ctx context.Context, projectID, userText string) (*stream.Handle, error)
}

// Namer asks the backend to title a project from its first exchange
type Namer interface {
	GenerateName(ctx context.Context, projectID string, exchange types.Exchange) (string, error)
}

// AuthService is the authorization collaborator. Logout is best-effort:
// local state is cleared regardless of its outcome.
type AuthService interface {
	CheckSession(ctx context.Context) bool
	Logout(ctx context.Context) error
}
