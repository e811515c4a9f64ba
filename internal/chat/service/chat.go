package service

import (
	"context"
	"net/http"
	"net/http/cookiejar"

	"converse/internal/auth"
	"converse/internal/chat/biz"
	"converse/internal/chat/data"
	"converse/internal/chat/stream"
	"converse/internal/chat/types"
	"converse/internal/conf"
	"converse/internal/pkg/errors"
	"converse/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Chat wires the session, the data layer and the auth client together
// for the presentation layer.
type Chat struct {
	cfg      *conf.Config
	session  *biz.Session
	projects *data.ProjectStore
	prompts  *data.PromptStore
	files    *data.FileStore
	auth     *auth.Client
	logger   *logger.Logger
}

// New builds the full client stack from configuration. The API client
// and the stream consumer share one cookie jar; the stream's HTTP
// client carries no timeout because a turn is open-ended.
func New(cfg *conf.Config, log *logger.Logger) (*Chat, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	apiHTTP := &http.Client{Jar: jar, Timeout: cfg.Server.Timeout}
	streamHTTP := &http.Client{Jar: jar}

	apiClient := data.NewClient(cfg.Server.BaseURL, apiHTTP, log)
	authClient, err := auth.NewClient(cfg.Server.BaseURL, apiHTTP, cfg.Auth.CookieName, cfg.Auth.StatePath, log)
	if err != nil {
		return nil, err
	}

	projects := data.NewProjectStore(apiClient)
	history := data.NewHistoryStore(apiClient)
	opener := data.NewStreamOpener(apiClient, stream.NewConsumer(streamHTTP, log))
	namer := data.NewNamer(apiClient)

	return &Chat{
		cfg:      cfg,
		session:  biz.NewSession(projects, history, opener, namer, authClient, log),
		projects: projects,
		prompts:  data.NewPromptStore(apiClient),
		files:    data.NewFileStore(apiClient),
		auth:     authClient,
		logger:   log.Named("service"),
	}, nil
}

// Session exposes the conversation session to the presentation layer
func (c *Chat) Session() *biz.Session {
	return c.session
}

// Auth exposes the authorization collaborator
func (c *Chat) Auth() *auth.Client {
	return c.auth
}

// Projects exposes the remote project store for management commands
func (c *Chat) Projects() *data.ProjectStore {
	return c.projects
}

// Prompts exposes the saved-prompt store
func (c *Chat) Prompts() *data.PromptStore {
	return c.prompts
}

// Files exposes project file uploads
func (c *Chat) Files() *data.FileStore {
	return c.files
}

// Open prepares the session for chatting: verifies authorization, loads
// the project directory, and binds the given project when provided.
func (c *Chat) Open(ctx context.Context, projectID string) error {
	if !c.auth.CheckSession(ctx) {
		return errors.New(errors.ErrNotAuthenticated, "run 'converse login' first")
	}

	if err := c.session.Bootstrap(ctx); err != nil {
		return err
	}
	if projectID != "" {
		return c.session.SwitchProject(ctx, projectID)
	}
	return nil
}

// ProjectOverview pairs each project with its saved prompts, fetched
// concurrently with a bounded fan-out.
type ProjectOverview struct {
	Project *types.Project
	Prompts []*types.Prompt
}

// Overview lists projects with their prompts
func (c *Chat) Overview(ctx context.Context) ([]*ProjectOverview, error) {
	list, err := c.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	overviews := make([]*ProjectOverview, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, p := range list {
		i, p := i, p
		g.Go(func() error {
			prompts, err := c.prompts.ListPrompts(ctx, p.ID)
			if err != nil {
				return err
			}
			overviews[i] = &ProjectOverview{Project: p, Prompts: prompts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overviews, nil
}

// Close tears the client stack down
func (c *Chat) Close() {
	c.session.Dispose()
}
