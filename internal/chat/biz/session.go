package biz

import (
	"context"
	"sync"
	"time"

	"converse/internal/chat/stream"
	"converse/internal/chat/types"
	"converse/internal/pkg/errors"
	"converse/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session binds the project directory and the turn controller to the
// user's current conversation. All mutation of in-memory state runs
// under one mutex, so at most one mutator is active at a time; stream
// events for a superseded turn are checked against the live handle and
// dropped after its Close.
type Session struct {
	mu sync.Mutex

	directory *ProjectDirectory
	projects  ProjectStore
	history   HistoryStore
	opener    StreamOpener
	namer     Namer
	auth      AuthService
	logger    *logger.Logger

	now   func() time.Time
	newID func() string

	projectID string
	messages  []*types.Message
	state     TurnState
	turn      *types.Turn
	handle    *stream.Handle

	onTurnFinished func(turn *types.Turn, err error)
}

// NewSession creates a session with empty conversation state
func NewSession(projects ProjectStore, history HistoryStore, opener StreamOpener, namer Namer, auth AuthService, log *logger.Logger) *Session {
	return &Session{
		directory: NewProjectDirectory(),
		projects:  projects,
		history:   history,
		opener:    opener,
		namer:     namer,
		auth:      auth,
		logger:    log.Named("session"),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// OnTurnFinished registers a hook invoked after a turn reaches its
// terminal event. err is nil on completion and carries the stream
// failure otherwise. Superseded turns do not fire the hook.
func (s *Session) OnTurnFinished(fn func(turn *types.Turn, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTurnFinished = fn
}

// Bootstrap loads the remote project list into the directory
func (s *Session) Bootstrap(ctx context.Context) error {
	list, err := s.projects.ListProjects(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrRemoteUnavail, "listing projects")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.directory.Replace(list)
	return nil
}

// SwitchProject rebinds the session to another project and reloads its
// history. Any live stream is closed first; its turn keeps whatever
// partial content it had.
func (s *Session) SwitchProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeStreamLocked()

	if _, ok := s.directory.Get(id); !ok {
		p, err := s.projects.FetchProject(ctx, id)
		if err != nil {
			return errors.Wrap(err, errors.ErrProjectNotFound, id)
		}
		if err := s.directory.Add(p); err != nil {
			return err
		}
	}

	s.projectID = id
	s.messages = nil

	msgs, err := s.history.FetchMessages(ctx, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistoryFailed, id)
	}
	s.messages = msgs
	return nil
}

// Logout clears all local state before the remote call, so a slow or
// failing logout cannot leave stale data visible.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.closeStreamLocked()
	s.directory.Clear()
	s.messages = nil
	s.projectID = ""
	s.mu.Unlock()

	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn("remote logout failed", zap.Error(err))
		return errors.Wrap(err, errors.ErrAuthLogoutFailed)
	}
	return nil
}

// Dispose closes any open stream. The session must not be used after.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()
}

// CurrentProjectID returns the bound project id, empty when unbound
func (s *Session) CurrentProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// CurrentProject returns the bound project, nil when unbound or unknown
func (s *Session) CurrentProject() *types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectID == "" {
		return nil
	}
	p, _ := s.directory.Get(s.projectID)
	return p
}

// Projects returns the cached project list in insertion order
func (s *Session) Projects() []*types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.List()
}

// Messages returns a snapshot of the conversation state
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	return out
}

// Typing reports whether an assistant reply is currently streaming
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStreaming
}

// State returns the turn controller state
func (s *Session) State() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// closeStreamLocked closes the live stream, if any, and drops the
// in-flight turn. Caller holds s.mu.
func (s *Session) closeStreamLocked() {
	if s.handle == nil {
		return
	}
	h := s.handle
	s.handle = nil
	s.turn = nil
	s.state = StateIdle
	h.Close()
}
