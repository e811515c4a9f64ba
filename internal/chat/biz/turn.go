package biz

import (
	"context"
	"strings"

	"converse/internal/chat/stream"
	"converse/internal/chat/types"
	"converse/internal/pkg/errors"

	"go.uber.org/zap"
)

// TurnState tracks the send state machine:
// Idle -> ResolvingProject -> Streaming -> Finalizing -> Idle
type TurnState int

const (
	StateIdle TurnState = iota
	StateResolvingProject
	StateStreaming
	StateFinalizing
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingProject:
		return "resolving_project"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Send runs one conversation turn: resolve the target project (creating
// one on demand), append the user message and an empty assistant
// message, and open the response stream. It returns once the stream is
// established; deltas are applied as they arrive and the turn finalizes
// on the stream's terminal event.
//
// A turn already streaming is superseded: its stream is closed before
// the new one opens and its assistant message keeps whatever partial
// content it had. ctx must outlive the stream.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrEmptyMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeStreamLocked()

	s.state = StateResolvingProject
	turn, err := s.resolveTurnLocked(ctx, text)
	if err != nil {
		s.state = StateIdle
		return err
	}

	s.messages = append(s.messages,
		&types.Message{ID: turn.UserMessageID, Role: types.RoleUser, Content: text},
		&types.Message{ID: turn.AssistantMessageID, Role: types.RoleAssistant, Content: ""},
	)

	s.state = StateStreaming
	h, err := s.opener.OpenStream(ctx, turn.ProjectID, text)
	if err != nil {
		// The user message stays; only the reply is missing.
		s.state = StateIdle
		s.logger.Error("failed to open response stream",
			zap.String("project_id", turn.ProjectID),
			zap.Error(err))
		return errors.Wrap(err, errors.ErrStreamFailed)
	}

	s.handle = h
	s.turn = turn

	go s.consume(ctx, h, turn)
	return nil
}

// resolveTurnLocked binds the turn to a project, creating one with a
// placeholder name when the session has none. FirstTurn is fixed here,
// before any stream activity. Caller holds s.mu.
func (s *Session) resolveTurnLocked(ctx context.Context, text string) (*types.Turn, error) {
	turn := &types.Turn{
		UserMessageID:      s.newID(),
		AssistantMessageID: s.newID(),
		UserText:           text,
	}

	if s.projectID == "" {
		p, err := s.projects.CreateProject(ctx, types.PlaceholderName(s.now()), "Auto-created conversation")
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrProjectCreateFailed)
		}
		if err := s.directory.Add(p); err != nil {
			return nil, err
		}
		s.projectID = p.ID
		turn.ProjectID = p.ID
		turn.FirstTurn = true
		s.logger.Info("created project for new conversation", zap.String("project_id", p.ID))
		return turn, nil
	}

	turn.ProjectID = s.projectID
	if p, ok := s.directory.Get(s.projectID); ok {
		turn.FirstTurn = p.HasPlaceholderName()
	}
	return turn, nil
}

// consume applies stream events to the turn until the terminal one.
// Events that arrive after the handle was superseded are dropped.
func (s *Session) consume(ctx context.Context, h *stream.Handle, turn *types.Turn) {
	var finished bool
	var terminalErr error

	for ev := range h.Events() {
		done, err := s.apply(ctx, h, turn, ev)
		if done {
			finished = true
			terminalErr = err
			break
		}
	}
	h.Close()

	if !finished {
		return // superseded or disposed, no terminal was applied
	}

	s.mu.Lock()
	hook := s.onTurnFinished
	s.mu.Unlock()
	if hook != nil {
		hook(turn, terminalErr)
	}
}

// apply processes one event under the session lock. It returns done=true
// when the event was terminal and was applied to this turn.
func (s *Session) apply(ctx context.Context, h *stream.Handle, turn *types.Turn, ev stream.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Superseded: a newer turn owns the session now.
	if h.Closed() || s.turn != turn {
		return false, nil
	}

	switch ev.Type {
	case stream.EventDelta:
		s.appendAssistantLocked(turn, ev.Text, false)
		return false, nil

	case stream.EventReplace:
		s.appendAssistantLocked(turn, ev.Text, true)
		return false, nil

	case stream.EventComplete:
		s.state = StateFinalizing
		s.handle = nil
		s.turn = nil
		if turn.FirstTurn {
			s.nameProjectLocked(ctx, turn)
		}
		s.state = StateIdle
		return true, nil

	case stream.EventFailed:
		// Partial content stays visible; the turn just stops early.
		s.handle = nil
		s.turn = nil
		s.state = StateIdle
		s.logger.Warn("response stream failed",
			zap.String("project_id", turn.ProjectID),
			zap.Error(ev.Err))
		return true, errors.Wrap(ev.Err, errors.ErrStreamFailed)
	}

	return false, nil
}

// appendAssistantLocked mutates the turn's assistant message in place.
// Caller holds s.mu.
func (s *Session) appendAssistantLocked(turn *types.Turn, text string, replace bool) {
	for _, m := range s.messages {
		if m.ID == turn.AssistantMessageID {
			if replace {
				m.Content = text
			} else {
				m.Content += text
			}
			return
		}
	}
	// Should not happen: the message was appended before the stream
	// opened. Recreate it rather than dropping the fragment.
	s.logger.Warn("assistant message missing, recreating",
		zap.String("message_id", turn.AssistantMessageID))
	s.messages = append(s.messages, &types.Message{
		ID:      turn.AssistantMessageID,
		Role:    types.RoleAssistant,
		Content: text,
	})
}

// nameProjectLocked runs the one-time naming step after the first
// completed turn. Failure keeps the placeholder name. Caller holds s.mu.
func (s *Session) nameProjectLocked(ctx context.Context, turn *types.Turn) {
	exchange := types.Exchange{UserText: turn.UserText}
	for _, m := range s.messages {
		if m.ID == turn.AssistantMessageID {
			exchange.AssistantText = m.Content
			break
		}
	}

	name, err := s.namer.GenerateName(ctx, turn.ProjectID, exchange)
	if err != nil {
		s.logger.Warn("failed to generate project name",
			zap.String("project_id", turn.ProjectID),
			zap.Error(err))
		return
	}

	if !s.directory.Rename(turn.ProjectID, name) {
		s.logger.Warn("renamed project not in directory", zap.String("project_id", turn.ProjectID))
		return
	}
	s.logger.Info("project named",
		zap.String("project_id", turn.ProjectID),
		zap.String("name", name))
}
