package biz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"converse/internal/chat/stream"
	"converse/internal/chat/types"
	"converse/internal/pkg/errors"
	"converse/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes -------------------------------------------------------------

type fakeProjectStore struct {
	mu        sync.Mutex
	created   []*types.Project
	listed    []*types.Project
	nextID    int
	createErr error
	fetchErr  error
}

func (f *fakeProjectStore) ListProjects(ctx context.Context) ([]*types.Project, error) {
	return f.listed, nil
}

func (f *fakeProjectStore) CreateProject(ctx context.Context, name, description string) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p := &types.Project{ID: fmt.Sprintf("proj-%d", f.nextID), Name: name, Description: description, IsActive: true}
	snapshot := *p
	f.created = append(f.created, &snapshot)
	return p, nil
}

func (f *fakeProjectStore) FetchProject(ctx context.Context, id string) (*types.Project, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	for _, p := range f.listed {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrProjectNotFound, id)
}

type fakeHistoryStore struct {
	messages map[string][]*types.Message
	err      error
}

func (f *fakeHistoryStore) FetchMessages(ctx context.Context, projectID string) ([]*types.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages[projectID], nil
}

type fakeNamer struct {
	mu    sync.Mutex
	calls []types.Exchange
	name  string
	err   error
}

func (f *fakeNamer) GenerateName(ctx context.Context, projectID string, exchange types.Exchange) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, exchange)
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func (f *fakeNamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAuth struct {
	mu          sync.Mutex
	logoutErr   error
	logoutCalls int
}

func (f *fakeAuth) CheckSession(ctx context.Context) bool { return true }

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

// scriptedOpener serves each turn's stream from a dedicated httptest
// server, scripted per call.
type scriptedOpener struct {
	mu       sync.Mutex
	t        *testing.T
	consumer *stream.Consumer
	handlers []http.HandlerFunc
	opened   int
	openErr  error
}

func (f *scriptedOpener) OpenStream(ctx context.Context, projectID, userText string) (*stream.Handle, error) {
	f.mu.Lock()
	if f.openErr != nil {
		err := f.openErr
		f.mu.Unlock()
		return nil, err
	}
	require.Less(f.t, f.opened, len(f.handlers), "no scripted stream for this turn")
	handler := f.handlers[f.opened]
	f.opened++
	f.mu.Unlock()

	srv := httptest.NewServer(handler)
	f.t.Cleanup(srv.Close)
	return f.consumer.Open(ctx, srv.URL)
}

// sseHandler writes the given raw SSE payload and returns
func sseHandler(payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, payload)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// hangingHandler writes a first delta and then stays open until the
// client tears the connection down
func hangingHandler(delta string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"delta\":%q}\n\n", delta)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}
}

// ---- harness -----------------------------------------------------------

type harness struct {
	session  *Session
	projects *fakeProjectStore
	history  *fakeHistoryStore
	namer    *fakeNamer
	auth     *fakeAuth
	opener   *scriptedOpener
	finished chan error
}

func newHarness(t *testing.T, streams ...http.HandlerFunc) *harness {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "console"})
	require.NoError(t, err)

	h := &harness{
		projects: &fakeProjectStore{},
		history:  &fakeHistoryStore{messages: map[string][]*types.Message{}},
		namer:    &fakeNamer{name: "Generated Name"},
		auth:     &fakeAuth{},
		opener: &scriptedOpener{
			t:        t,
			consumer: stream.NewConsumer(&http.Client{}, log),
			handlers: streams,
		},
		finished: make(chan error, 8),
	}
	h.session = NewSession(h.projects, h.history, h.opener, h.namer, h.auth, log)
	h.session.OnTurnFinished(func(turn *types.Turn, err error) {
		h.finished <- err
	})
	t.Cleanup(h.session.Dispose)
	return h
}

func (h *harness) waitTurn(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.finished:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("turn did not finish in time")
		return nil
	}
}

const endFrame = "event: end\ndata: {}\n\n"

// ---- tests -------------------------------------------------------------

func TestSendEmptyInputRejected(t *testing.T) {
	h := newHarness(t)

	for _, input := range []string{"", "   ", "\n\t"} {
		err := h.session.Send(context.Background(), input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrEmptyMessage))
	}

	assert.Empty(t, h.session.Messages())
	assert.Empty(t, h.projects.created)
	assert.Equal(t, StateIdle, h.session.State())
}

func TestSendCreatesProjectOnDemand(t *testing.T) {
	h := newHarness(t, sseHandler("data: {\"delta\":\"Hi\"}\n\ndata: {\"delta\":\" there\"}\n\n"+endFrame))

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.NoError(t, h.waitTurn(t))

	// Exactly one placeholder-named project was created and bound.
	require.Len(t, h.projects.created, 1)
	created := h.projects.created[0]
	assert.True(t, created.HasPlaceholderName())
	assert.Equal(t, created.ID, h.session.CurrentProjectID())

	// One user message and one assistant message, in that order.
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hi there", msgs[1].Content)

	// First completed turn triggers naming exactly once.
	require.Equal(t, 1, h.namer.callCount())
	assert.Equal(t, types.Exchange{UserText: "Hello", AssistantText: "Hi there"}, h.namer.calls[0])
	p := h.session.CurrentProject()
	require.NotNil(t, p)
	assert.Equal(t, "Generated Name", p.Name)

	assert.Equal(t, StateIdle, h.session.State())
	assert.False(t, h.session.Typing())
}

func TestSendProjectCreationFailureAbortsTurn(t *testing.T) {
	h := newHarness(t)
	h.projects.createErr = fmt.Errorf("backend down")

	err := h.session.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProjectCreateFailed))

	// Nothing was recorded: no messages, no binding.
	assert.Empty(t, h.session.Messages())
	assert.Empty(t, h.session.CurrentProjectID())
	assert.Equal(t, StateIdle, h.session.State())
}

func TestSendContentReplacementFrame(t *testing.T) {
	h := newHarness(t, sseHandler(
		"data: {\"delta\":\"garbled\"}\n\n"+
			"data: {\"content\":\"Fresh start\"}\n\n"+
			"data: {\"delta\":\", continued\"}\n\n"+
			endFrame))

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.NoError(t, h.waitTurn(t))

	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Fresh start, continued", msgs[1].Content)
}

func TestSendStreamFailureKeepsPartialContent(t *testing.T) {
	// Delta then connection drop without the end marker.
	h := newHarness(t, sseHandler("data: {\"delta\":\"Hi\"}\n\n"))

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	err := h.waitTurn(t)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStreamFailed))

	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[1].Content)

	// No naming after a failed turn.
	assert.Zero(t, h.namer.callCount())
	assert.Equal(t, StateIdle, h.session.State())
}

func TestSecondTurnIsNotFirst(t *testing.T) {
	h := newHarness(t,
		sseHandler("data: {\"delta\":\"one\"}\n\n"+endFrame),
		sseHandler("data: {\"delta\":\"two\"}\n\n"+endFrame),
	)

	require.NoError(t, h.session.Send(context.Background(), "first"))
	require.NoError(t, h.waitTurn(t))
	require.NoError(t, h.session.Send(context.Background(), "second"))
	require.NoError(t, h.waitTurn(t))

	// Naming ran only for the first completed turn.
	assert.Equal(t, 1, h.namer.callCount())
	assert.Len(t, h.projects.created, 1)

	msgs := h.session.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "two", msgs[3].Content)
}

func TestFirstTurnDetectedFromPlaceholderName(t *testing.T) {
	// Bound project whose name still carries the placeholder prefix:
	// naming failed or was interrupted on an earlier run.
	h := newHarness(t, sseHandler("data: {\"delta\":\"reply\"}\n\n"+endFrame))
	h.projects.listed = []*types.Project{{ID: "p1", Name: types.PlaceholderName(time.Now())}}
	h.history.messages["p1"] = nil

	require.NoError(t, h.session.Bootstrap(context.Background()))
	require.NoError(t, h.session.SwitchProject(context.Background(), "p1"))
	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.NoError(t, h.waitTurn(t))

	assert.Equal(t, 1, h.namer.callCount())
}

func TestNamingFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, sseHandler("data: {\"delta\":\"Hi\"}\n\n"+endFrame))
	h.namer.err = fmt.Errorf("naming service down")

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.NoError(t, h.waitTurn(t))

	// Placeholder name is retained.
	p := h.session.CurrentProject()
	require.NotNil(t, p)
	assert.True(t, p.HasPlaceholderName())
}

func TestSupersedingFreezesPriorTurn(t *testing.T) {
	h := newHarness(t,
		hangingHandler("partial answer"),
		sseHandler("data: {\"delta\":\"second answer\"}\n\n"+endFrame),
	)

	require.NoError(t, h.session.Send(context.Background(), "first question"))

	// Wait for the first delta to land.
	require.Eventually(t, func() bool {
		msgs := h.session.Messages()
		return len(msgs) == 2 && msgs[1].Content == "partial answer"
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, h.session.Send(context.Background(), "second question"))
	require.NoError(t, h.waitTurn(t))

	msgs := h.session.Messages()
	require.Len(t, msgs, 4)
	// The superseded assistant message is frozen, not failed or emptied.
	assert.Equal(t, "partial answer", msgs[1].Content)
	assert.Equal(t, "second answer", msgs[3].Content)

	// Only the first (completed) turn named the project.
	assert.Equal(t, 1, h.namer.callCount())
}

func TestSwitchProjectLoadsHistory(t *testing.T) {
	h := newHarness(t)
	h.projects.listed = []*types.Project{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
	h.history.messages["p2"] = []*types.Message{
		{ID: "m1", Role: types.RoleUser, Content: "old question"},
		{ID: "m2", Role: types.RoleAssistant, Content: "old answer"},
	}

	require.NoError(t, h.session.Bootstrap(context.Background()))
	require.NoError(t, h.session.SwitchProject(context.Background(), "p2"))

	assert.Equal(t, "p2", h.session.CurrentProjectID())
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "old question", msgs[0].Content)
}

func TestSwitchProjectUnknownID(t *testing.T) {
	h := newHarness(t)

	err := h.session.SwitchProject(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProjectNotFound))
	assert.Empty(t, h.session.CurrentProjectID())
}

func TestSwitchProjectClosesLiveStream(t *testing.T) {
	h := newHarness(t, hangingHandler("partial"))
	h.projects.listed = []*types.Project{{ID: "p2", Name: "Two"}}

	require.NoError(t, h.session.Send(context.Background(), "question"))
	require.Eventually(t, func() bool {
		return h.session.Typing()
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, h.session.SwitchProject(context.Background(), "p2"))
	assert.False(t, h.session.Typing())
	assert.Equal(t, "p2", h.session.CurrentProjectID())
}

func TestLogoutClearsStateEvenWhenRemoteFails(t *testing.T) {
	h := newHarness(t, sseHandler("data: {\"delta\":\"Hi\"}\n\n"+endFrame))
	h.auth.logoutErr = fmt.Errorf("network flake")

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.NoError(t, h.waitTurn(t))

	err := h.session.Logout(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthLogoutFailed))

	// Local state is gone regardless of the remote outcome.
	assert.Empty(t, h.session.Messages())
	assert.Empty(t, h.session.Projects())
	assert.Empty(t, h.session.CurrentProjectID())
	assert.Equal(t, 1, h.auth.logoutCalls)
}

func TestParentContextCancelFailsTurn(t *testing.T) {
	h := newHarness(t, hangingHandler("partial"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.session.Send(ctx, "Hello"))

	require.Eventually(t, func() bool {
		msgs := h.session.Messages()
		return len(msgs) == 2 && msgs[1].Content == "partial"
	}, 3*time.Second, 5*time.Millisecond)

	// Cancelling the caller's context, for instance on SIGINT, must
	// still finish the turn with a terminal event.
	cancel()
	err := h.waitTurn(t)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStreamFailed))

	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "partial", msgs[1].Content)
	assert.Equal(t, StateIdle, h.session.State())
	assert.False(t, h.session.Typing())
	assert.Zero(t, h.namer.callCount())
}

func TestSendOpenFailureSurfacesStreamError(t *testing.T) {
	h := newHarness(t)
	h.opener.openErr = fmt.Errorf("connection refused")

	err := h.session.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStreamFailed))

	// The user message was already recorded optimistically.
	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, StateIdle, h.session.State())
}

func TestTypingWhileStreaming(t *testing.T) {
	h := newHarness(t, hangingHandler("thinking"))

	require.NoError(t, h.session.Send(context.Background(), "Hello"))
	require.Eventually(t, func() bool {
		return h.session.Typing()
	}, 3*time.Second, 5*time.Millisecond)

	h.session.Dispose()
	assert.False(t, h.session.Typing())
}
