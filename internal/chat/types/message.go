package types

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents one entry in a conversation. A user message is
// immutable once sent; an assistant message starts empty and grows by
// streamed deltas until its turn finalizes.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is one user-message-to-assistant-reply pair, handed to the
// naming collaborator after the first completed turn.
type Exchange struct {
	UserText      string
	AssistantText string
}

// Turn describes one in-flight request/response cycle. It exists only for
// the duration of one stream and is discarded on completion or failure.
// FirstTurn is computed once, at turn start.
type Turn struct {
	ProjectID          string
	UserMessageID      string
	AssistantMessageID string
	UserText           string
	FirstTurn          bool
}
