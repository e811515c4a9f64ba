package types

import "time"

// Prompt represents a saved prompt attached to a project
type Prompt struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PromptRun is the recorded outcome of executing a saved prompt
type PromptRun struct {
	ID         string    `json:"id"`
	PromptID   string    `json:"prompt_id"`
	InputData  string    `json:"input_data,omitempty"`
	OutputData string    `json:"output_data,omitempty"`
	Status     string    `json:"status"` // pending | completed | failed
	TokensUsed int       `json:"tokens_used,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
