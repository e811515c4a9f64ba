package types

import (
	"fmt"
	"strings"
	"time"
)

// PlaceholderPrefix is the name prefix given to projects created on demand
// before the first completed exchange names them.
const PlaceholderPrefix = "New Conversation"

// Project represents a conversation thread owned by the user
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// PlaceholderName builds the auto-generated name for a project created at t.
func PlaceholderName(t time.Time) string {
	return fmt.Sprintf("%s %d", PlaceholderPrefix, t.UnixMilli())
}

// HasPlaceholderName reports whether the project still carries its
// auto-generated name, i.e. naming has not run yet.
func (p *Project) HasPlaceholderName() bool {
	return strings.HasPrefix(p.Name, PlaceholderPrefix)
}
