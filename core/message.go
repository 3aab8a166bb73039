package core

import "github.com/google/uuid"

// Role identifies the conversational author of a Message.
type Role string

const (
	// RoleUser marks content authored by the human user (or synthesized on
	// their behalf, such as tool results fed back to the model).
	RoleUser Role = "user"
	// RoleAssistant marks content authored by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instruction content injected by the application.
	RoleSystem Role = "system"
)

// Valid reports whether the role is one of the three conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayMetadata carries optional presentation hints for a message. It is
// interpreted by UI layers only; the engine and model backends ignore it.
// Raw tool results use it so a front end can render them as a secondary,
// collapsible block under the triggering exchange.
type DisplayMetadata struct {
	ID       string `json:"id,omitempty"`        // Stable display id (e.g. "raw_result_get_os_name")
	ParentID string `json:"parent_id,omitempty"` // Grouping parent (e.g. "result_get_os_name")
	Title    string `json:"title,omitempty"`     // Short label, e.g. "Raw Output"
}

// Message is the single conversation unit exchanged between the host, the
// engine and UI layers. A conversation is an ordered slice of Messages; the
// order is meaningful and preserved across turns. Treat a Message as
// immutable after creation.
type Message struct {
	ID       string           `json:"id"`
	Role     Role             `json:"role"`
	Content  string           `json:"content"`
	Metadata *DisplayMetadata `json:"metadata,omitempty"`
}

// NewID generates a new unique identifier for messages and turns.
func NewID() string { return uuid.NewString() }

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant-authored text message.
func NewAssistantMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: text}
}

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: text}
}

// NewRawResultMessage wraps the unprocessed output of a tool invocation in a
// fenced block, tagged for secondary display under the given tool name.
func NewRawResultMessage(toolName, resultText string) Message {
	return Message{
		ID:      NewID(),
		Role:    RoleAssistant,
		Content: "```\n" + resultText + "\n```",
		Metadata: &DisplayMetadata{
			ID:       "raw_result_" + toolName,
			ParentID: "result_" + toolName,
			Title:    "Raw Output",
		},
	}
}
