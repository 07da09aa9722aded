package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// CallStatus reports how far upstream execution of a tool call has come.
type CallStatus string

const (
	CallPending CallStatus = "pending"
	CallSuccess CallStatus = "success"
	CallError   CallStatus = "error"
)

// ToolCall is a single capability invocation carried inside a message. Result
// holds the serialized payload once the capability has finished; the zero
// value means the call is still executing upstream.
type ToolCall struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	Arguments string     `json:"arguments,omitempty"`
	Status    CallStatus `json:"status,omitempty"`
	Result    string     `json:"result,omitempty"`
}

// HasResult reports whether the call carries a finished payload.
func (tc ToolCall) HasResult() bool { return tc.Result != "" }

// Message is one immutable record in an ordered conversation.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt int64      `json:"created_at,omitempty"`
}

func NewUser(text string) Message {
	return Message{ID: uuid.New().String(), Role: User, Content: text, CreatedAt: time.Now().Unix()}
}

func NewAssistant(text string, calls ...ToolCall) Message {
	return Message{ID: uuid.New().String(), Role: Assistant, Content: text, ToolCalls: calls, CreatedAt: time.Now().Unix()}
}
