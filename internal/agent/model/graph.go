package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type AppState struct {
	ConversationID       string
	Session              *Session          // resolved by the session loader
	Pending              *PendingBooking   // non-nil when the turn answers a confirmation
	History              []*schema.Message // mutated only inside Eino state handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // local sequence to synthesize tool_call_id when provider omits
	Suspension           *Suspension

	// Accumulated total LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// Suspension is raised by the booking tool; the turn ends with Prompt.
type Suspension struct {
	AppointmentID uint
	Prompt        string
}

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// Reply is what a chat turn returns to the caller.
type Reply struct {
	ConversationID      string  `json:"conversation_id"`
	Reply               string  `json:"reply"`
	PendingConfirmation bool    `json:"pending_confirmation"`
	CostUSD             float64 `json:"cost_usd,omitempty"`
}

// Extra keys set on the final graph message.
const (
	ExtraPendingConfirmation = "pending_confirmation"
	ExtraUsageCost           = "usage_cost"
)
