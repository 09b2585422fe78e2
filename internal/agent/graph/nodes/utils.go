package nodes

import (
	"github.com/doctor-appointment-agent/server/internal/agent/model"
)

const DefaultMaxToolCalls = 10

// toolBudget caps the tool executions of a single chat turn.
type toolBudget int

func budgetOf(n int) toolBudget {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return toolBudget(n)
}

// exhausted marks the state once the budget has been spent and reports
// whether it did so on this call.
func (b toolBudget) exhausted(state *model.AppState) bool {
	if state.ToolCallLimitReached || state.ToolCallCount < int(b) {
		return false
	}
	state.ToolCallLimitReached = true
	return true
}

// spend counts one tool execution and reports whether it went over budget.
func (b toolBudget) spend(state *model.AppState) bool {
	state.ToolCallCount++
	if state.ToolCallCount > int(b) {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}
