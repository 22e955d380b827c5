package agent

type EventKind int

const (
	EventTransition EventKind = iota
	EventToolStart
	EventToolResult
)

// Event describes one step of a run. From is set for transitions, Call for
// tool events, and Result and Err once a tool has finished.
type Event struct {
	Kind   EventKind
	From   State
	State  State
	Turn   int
	Call   ToolCall
	Result string
	Err    error
}

// Observer receives events synchronously from the controller's goroutine.
type Observer func(Event)
