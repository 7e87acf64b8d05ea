package update

import (
	"fmt"
	"io"

	"github.com/adamancini/clientsync/internal/types"
)

// Event is one pipeline transition
type Event struct {
	From    types.Stage
	To      types.Stage
	Message string // Human-readable progress line
	Err     error  // Set on transitions to StageFailed
}

// Observer receives every pipeline transition in order
type Observer interface {
	Transition(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// Transition calls f(e)
func (f ObserverFunc) Transition(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Transition(Event) {}

// ConsoleObserver prints progress lines for a person watching the terminal
type ConsoleObserver struct {
	out io.Writer
	err io.Writer
}

// NewConsoleObserver writes progress to out and failures to errOut
func NewConsoleObserver(out, errOut io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out, err: errOut}
}

// Transition prints the event message
func (c *ConsoleObserver) Transition(e Event) {
	if e.Message == "" {
		return
	}
	if e.To == types.StageFailed {
		_, _ = fmt.Fprintf(c.err, "✗ %s\n", e.Message)
		return
	}
	if e.To.IsSuccess() {
		_, _ = fmt.Fprintf(c.out, "✓ %s\n", e.Message)
		return
	}
	_, _ = fmt.Fprintln(c.out, e.Message)
}
