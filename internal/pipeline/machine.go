package pipeline

import (
	"fmt"
	"sync"
)

// State describes where a message is in its processing lifecycle.
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StateTranscribed State = "transcribed"
	StateTranslated  State = "translated"
	StateSynthesized State = "synthesized"
	StateSent        State = "sent"
	StateErrored     State = "errored"
)

// allowed lists the legal successors of each state. Text input skips
// transcription, so validated may move straight to translated.
var allowed = map[State][]State{
	StateReceived:    {StateValidated, StateErrored},
	StateValidated:   {StateTranscribed, StateTranslated, StateErrored},
	StateTranscribed: {StateTranslated, StateErrored},
	StateTranslated:  {StateSynthesized, StateErrored},
	StateSynthesized: {StateSent, StateErrored},
}

// Machine is a lightweight deterministic per-message state machine.
type Machine struct {
	mu      sync.RWMutex
	state   State
	history []State
}

// NewMachine creates a machine in the received state.
func NewMachine() *Machine {
	return &Machine{
		state:   StateReceived,
		history: []State{StateReceived},
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// History returns every state visited, in order.
func (m *Machine) History() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]State(nil), m.history...)
}

// Done reports whether the machine reached a terminal state.
func (m *Machine) Done() bool {
	state := m.State()
	return state == StateSent || state == StateErrored
}

// Transition moves to next, rejecting moves the lifecycle does not allow.
func (m *Machine) Transition(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, candidate := range allowed[m.state] {
		if candidate == next {
			m.state = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return fmt.Errorf("invalid transition: %s -> %s", m.state, next)
}
