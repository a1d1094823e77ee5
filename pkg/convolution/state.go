package convolution

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// State is the state of a run.
type State int

const (
	Idle State = iota
	Decoded
	Buffering
	Dispatched
	Collected
	Encoded
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:       "idle",
	Decoded:    "decoded",
	Buffering:  "buffering",
	Dispatched: "dispatched",
	Collected:  "collected",
	Encoded:    "encoded",
	Done:       "done",
	Failed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition can leave s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// transitions lists the legal successors of every state, Failed excepted:
// every non terminal state can fail.
var transitions = map[State][]State{
	Idle:       {Decoded},
	Decoded:    {Buffering, Encoded},
	Buffering:  {Dispatched},
	Dispatched: {Collected},
	Collected:  {Buffering, Encoded},
	Encoded:    {Done},
}

// CanTransition reports whether a run in state from may move to state to.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

type machine struct {
	mu     sync.Mutex
	state  State
	logger *slog.Logger
}

func newMachine(logger *slog.Logger) *machine {
	return &machine{state: Idle, logger: logger}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *machine) advance(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.state, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", m.state, to)
	}

	m.logger.Debug("state changed", "from", m.state.String(), "to", to.String())
	m.state = to

	return nil
}

// fail moves the run to Failed unless it already ended.
func (m *machine) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Terminal() {
		m.logger.Debug("state changed", "from", m.state.String(), "to", Failed.String())
		m.state = Failed
	}
}
