package protocol

import (
	"strconv"

	"lineserver/internal/docstore"
	lserr "lineserver/internal/errors"
	"lineserver/internal/metrics"
)

// Action is what the connection does after a command's replies are
// written.
type Action int

const (
	Continue Action = iota // keep reading
	Close                  // end this session only
	Halt                   // terminate the process
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Close:
		return "close"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command.
type Result struct {
	Frames  []string // written in order
	Next    Action
	Outcome metrics.Outcome
	Err     error // classified failure, for logging only
}

// Dispatcher executes commands against a read-only store.  It is safe
// for concurrent use.
type Dispatcher struct {
	Store docstore.Reader
	Guard *ShutdownGuard
}

// NewDispatcher returns a dispatcher over store with an optional guard.
func NewDispatcher(store docstore.Reader, guard *ShutdownGuard) *Dispatcher {
	return &Dispatcher{Store: store, Guard: guard}
}

// Execute runs one command.
func (d *Dispatcher) Execute(cmd Command) Result {
	switch cmd.Verb {
	case VerbGet:
		return d.get(cmd.Args)
	case VerbQuit:
		return Result{Next: Close, Outcome: metrics.OutcomeControl}
	case VerbShutdown:
		if err := d.Guard.Check(cmd.Args); err != nil {
			return errResult(metrics.OutcomeBadRequest, err)
		}
		return Result{Next: Halt, Outcome: metrics.OutcomeControl}
	default:
		return Result{Frames: []string{HelpText}, Outcome: metrics.OutcomeUnknown}
	}
}

func (d *Dispatcher) get(args []string) Result {
	if len(args) == 0 {
		return errResult(metrics.OutcomeBadRequest,
			lserr.Protocol(lserr.Parse, "", lserr.ErrMissingArg))
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return errResult(metrics.OutcomeBadRequest,
			lserr.Protocol(lserr.Parse, args[0], lserr.ErrBadID))
	}
	line, err := d.Store.Get(id)
	if err != nil {
		return errResult(metrics.OutcomeNotFound, err)
	}
	return Result{Frames: []string{ReplyOK, line.Text}, Outcome: metrics.OutcomeOK}
}

func errResult(o metrics.Outcome, err error) Result {
	return Result{Frames: []string{ReplyErr}, Outcome: o, Err: err}
}
