// Package protocol implements the line-lookup command protocol: parsing
// request frames, dispatching them against the document store and
// driving one connection through its lifecycle.
//
// The dispatcher is transport-independent; the WebSocket handler in
// this package and the RESP front end both drive it.
package protocol

import "strings"

// Command verbs.  Matching is case-sensitive.
const (
	VerbGet      = "GET"
	VerbQuit     = "QUIT"
	VerbShutdown = "SHUTDOWN"
)

// Reply frames.
const (
	ReplyOK  = "OK"
	ReplyErr = "ERR"
	HelpText = "Command not recognized, try GET n, QUIT, or SHUTDOWN"
)

// Command is one parsed request.
type Command struct {
	Verb string
	Args []string
}

// Parse splits a request frame on whitespace.  The first token is the
// verb; an empty or blank frame yields an empty verb.
func Parse(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Verb: fields[0], Args: fields[1:]}
}

// FromArgs builds a Command from pre-split arguments, as delivered by
// array-framed protocols.
func FromArgs(args []string) Command {
	if len(args) == 0 {
		return Command{}
	}
	return Command{Verb: args[0], Args: args[1:]}
}

// String renders the command the way a client would type it.  A
// shutdown secret is masked.
func (c Command) String() string {
	if c.Verb == VerbShutdown && len(c.Args) > 0 {
		return VerbShutdown + " ***"
	}
	return strings.Join(append([]string{c.Verb}, c.Args...), " ")
}
