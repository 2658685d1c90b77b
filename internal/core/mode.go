// Package core is the orchestration layer.  It composes the document
// store, the protocol handler and the transports into complete
// operational modes, and provides a builder that selects the right
// mode from a Config.
//
// Architecture layers (bottom → top):
//
//	docstore, transport  →  session  →  protocol  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of lineserver (serve or
// connect).  Each mode owns its full lifecycle from startup to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}
