package pipeline

import (
	"github.com/roomflow/roomflow/internal/room"
)

// Context carries per-message state across stages. One instance is created
// at pipeline entry and discarded at exit; it is never shared between
// concurrent runs.
type Context struct {
	// Message is the current message content. Stages may rewrite it for
	// downstream stages; on Stop it becomes the final user-visible reply.
	Message string

	// Command is the per-message command context, if an explicit command
	// was issued.
	Command string

	// Room is the resolved conversation room, set by the resolution stage
	// and confirmed by the validation stage.
	Room *room.Room

	// Extensions holds stage-specific keys the core does not model.
	Extensions map[string]any

	signals map[string]Signal
}

// NewContext creates an empty execution context.
func NewContext() *Context {
	return &Context{
		Extensions: make(map[string]any),
		signals:    make(map[string]Signal),
	}
}

func (c *Context) recordSignal(stage string, s Signal) {
	c.signals[stage] = s
}

// StageSignal returns the control signal a stage returned, if it has run.
// Skipped stages remain observable here after the run completes.
func (c *Context) StageSignal(stage string) (Signal, bool) {
	s, ok := c.signals[stage]
	return s, ok
}
