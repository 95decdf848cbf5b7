// Package registration wires the built-in pipeline stages.
package registration

import (
	"context"
	"fmt"

	"github.com/roomflow/roomflow/internal/chat"
	"github.com/roomflow/roomflow/internal/config"
	"github.com/roomflow/roomflow/internal/pipeline"
	"github.com/roomflow/roomflow/internal/resolver"
	"github.com/roomflow/roomflow/internal/storage"
)

// Stage names of the built-in pipeline.
const (
	StageTransformInbound = "transform-inbound"
	StageResolveRoom      = "resolve-room"
	StageValidateRoom     = "validate-room"
	StageRecordHistory    = "record-history"
)

// RegisterCoreStages registers the built-in stages on the registry. The
// before/after constraints are declared on both sides where that reads
// naturally; the scheduler treats the redundancy as a single edge.
func RegisterCoreStages(reg *pipeline.Registry, res *resolver.Resolver, store storage.RoomStore, cfg *config.Config) error {
	transform := func(ctx context.Context, sess *chat.Session, ec *pipeline.Context) (pipeline.Result, error) {
		content := sess.Transform(cfg.Chat.BotID)
		ec.Message = content
		if cmd, ok := chat.ParseCommand(content); ok {
			ec.Command = cmd
		}
		return pipeline.Continue(), nil
	}

	recordHistory := func(ctx context.Context, sess *chat.Session, ec *pipeline.Context) (pipeline.Result, error) {
		if ec.Room == nil {
			return pipeline.Skip(), nil
		}
		if err := store.AppendHistory(ctx, ec.Room.ID, "user", sess.Content); err != nil {
			return pipeline.Result{}, fmt.Errorf("append history: %w", err)
		}
		return pipeline.Continue(), nil
	}

	stages := []struct {
		name        string
		handler     pipeline.Handler
		constraints pipeline.Constraints
	}{
		{StageTransformInbound, transform, pipeline.Constraints{Before: []string{StageResolveRoom}}},
		{StageResolveRoom, res.Resolve, pipeline.Constraints{
			After:  []string{StageTransformInbound},
			Before: []string{StageValidateRoom},
		}},
		{StageValidateRoom, res.Validate, pipeline.Constraints{After: []string{StageResolveRoom}}},
		{StageRecordHistory, recordHistory, pipeline.Constraints{After: []string{StageValidateRoom}}},
	}

	for _, s := range stages {
		if err := reg.Register(s.name, s.handler, s.constraints); err != nil {
			return fmt.Errorf("register stage %s: %w", s.name, err)
		}
	}
	return nil
}
