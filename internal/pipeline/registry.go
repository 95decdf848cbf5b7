package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/roomflow/roomflow/internal/chat"
)

// Signal is the three-valued outcome a stage returns to the executor.
type Signal string

const (
	// SignalContinue proceeds to the next stage.
	SignalContinue Signal = "continue"
	// SignalStop ends the pipeline; the context's current message, if any,
	// is sent as the final reply.
	SignalStop Signal = "stop"
	// SignalSkipped means the stage declined to act. The executor proceeds
	// to the next stage but the signal stays observable for diagnostics.
	SignalSkipped Signal = "skipped"
)

// Result is what a stage handler returns. Message, when non-empty, replaces
// the context's current message before the signal is interpreted.
type Result struct {
	Signal  Signal
	Message string
}

// Continue proceeds to the next stage.
func Continue() Result { return Result{Signal: SignalContinue} }

// Stop ends the pipeline.
func Stop() Result { return Result{Signal: SignalStop} }

// Skip records that the stage declined to act and proceeds.
func Skip() Result { return Result{Signal: SignalSkipped} }

// ReplyWith sets the context message to msg and stops the pipeline. It is
// the shorthand early validation stages use to answer with a single error
// message and end processing.
func ReplyWith(msg string) Result {
	return Result{Signal: SignalStop, Message: msg}
}

// Handler is one named unit of pipeline logic.
type Handler func(ctx context.Context, sess *chat.Session, ec *Context) (Result, error)

// Constraints declares where a stage must run relative to other stages by
// name. Names that are never registered are ignored.
type Constraints struct {
	Before []string
	After  []string
}

type stage struct {
	name       string
	handler    Handler
	before     []string
	after      []string
	registered int // registration sequence, breaks ordering ties
}

// Registry holds named stages and their ordering constraints, and produces
// a deterministic linear execution order before first run. Registration is
// rejected once the order has been finalized.
type Registry struct {
	mu     sync.Mutex
	stages []*stage
	byName map[string]*stage
	sealed bool
	order  []*stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*stage)}
}

// Register adds a named stage. It fails with DuplicateStageError if the
// name is taken and SealedRegistryError after Finalize.
func (r *Registry) Register(name string, h Handler, c Constraints) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return &SealedRegistryError{Name: name}
	}
	if _, exists := r.byName[name]; exists {
		return &DuplicateStageError{Name: name}
	}

	s := &stage{
		name:       name,
		handler:    h,
		before:     c.Before,
		after:      c.After,
		registered: len(r.stages),
	}
	r.stages = append(r.stages, s)
	r.byName[name] = s
	return nil
}

// Finalize computes and caches the execution order, sealing the registry.
// A constraint cycle fails with CyclicOrderingError naming the stages that
// could not be ordered. Calling Finalize again is a no-op.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalizeLocked()
}

func (r *Registry) finalizeLocked() error {
	if r.sealed {
		return nil
	}

	order, err := r.sort()
	if err != nil {
		return err
	}
	r.order = order
	r.sealed = true
	return nil
}

// sort runs a stable Kahn's-algorithm topological sort. An edge A -> B
// exists when A declares before: B or B declares after: A. Ready stages
// are drained in registration order so identical registration sequences
// always yield identical orders.
func (r *Registry) sort() ([]*stage, error) {
	inDegree := make(map[string]int, len(r.stages))
	dependents := make(map[string][]string, len(r.stages))

	addEdge := func(from, to string) {
		for _, d := range dependents[from] {
			if d == to {
				return // redundant constraint, already an edge
			}
		}
		dependents[from] = append(dependents[from], to)
		inDegree[to]++
	}

	for _, s := range r.stages {
		if _, ok := inDegree[s.name]; !ok {
			inDegree[s.name] = 0
		}
	}
	for _, s := range r.stages {
		for _, b := range s.before {
			if _, ok := r.byName[b]; ok {
				addEdge(s.name, b)
			}
		}
		for _, a := range s.after {
			if _, ok := r.byName[a]; ok {
				addEdge(a, s.name)
			}
		}
	}

	var ready []*stage
	for _, s := range r.stages {
		if inDegree[s.name] == 0 {
			ready = append(ready, s)
		}
	}

	order := make([]*stage, 0, len(r.stages))
	for len(ready) > 0 {
		// Lowest registration sequence first
		sort.Slice(ready, func(i, j int) bool {
			return ready[i].registered < ready[j].registered
		})
		s := ready[0]
		ready = ready[1:]
		order = append(order, s)

		for _, dep := range dependents[s.name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, r.byName[dep])
			}
		}
	}

	if len(order) != len(r.stages) {
		placed := make(map[string]bool, len(order))
		for _, s := range order {
			placed[s.name] = true
		}
		var cyclic []string
		for _, s := range r.stages {
			if !placed[s.name] {
				cyclic = append(cyclic, s.name)
			}
		}
		return nil, &CyclicOrderingError{Stages: cyclic}
	}

	return order, nil
}

// Order returns the finalized stage names, finalizing lazily if needed.
func (r *Registry) Order() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.finalizeLocked(); err != nil {
		return nil, err
	}
	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.name
	}
	return names, nil
}

// ordered returns the finalized stage list, finalizing lazily on first use.
func (r *Registry) ordered() ([]*stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.finalizeLocked(); err != nil {
		return nil, err
	}
	return r.order, nil
}
