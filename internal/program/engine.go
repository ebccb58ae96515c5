package program

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Hub is the interface for broadcasting WebSocket events.
type Hub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// ChannelProgramCompleted is the hub channel for finished program runs.
const ChannelProgramCompleted = "program.completed"

// Engine runs programs from a library against live devices.
//
// Thread Safety: Run is safe for concurrent use. Each run compiles its
// own unit graph.
type Engine struct {
	sender  Sender
	resolve Resolver
	repo    Repository // For execution logging (may be nil)
	hub     Hub        // May be nil
	logger  Logger

	library *Library
}

// NewEngine creates a program engine.
//
// Parameters:
//   - library: Programs that can be run
//   - sender: Dispatcher used by every send step
//   - resolve: Maps device aliases to registry identities
//   - repo: Execution log (may be nil)
//   - hub: WebSocket hub for completion events (may be nil)
//   - logger: Logger instance (may be nil)
func NewEngine(library *Library, sender Sender, resolve Resolver, repo Repository, hub Hub, logger Logger) *Engine {
	if library == nil {
		library = &Library{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		library: library,
		sender:  sender,
		resolve: resolve,
		repo:    repo,
		hub:     hub,
		logger:  logger,
	}
}

// Library returns the engine's program library.
func (e *Engine) Library() *Library {
	return e.library
}

// Run executes the named program and returns its execution record.
//
// Returns ErrProgramNotFound for an unknown name and ErrUnknownAlias when
// the program refers to a device that has no identity; in both cases
// nothing runs and the execution is nil. When the program itself fails,
// the execution is returned together with the failure, unchanged.
func (e *Engine) Run(ctx context.Context, name, trigger string) (*Execution, error) {
	prog, err := e.Library().Get(name)
	if err != nil {
		return nil, err
	}

	root, err := Compile(prog.Step, e.sender, e.resolve)
	if err != nil {
		return nil, err
	}
	if g, ok := root.(*Group); ok && g.Label() == string(g.Mode()) {
		g.Named(name)
	}

	exec := &Execution{
		ID:        uuid.New().String(),
		Program:   name,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	exec.StepsTotal = Summarise(root).Total

	if e.repo != nil {
		if createErr := e.repo.CreateExecution(ctx, exec); createErr != nil {
			e.logger.Error("failed to create execution record", "error", createErr)
			// Continue: the program matters more than its log entry
		}
	}

	e.logger.Info("program started",
		"program", name,
		"execution_id", exec.ID,
		"trigger", trigger,
		"steps", exec.StepsTotal,
	)

	runErr := root.Run(ctx)

	completedAt := time.Now().UTC()
	duration := int(completedAt.Sub(exec.StartedAt).Milliseconds())
	summary := Summarise(root)
	exec.CompletedAt = &completedAt
	exec.DurationMS = &duration
	exec.StepsCompleted = summary.Completed
	exec.StepsFailed = summary.Failed
	exec.StepsPending = summary.Pending
	exec.Failures = Failures(root)
	exec.Status = StatusCompleted
	if runErr != nil {
		exec.Status = StatusFailed
		exec.Error = runErr.Error()
	}

	if e.repo != nil {
		if updateErr := e.repo.UpdateExecution(context.WithoutCancel(ctx), exec); updateErr != nil {
			e.logger.Error("failed to update execution record", "error", updateErr)
		}
	}

	logArgs := []any{
		"program", name,
		"execution_id", exec.ID,
		"status", exec.Status,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"pending", summary.Pending,
		"duration_ms", duration,
	}
	if runErr != nil {
		e.logger.Warn("program failed", append(logArgs, "error", runErr)...)
	} else {
		e.logger.Info("program complete", logArgs...)
	}

	if e.hub != nil {
		e.hub.Broadcast(ChannelProgramCompleted, map[string]any{
			"program":      name,
			"execution_id": exec.ID,
			"status":       string(exec.Status),
			"duration_ms":  duration,
			"error":        exec.Error,
		})
	}

	return exec, runErr
}
