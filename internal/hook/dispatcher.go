package hook

import (
	"context"
	"log/slog"

	"github.com/ayusman/shelfscan/internal/logging"
)

// Result is the outcome of one hook run.
type Result struct {
	Hook     string
	Response *Response
	Err      error
}

// OK reports whether the hook ran and reported success.
func (r Result) OK() bool {
	return r.Err == nil && r.Response != nil && r.Response.Success
}

// Dispatcher fans an event out to the subscribed hooks.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
	observe  func(name string, success bool)
}

// NewDispatcher creates a dispatcher. observe may be nil.
func NewDispatcher(manager *Manager, executor *Executor, logger *slog.Logger, observe func(name string, success bool)) *Dispatcher {
	if executor == nil {
		executor = NewExecutor(0)
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		logger:   logging.NewComponentLogger(logger, "hook"),
		observe:  observe,
	}
}

// Dispatch runs every hook subscribed to req.Event in name order. Failures
// are logged and returned, never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) []Result {
	if d == nil || d.manager == nil {
		return nil
	}
	hooks := d.manager.For(req.Event)
	results := make([]Result, 0, len(hooks))
	for _, h := range hooks {
		if ctx.Err() != nil {
			break
		}
		resp, err := d.executor.Execute(ctx, h, &req)
		result := Result{Hook: h.Manifest.Name, Response: resp, Err: err}
		results = append(results, result)

		attrs := []any{
			slog.String("hook", h.Manifest.Name),
			slog.String(logging.FieldEventType, req.Event),
		}
		switch {
		case err != nil:
			d.logger.Warn("hook failed", append(attrs, logging.Error(err))...)
		case !resp.Success:
			d.logger.Warn("hook reported failure", append(attrs, slog.String("reason", resp.Error))...)
		default:
			d.logger.Debug("hook ran", attrs...)
		}
		if d.observe != nil {
			d.observe(h.Manifest.Name, result.OK())
		}
	}
	return results
}
