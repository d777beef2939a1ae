package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a hook run when none is configured.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a hook exceeds its deadline.
var ErrTimeout = errors.New("hook execution timed out")

// Executor runs hook executables.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an executor with the given timeout in milliseconds.
func NewExecutor(timeoutMs int) *Executor {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-run limit.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs h with req on stdin in the hook's directory and decodes the
// JSON response from stdout.
func (e *Executor) Execute(ctx context.Context, h *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if req.Config == nil && len(h.Manifest.Config) > 0 {
		withConfig := *req
		withConfig.Config = h.Manifest.Config
		req = &withConfig
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal hook request: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", h.Manifest.Name, err, msg)
		}
		return nil, fmt.Errorf("hook %s failed: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &resp, nil
}
