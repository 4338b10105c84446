package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// StatusKind is the two valued health signal the configurator exposes.
type StatusKind string

const (
	// StatusActive means state was built and published successfully.
	StatusActive StatusKind = "active"
	// StatusBlocked means reconciliation stopped; the message says why.
	StatusBlocked StatusKind = "blocked"
)

// Status is the externally observable outcome of one reconciliation.
type Status struct {
	Kind    StatusKind `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Active builds a healthy status.
func Active() Status { return Status{Kind: StatusActive} }

// Blocked builds a blocked status with an operator facing message.
func Blocked(message string) Status {
	return Status{Kind: StatusBlocked, Message: message}
}

// StatusReporter surfaces the reconciliation outcome to the platform.
type StatusReporter interface {
	Report(ctx context.Context, status Status) error
}

// MultiReporter dispatches a status over multiple reporters.
type MultiReporter []StatusReporter

// Report implements StatusReporter.
func (m MultiReporter) Report(ctx context.Context, status Status) error {
	var errs *multierror.Error
	for _, r := range m {
		if err := r.Report(ctx, status); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// LogReporter writes the status to the context logger.
type LogReporter struct{}

// Report implements StatusReporter.
func (LogReporter) Report(ctx context.Context, status Status) error {
	evt := zerolog.Ctx(ctx).Info()
	if status.Kind == StatusBlocked {
		evt = zerolog.Ctx(ctx).Warn()
	}
	evt.Str("status", string(status.Kind)).Str("message", status.Message).Msg("reconciled")
	return nil
}

// FileReporter writes the status as JSON for the hook harness to pick up.
type FileReporter struct {
	Path string
}

// Report implements StatusReporter.
func (f FileReporter) Report(_ context.Context, status Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// Recorder keeps the last reported status in memory.
type Recorder struct {
	Last *Status
}

// Report implements StatusReporter.
func (r *Recorder) Report(_ context.Context, status Status) error {
	r.Last = &status
	return nil
}
