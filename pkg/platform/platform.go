// Package platform defines the contract of the external designer binary:
// compiling an artifact tree into a binary processor file and decompiling
// one back into XML. The compiler core never requires a platform
// installation; the nop driver keeps every pipeline runnable without one.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/itdeo/go-procgen/internal/model"
)

// DefaultTimeout bounds a single driver invocation.
const DefaultTimeout = 300 * time.Second

// ErrDriverTimeout reports that the platform did not answer in time.
var ErrDriverTimeout = errors.New("platform: driver timeout")

// CompileOptions tune a compile invocation.
type CompileOptions struct {
	Validate bool
	Timeout  time.Duration
}

// ConfigCompileOptions tune a compile that loads the processor into a full
// configuration first, which enables semantic checks against real metadata.
type ConfigCompileOptions struct {
	IgnoreValidationErrors bool
	Timeout                time.Duration
}

// DecompileOptions tune a decompile invocation.
type DecompileOptions struct {
	Timeout time.Duration
}

// Result is the outcome of one driver call.
type Result struct {
	OK       bool
	Messages []string
}

// Driver is the designer-side counterpart of the compiler. Implementations
// shell out to a platform installation.
type Driver interface {
	Compile(ctx context.Context, xmlRootPath, epfPath string, opts CompileOptions) (*Result, error)
	CompileWithConfiguration(ctx context.Context, xmlRootDir, epfPath string, requirements []string, proc *model.Processor, opts ConfigCompileOptions) (*Result, error)
	Decompile(ctx context.Context, epfPath, outputDir string, opts DecompileOptions) (*Result, error)
}

// NopDriver accepts everything and produces nothing.
type NopDriver struct{}

func (NopDriver) Compile(ctx context.Context, xmlRootPath, epfPath string, opts CompileOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (NopDriver) CompileWithConfiguration(ctx context.Context, xmlRootDir, epfPath string, requirements []string, proc *model.Processor, opts ConfigCompileOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (NopDriver) Decompile(ctx context.Context, epfPath, outputDir string, opts DecompileOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

// Run executes one driver call under a timeout, translating a deadline hit
// into ErrDriverTimeout. The callback receives the bounded context.
func Run(ctx context.Context, timeout time.Duration, logger *slog.Logger, call func(ctx context.Context) (*Result, error)) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := call(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Error("platform driver timed out", "timeout", timeout)
		return nil, ErrDriverTimeout
	}
	return res, err
}
