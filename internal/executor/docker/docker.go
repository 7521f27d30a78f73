// Package docker runs whole scripts (script mode) with node inside pooled,
// network-less containers. It is the isolated alternative to the in-process
// jsengine backend; units mode is only available in-process.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/js-playground/internal/executor"
)

// Executor implements the executor.Executor interface using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ executor.Executor = (*Executor)(nil)

// New creates a new Docker Executor, pulls the image and starts the pool.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker: pulling image %s: %w", cfg.Image, err)
	}
	defer reader.Close()
	// Drain the progress stream; the pull is complete when it ends.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker: pulling image %s: %w", cfg.Image, err)
	}
	logger.Info("docker image is ready", slog.String("image", cfg.Image))

	e := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pool:   NewPool(cli, cfg, logger),
	}
	e.pool.Start()

	return e, nil
}

// Close shuts down the pool and the docker client.
func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

// Execute runs req.Code as one script in a fresh container.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	if req.Mode != executor.ModeScript {
		return nil, fmt.Errorf("docker: %w: %q", executor.ErrUnsupportedMode, req.Mode)
	}

	start := time.Now()

	program, err := buildProgram(req.Code)
	if err != nil {
		return nil, err
	}

	containerID, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: acquiring container: %w", err)
	}
	defer e.pool.Discard(containerID)

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	execResp, err := e.cli.ContainerExecCreate(runCtx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"node", "-"},
	})
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(runCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attachResp.Close()

	if deadline, ok := runCtx.Deadline(); ok {
		_ = attachResp.Conn.SetWriteDeadline(deadline)
	}
	if _, err := io.WriteString(attachResp.Conn, program); err != nil {
		if cause := stopCause(ctx); cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("docker: writing program: %w", err)
	}
	if err := attachResp.CloseWrite(); err != nil {
		return nil, fmt.Errorf("docker: closing stdin: %w", err)
	}

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	var out parsed
	exitCode := -1
	select {
	case <-done:
		inspect, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("docker: inspecting exec: %w", err)
		}
		exitCode = inspect.ExitCode
		out = parseOutput(stdout.String(), stderr.String(), exitCode)
	case <-runCtx.Done():
		if cause := stopCause(ctx); cause != nil {
			return nil, cause
		}
		out = parsed{failed: true, cause: "execution timed out"}
	}

	result := out.toResult()
	result.Duration = time.Since(start)

	e.logger.Debug("container script finished",
		slog.String("container", containerID),
		slog.Int("exitCode", exitCode),
		slog.Int("reports", len(result.Reports)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// stopCause returns the caller's cancellation as an error, or nil when the
// parent context is still live and only the run timeout fired.
func stopCause(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("docker: %w", err)
	}
	return nil
}
