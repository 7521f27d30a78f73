package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Pool keeps a few idle `node` containers running so a script run doesn't pay
// for container start-up. Containers are single use: the executor removes
// each one after its script finishes and the manager starts a replacement.
type Pool struct {
	cli    *client.Client
	config Config
	logger *slog.Logger

	ready     chan string
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a pool. Nothing is started until Start is called.
func NewPool(cli *client.Client, cfg Config, logger *slog.Logger) *Pool {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	return &Pool{
		cli:    cli,
		config: cfg,
		logger: logger,
		ready:  make(chan string, size),
		done:   make(chan struct{}),
	}
}

// Start begins filling the pool in the background.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting script container pool", slog.Int("poolSize", cap(p.ready)))
		p.wg.Add(1)
		go p.fill()
	})
}

// Stop shuts down the manager and removes every idle container.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down script container pool")
		close(p.done)
		p.wg.Wait()

		for {
			select {
			case id := <-p.ready:
				p.remove(id)
			default:
				return
			}
		}
	})
}

// Acquire hands out an idle container ID, waiting until one is ready or ctx
// is done. The caller owns the container and must Discard it.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Discard force-removes a container handed out by Acquire.
func (p *Pool) Discard(id string) {
	p.remove(id)
}

// fill keeps the ready channel topped up until Stop is called.
func (p *Pool) fill() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.ready) == cap(p.ready) {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		id, err := p.create()
		if err != nil {
			p.logger.Error("failed to create script container", slog.String("error", err.Error()))
			time.Sleep(1 * time.Second)
			continue
		}

		select {
		case p.ready <- id:
		case <-p.done:
			p.remove(id)
			return
		}
	}
}

// create starts a locked-down container that just sleeps until it is used.
func (p *Pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image: p.config.Image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "node",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("docker: creating container: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("docker: starting container: %w", err)
	}

	return resp.ID, nil
}

func (p *Pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		p.logger.Warn("failed to remove script container",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
