package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// Pipe implements LineSource by running a helper command and reading its
// stdout.
type Pipe struct {
	name string
	argv []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// NewPipe creates a Pipe running argv. name labels log lines.
func NewPipe(name string, argv []string) *Pipe {
	return &Pipe{name: name, argv: argv}
}

func (p *Pipe) Lines(ctx context.Context) (<-chan []byte, error) {
	if len(p.argv) == 0 {
		return nil, errors.New("no sensor command configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting %s sensor: %w", p.name, err)
	}

	ch := make(chan []byte, 64)

	go func() {
		defer close(ch)
		defer func() {
			_ = cmd.Wait()
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 16*1024), 256*1024)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			if len(line) == 0 {
				continue
			}

			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			slog.Warn("sensor scanner error", "sensor", p.name, "error", err)
		}
	}()

	slog.Info("sensor started", "sensor", p.name, "command", p.argv[0])
	return ch, nil
}

func (p *Pipe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
