// Package stream publishes settled simulation years to a socket.io server
// so dashboards can follow a long run as it progresses.
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	DefaultEvent   = "year"
	DefaultTimeout = 10 * time.Second
)

// Config describes where to publish.
type Config struct {
	// URL is the server address; its path selects the socket.io endpoint.
	URL                string
	Namespace          string
	Event              string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Publisher emits one event per simulated year.
type Publisher struct {
	io     *socket.Socket
	event  string
	logger *slog.Logger
}

// endpoint splits the URL into the manager base address and the socket.io
// path.
func (c Config) endpoint() (string, string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("stream URL %q must include a scheme and host", c.URL)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), u.Path, nil
}

func (c Config) withDefaults() Config {
	if c.Event == "" {
		c.Event = DefaultEvent
	}
	if c.Namespace == "" {
		c.Namespace = "/"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Connect dials the server over websocket and waits until the socket is
// connected, the server refuses it, or the timeout passes.
func Connect(ctx context.Context, cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()
	logger := ctxlog.FromContext(ctx).With("component", "stream", "url", cfg.URL, "event", cfg.Event)

	baseURL, path, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}

	opts := socket.DefaultOptions()
	if path != "" {
		opts.SetPath(path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "namespace", cfg.Namespace, "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	io.Connect()

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	select {
	case <-opCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for initial connection to %s", cfg.URL)
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
		}
	}

	return &Publisher{io: io, event: cfg.Event, logger: logger}, nil
}

// Publish emits the year record.
func (p *Publisher) Publish(rec *engine.YearRecord) error {
	p.logger.Debug("Emitting year.", "year", rec.Year)
	if err := p.io.Emit(p.event, Payload(rec)); err != nil {
		return fmt.Errorf("failed to emit year %d: %w", rec.Year, err)
	}
	return nil
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	p.logger.Debug("Disconnecting socket client")
	p.io.Disconnect()
}

// Payload renders a year record as plain data for the wire.
func Payload(rec *engine.YearRecord) map[string]any {
	outputs := make(map[string]any, len(rec.Outputs))
	for name, out := range rec.Outputs {
		outputs[name] = out.Native()
	}
	return map[string]any{
		"year":       rec.Year,
		"year_index": rec.YearIndex,
		"iterations": rec.Iterations,
		"converged":  rec.Converged,
		"outputs":    outputs,
		"transforms": rec.Transforms.Native(),
	}
}
