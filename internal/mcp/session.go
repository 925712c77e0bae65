// Package mcp manages the lifetime of an external MCP tool server and the
// client session spoken to it over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/soyeahso/scout/internal/config"
	"github.com/soyeahso/scout/internal/logging"
	"github.com/soyeahso/scout/internal/version"
)

// ToolDescriptor describes one tool offered by the server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallResult is the rendered outcome of a tool call. IsError is set when the
// tool itself reported failure; the call still completed at protocol level.
type CallResult struct {
	Text    string
	IsError bool
}

// TransportError reports that the connection to the tool server is gone.
// There is no reconnect, so callers should end the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tool server %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fatal reports that the error cannot be recovered from within the session.
func (e *TransportError) Fatal() bool { return true }

// Session is a connected MCP client session bound to one server.
type Session struct {
	name    string
	cfg     config.ToolServerConfig
	cs      *mcpsdk.ClientSession
	log     *logging.Logger
	done    chan struct{}
	waitErr error
	closing atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// safeEnvKeys are inherited from the parent environment; everything else the
// server sees comes from toolServer.env.
var safeEnvKeys = []string{"HOME", "LOGNAME", "PATH", "SHELL", "TERM", "USER"}

// Start launches the configured server process and performs the initialize
// handshake. The process is stopped by Close.
func Start(ctx context.Context, cfg config.ToolServerConfig, log *logging.Logger) (*Session, error) {
	if cfg.Command == "" {
		return nil, &config.ConfigError{Message: "toolServer.command is required"}
	}

	// Not CommandContext: the process must outlive the startup context.
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = buildEnv(os.LookupEnv, cfg.Env)
	cmd.Stderr = log.Sub("mcp." + serverName(cfg)).LineWriter()

	log.Debug().
		Str("command", cfg.Command).
		Strs("args", cfg.Args).
		Msg("starting tool server")

	transport := &mcpsdk.CommandTransport{
		Command:           cmd,
		TerminateDuration: cfg.TerminateTimeout(),
	}
	return Connect(ctx, transport, cfg, log)
}

// Connect performs the handshake over an already constructed transport.
func Connect(ctx context.Context, transport mcpsdk.Transport, cfg config.ToolServerConfig, log *logging.Logger) (*Session, error) {
	start := time.Now()
	name := serverName(cfg)
	log = log.Sub("mcp").With("server", name)

	initCtx := ctx
	if d := cfg.InitTimeout(); d > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "scout", Version: version.ClientVersion()}, nil)
	cs, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		return nil, &TransportError{Op: "handshake", Err: err}
	}

	s := &Session{
		name: name,
		cfg:  cfg,
		cs:   cs,
		log:  log,
		done: make(chan struct{}),
	}
	go s.watch()

	log.Info().Dur("handshake", time.Since(start)).Msg("tool server connected")
	return s, nil
}

func (s *Session) watch() {
	s.waitErr = s.cs.Wait()
	close(s.done)
	if !s.closing.Load() {
		s.log.Error().Err(s.waitErr).Msg("tool server connection lost")
	}
}

// Name returns the configured server name.
func (s *Session) Name() string { return s.name }

// Done is closed once the connection to the server has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// ListTools returns every tool the server offers, following pagination.
func (s *Session) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if err := s.lost("list tools"); err != nil {
		return nil, err
	}

	ctx, cancel := s.withCallTimeout(ctx)
	defer cancel()

	var tools []ToolDescriptor
	for tool, err := range s.cs.Tools(ctx, nil) {
		if err != nil {
			return nil, s.classify("list tools", err)
		}
		tools = append(tools, toDescriptor(tool))
	}

	s.log.Debug().Int("count", len(tools)).Msg("tools discovered")
	return tools, nil
}

// CallTool invokes a tool with already decoded arguments.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if err := s.lost("call " + name); err != nil {
		return nil, err
	}

	ctx, cancel := s.withCallTimeout(ctx)
	defer cancel()

	res, err := s.cs.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("tool %s timed out after %s: %w", name, s.cfg.CallTimeout(), err)
		}
		return nil, s.classify("call "+name, err)
	}
	return &CallResult{Text: renderContent(res), IsError: res.IsError}, nil
}

// Close ends the session and stops the server process. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		select {
		case <-s.done:
			// Already gone: reap the process but report nothing.
			_ = s.cs.Close()
			return
		default:
		}
		s.closeErr = s.cs.Close()
		<-s.done
		s.log.Debug().Err(s.closeErr).Msg("tool server stopped")
	})
	return s.closeErr
}

func (s *Session) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.cfg.CallTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// lost returns a TransportError if the connection has already ended.
func (s *Session) lost(op string) error {
	select {
	case <-s.done:
		err := s.waitErr
		if err == nil {
			err = mcpsdk.ErrConnectionClosed
		}
		return &TransportError{Op: op, Err: err}
	default:
		return nil
	}
}

// classify separates a dead connection from an ordinary protocol error.
func (s *Session) classify(op string, err error) error {
	if errors.Is(err, mcpsdk.ErrConnectionClosed) || errors.Is(err, io.EOF) {
		return &TransportError{Op: op, Err: err}
	}
	if lostErr := s.lost(op); lostErr != nil {
		return lostErr
	}
	return fmt.Errorf("tool server %s: %w", op, err)
}

func serverName(cfg config.ToolServerConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.Command
}

// buildEnv assembles the server environment: the safe subset of the parent
// environment, then the configured entries, sorted by key.
func buildEnv(lookup func(string) (string, bool), extra map[string]string) []string {
	vars := make(map[string]string, len(safeEnvKeys)+len(extra))
	for _, k := range safeEnvKeys {
		if v, ok := lookup(k); ok {
			vars[k] = v
		}
	}
	for k, v := range extra {
		vars[k] = v
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, len(keys))
	for i, k := range keys {
		env[i] = k + "=" + vars[k]
	}
	return env
}
