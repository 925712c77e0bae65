// Package shell runs the interactive read-eval-print loop between the user
// and the agent.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/soyeahso/scout/internal/agent"
	"github.com/soyeahso/scout/internal/domain"
	"github.com/soyeahso/scout/internal/logging"
)

const (
	prompt      = "\nYou: "
	quitCommand = "quit"
	ruleWidth   = 60
)

// Agent answers one user turn given the full history.
type Agent interface {
	Run(ctx context.Context, history []domain.Message) (*agent.RunResult, error)
}

// Config controls the shell.
type Config struct {
	// Tools are the tool names announced at startup.
	Tools []string
	// MaxInputChars caps a user message, counted in characters. Zero means
	// no cap.
	MaxInputChars int
	// ServerDone is closed when the tool server goes away. Nil never fires.
	ServerDone <-chan struct{}
}

// ErrToolServerLost ends the session when the tool server exits while the
// shell is waiting for input.
var ErrToolServerLost = errors.New("tool server connection lost")

// Shell owns the conversation and feeds it to the agent one turn at a time.
type Shell struct {
	agent Agent
	conv  *domain.Conversation
	cfg   Config
	in    io.Reader
	out   io.Writer
	log   *logging.Logger
}

// New creates a shell reading from in and writing to out.
func New(a Agent, conv *domain.Conversation, cfg Config, in io.Reader, out io.Writer, log *logging.Logger) *Shell {
	return &Shell{
		agent: a,
		conv:  conv,
		cfg:   cfg,
		in:    in,
		out:   out,
		log:   log.Sub("shell"),
	}
}

// fatalError is implemented by errors that end the session, such as a lost
// tool server connection.
type fatalError interface {
	Fatal() bool
}

type line struct {
	text string
	err  error
}

// Run loops until the user types quit, input ends, ctx is cancelled, the
// tool server goes away, or a fatal error occurs. Only the last three return
// an error.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, strings.Join(append([]string{"Available Tools -"}, s.cfg.Tools...), " "))
	fmt.Fprintln(s.out, strings.Repeat("-", ruleWidth))

	lines := make(chan line)
	done := make(chan struct{})
	defer close(done)
	go readLines(s.in, lines, done)

	for {
		fmt.Fprint(s.out, prompt)

		var l line
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return ctx.Err()
		case <-s.cfg.ServerDone:
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, "Error:", ErrToolServerLost)
			return ErrToolServerLost
		case l = <-lines:
		}

		if l.err != nil {
			if !errors.Is(l.err, io.EOF) {
				return fmt.Errorf("read input: %w", l.err)
			}
			if l.text == "" {
				fmt.Fprintln(s.out)
				fmt.Fprintln(s.out, "Goodbye")
				return nil
			}
		}

		if l.text == quitCommand {
			fmt.Fprintln(s.out, "Goodbye")
			return nil
		}

		if err := s.turn(ctx, l.text); err != nil {
			return err
		}

		if l.err != nil {
			// Final line had no newline; input is exhausted.
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, "Goodbye")
			return nil
		}
	}
}

// turn runs one user message through the agent. It returns an error only
// when the session has to end.
func (s *Shell) turn(ctx context.Context, text string) error {
	text = s.truncate(text)
	s.conv.Append(domain.NewMessage(domain.RoleUser, text))

	result, err := s.agent.Run(ctx, s.conv.Messages())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fatal fatalError
		if errors.As(err, &fatal) && fatal.Fatal() {
			fmt.Fprintln(s.out, "Error:", err)
			return err
		}
		s.log.Info().Err(err).Msg("turn failed")
		fmt.Fprintln(s.out, "Error:", err)
		return nil
	}

	s.conv.Append(result.Messages...)
	fmt.Fprintln(s.out, "\nAgent:", result.Response)
	return nil
}

func (s *Shell) truncate(text string) string {
	limit := s.cfg.MaxInputChars
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	s.log.Info().Int("limit", limit).Msg("input truncated")
	// Cut on a byte offset so invalid sequences survive untouched.
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

// readLines sends each input line, without its line ending, until the
// reader fails or done is closed. The last send carries the error.
func readLines(r io.Reader, out chan<- line, done <-chan struct{}) {
	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		text = strings.TrimRight(text, "\r\n")
		select {
		case out <- line{text: text, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}
