package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/scout/internal/agent"
	"github.com/soyeahso/scout/internal/config"
	"github.com/soyeahso/scout/internal/domain"
	"github.com/soyeahso/scout/internal/llm"
	"github.com/soyeahso/scout/internal/mcp"
	"github.com/soyeahso/scout/internal/shell"
	"github.com/spf13/cobra"
)

// runChat starts the tool server and runs the interactive shell until the
// user quits.
func runChat(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Check(&cfg); err != nil {
		return err
	}

	chatLog, closer, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	client, err := llm.NewClientFromConfig(cfg.Model)
	if err != nil {
		return err
	}

	sess, err := mcp.Start(ctx, cfg.ToolServer, chatLog)
	if err != nil {
		return fmt.Errorf("start tool server: %w", err)
	}
	defer sess.Close()

	tools := agent.NewToolRegistry()
	names, err := agent.LoadMCPTools(ctx, sess, tools)
	if err != nil {
		return err
	}

	conv := domain.NewConversation(agent.BuildSystemPrompt(agent.PromptConfig{
		Base:        cfg.Agent.SystemPrompt,
		ExtraPrompt: cfg.Agent.ExtraPrompt,
		Now:         time.Now(),
	}))
	sessionLog := chatLog.With("session", conv.ID)

	sessionLog.Info().
		Str("provider", client.Name()).
		Str("model", cfg.Model.Name).
		Strs("tools", names).
		Msg("session started")

	runner := agent.NewRunner(agent.RunnerConfig{
		Model:        cfg.Model.Name,
		MaxTokens:    cfg.Model.MaxTokens,
		Temperature:  cfg.Model.Temperature,
		MaxRounds:    cfg.Agent.MaxRounds,
		ModelTimeout: cfg.Model.Timeout(),
	}, client, tools, sessionLog)

	sh := shell.New(runner, conv, shell.Config{
		Tools:         names,
		MaxInputChars: cfg.Agent.MaxInputChars,
		ServerDone:    sess.Done(),
	}, cmd.InOrStdin(), cmd.OutOrStdout(), sessionLog)

	err = sh.Run(ctx)
	sessionLog.Info().Int("messages", conv.Len()).Msg("session ended")
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}
