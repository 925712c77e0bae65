package cli

import (
	"fmt"
	"strings"

	"github.com/soyeahso/scout/internal/config"
	"github.com/soyeahso/scout/internal/mcp"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Start the tool server and list the tools it offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := checkSection(&cfg, "toolServer"); err != nil {
				return err
			}

			sess, err := mcp.Start(cmd.Context(), cfg.ToolServer, log)
			if err != nil {
				return fmt.Errorf("start tool server: %w", err)
			}
			defer sess.Close()

			tools, err := sess.ListTools(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d tools\n", sess.Name(), len(tools))
			for _, t := range tools {
				fmt.Fprintf(out, "  %-24s %s\n", t.Name, firstLine(t.Description))
			}
			return nil
		},
	}
}

// checkSection validates cfg but only reports issues under the given key.
func checkSection(cfg *config.Config, section string) error {
	var msgs []string
	for _, issue := range config.Validate(cfg) {
		if issue.Path == section || strings.HasPrefix(issue.Path, section+".") {
			msgs = append(msgs, issue.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &config.ConfigError{Message: strings.Join(msgs, "; ")}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
