package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/helix/helix/agent"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant on the terminal",
	Long: `Chat runs a single session over stdin and stdout. Questions are
printed as text and sequences as indented JSON. An empty line or EOF ends it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		return runChat(cmd.Context(), rt.orch, rt.registry.Create(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, orch *agent.Orchestrator, sess *agent.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}

		result := orch.ProcessTurn(ctx, sess, line)
		if result.Type == agent.TypeQuestion {
			fmt.Fprintln(out, result.Chat.Content)
			continue
		}
		pretty, err := json.MarshalIndent(result.Workspace, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(pretty))
	}
}
