// Package main implements coreharness: a cobra-based dev CLI that drives
// the core's Thread/Chat/View-engine stack against an in-memory buffer
// host and a scripted provider, with no real editor or network
// dependency attached. It exists so the core can be exercised end to end
// during development the same way the teacher's cmd/nexus drives its own
// gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nexus-editor/agentcore/internal/appshell"
	"github.com/nexus-editor/agentcore/internal/chat"
	"github.com/nexus-editor/agentcore/internal/contextmgr"
	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/diagnostics"
	"github.com/nexus-editor/agentcore/internal/tools/exec"
	"github.com/nexus-editor/agentcore/internal/tools/files"
	"github.com/nexus-editor/agentcore/internal/tools/lsp"
	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coreharness",
		Short: "Drive the core's thread/chat/view-engine stack without a real editor attached",
	}
	cmd.AddCommand(buildRunCmd())
	return cmd
}

func buildRunCmd() *cobra.Command {
	var (
		workspace string
		prompt    string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn a root thread against a scripted provider and print the sidebar buffer",
		Long: `run wires an in-memory buffer host, a deterministic scripted provider, and
the full Chat/root-dispatcher stack together, spawns a root thread with
the given prompt, lets its scripted turn play out, and prints the
resulting sidebar buffer contents — a smoke test for the core with no
editor or network attached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return runHarness(cmd.Context(), workspace, prompt, logger)
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "Workspace root the file tools resolve paths against")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "say hello", "Initial user message sent to the root thread")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runHarness(ctx context.Context, workspace, prompt string, logger *slog.Logger) error {
	resolver := files.Resolver{Root: workspace}
	provider := thread.NewFakeProvider()
	provider.EnqueueTurn([]thread.StreamEvent{
		{BlockStart: &thread.BlockStart{Index: 0, Kind: thread.BlockText}},
		{Delta: &thread.BlockDelta{Index: 0, Text: "hello from the core harness"}},
		{BlockStop: intPtr(0)},
		{MessageDelta: &thread.MessageDelta{StopReason: thread.StopEndTurn}},
		{MessageStop: true},
	})

	sharedTools := buildSharedTools(workspace, resolver, logger)

	c := chat.New(chat.Config{
		Provider: provider,
		Kinds: map[thread.Kind]chat.KindConfig{
			thread.KindRoot: {
				Profile:      thread.Profile{Provider: "fake", Model: "harness-1", MaxTokens: 4096},
				SystemPrompt: "You are the core harness's scripted assistant.",
			},
		},
		ToolContext: toolcore.ToolContext{
			WorkspaceRoot: workspace,
			TmpDir:        os.TempDir(),
			Approval:      &toolcore.ApprovalPolicy{DefaultDecision: toolcore.ApprovalAllowed},
			Logger:        logger,
		},
		SharedTools: sharedTools,
		Logger:      logger,
	})

	host := buffer.NewMemHost()
	bufID := ids.BufferId("sidebar")
	host.CreateBuffer(bufID)

	app, err := appshell.Start(appshell.Config{
		Host:          host,
		BufferID:      bufID,
		StartPos:      position.Pos0{},
		Chat:          c,
		RootKind:      thread.KindRoot,
		InitialPrompt: prompt,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("start app shell: %w", err)
	}
	defer app.Destroy()

	// The scripted turn above resolves synchronously inside the
	// dispatcher's goroutine; a short, bounded wait covers the handoff
	// without the harness needing its own completion signal.
	deadline := time.Now().Add(2 * time.Second)
	for app.RootThreadID() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	fmt.Println(host.Text(bufID))
	return nil
}

func buildSharedTools(workspace string, resolver files.Resolver, logger *slog.Logger) []toolcore.Tool {
	cm := contextmgr.New()
	execManager := exec.NewManager(workspace)
	pool := toolcore.NewPool(toolcore.PoolConfig{Logger: logger})

	return []toolcore.Tool{
		files.NewGetFileTool(resolver, cm, nil, nil),
		files.NewListDirectoryTool(resolver),
		exec.NewBashCommandTool(execManager, os.TempDir(), pool),
		exec.NewProcessTool(execManager),
		lsp.NewHoverTool(resolver, noopLSPBridge{}),
		lsp.NewFindReferencesTool(resolver, noopLSPBridge{}),
		diagnostics.NewDiagnosticsTool(resolver, emptyDiagnosticStore{}),
	}
}

// noopLSPBridge stands in for a real language server connection: the
// harness has none attached, so every query reports "nothing found"
// rather than failing the tool call outright.
type noopLSPBridge struct{}

func (noopLSPBridge) Hover(ctx context.Context, filePath string, line, column int) (string, error) {
	return "", nil
}

func (noopLSPBridge) References(ctx context.Context, filePath string, line, column int) ([]lsp.Location, error) {
	return nil, nil
}

type emptyDiagnosticStore struct{}

func (emptyDiagnosticStore) Diagnostics() []diagnostics.Diagnostic { return nil }

func intPtr(i int) *int { return &i }
