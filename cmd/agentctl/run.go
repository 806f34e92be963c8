package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ninetwolabs/agentrt/pkg/agent"
	"github.com/ninetwolabs/agentrt/pkg/checkpoint"
	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/event"
	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
	"github.com/ninetwolabs/agentrt/pkg/model/anthropic"
	"github.com/ninetwolabs/agentrt/pkg/tool"
	toolbuiltin "github.com/ninetwolabs/agentrt/pkg/tool/builtin"
	"github.com/ninetwolabs/agentrt/pkg/toolcall"
	"github.com/ninetwolabs/agentrt/pkg/turn"
)

const defaultAgentModel = "claude-3-5-sonnet-20241022"

func newRunCmd(logger *zerolog.Logger) *cobra.Command {
	var (
		model         string
		workDir       string
		approvalMode  string
		compressCron  string
		checkpointDir string
		systemPrompt  string
		configPath    string
		runnerConfig  string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Submit one turn to a fresh session and print the transcript",
		Example: `  agentctl run "list the files in this directory"
  agentctl run --approval yolo "run the test suite"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), *logger, runOptions{
				prompt:                args[0],
				model:                 model,
				workDir:               workDir,
				approvalMode:          approvalMode,
				approvalModeExplicit:  cmd.Flags().Changed("approval"),
				compressCron:          compressCron,
				checkpointDir:         checkpointDir,
				checkpointDirExplicit: cmd.Flags().Changed("checkpoint-dir"),
				systemPrompt:          systemPrompt,
				configPath:            configPath,
				runnerConfig:          runnerConfig,
			})
		},
	}

	cmd.Flags().StringVar(&model, "model", defaultAgentModel, "Anthropic model identifier")
	cmd.Flags().StringVar(&workDir, "workdir", ".", "root directory exposed to the shell and file tools")
	cmd.Flags().StringVarP(&approvalMode, "approval", "a", "default", "approval posture: default, auto-edit, or yolo")
	cmd.Flags().StringVar(&compressCron, "compress-schedule", "", "cron expression for background history compression, e.g. \"@every 5m\"")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "directory for restorable tool call sidecars; disabled when empty")
	cmd.Flags().StringVar(&systemPrompt, "system", "You are a careful, terse coding assistant with access to local tools.", "system instruction")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file providing system_instruction/token_limit/fallback_model defaults")
	cmd.Flags().StringVar(&runnerConfig, "runner-config", "", "JSON file with approval_mode/max_turns/compression_threshold/checkpoint_dir; flags override its values")

	return cmd
}

type runOptions struct {
	prompt                string
	model                 string
	workDir               string
	approvalMode          string
	approvalModeExplicit  bool
	compressCron          string
	checkpointDir         string
	checkpointDirExplicit bool
	systemPrompt          string
	configPath            string
	runnerConfig          string
}

func parseApprovalMode(s string) (toolcall.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return toolcall.ModeDefault, nil
	case "auto-edit", "autoedit":
		return toolcall.ModeAutoEdit, nil
	case "yolo":
		return toolcall.ModeYOLO, nil
	default:
		return "", fmt.Errorf("unknown approval mode %q", s)
	}
}

func runOnce(ctx context.Context, logger zerolog.Logger, opts runOptions) error {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	mode, err := parseApprovalMode(opts.approvalMode)
	if err != nil {
		return err
	}

	checkpointDir := opts.checkpointDir
	var rc *turn.RunnerConfig
	if opts.runnerConfig != "" {
		rc, err = turn.LoadRunnerConfig(opts.runnerConfig)
		if err != nil {
			return fmt.Errorf("load runner config: %w", err)
		}
		if !opts.approvalModeExplicit {
			mode = rc.ApprovalMode
		}
		if !opts.checkpointDirExplicit && rc.CheckpointDir != "" {
			checkpointDir = rc.CheckpointDir
		}
	}

	systemPrompt := opts.systemPrompt
	var tokenLimit int
	var fallbackModel string
	if opts.configPath != "" {
		cfg, err := agent.LoadConfigYAML(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.SystemInstruction != "" {
			systemPrompt = cfg.SystemInstruction
		}
		tokenLimit = cfg.TokenLimit
		fallbackModel = cfg.FallbackModelName
	}

	provider := anthropic.NewProvider()
	m, err := provider.NewModel(ctx, modelpkg.ModelConfig{
		Name:    "default",
		Model:   opts.model,
		APIKey:  apiKey,
		BaseURL: strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
	})
	if err != nil {
		return fmt.Errorf("create model: %w", err)
	}

	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		toolbuiltin.NewShellTool(opts.workDir, nil),
		toolbuiltin.NewFileTool(),
		toolbuiltin.NewTodoWriteTool(),
	} {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}

	session := convo.NewSession(m, systemPrompt, toModelToolDeclarations(registry.GetFunctionDeclarations()), tokenLimit)
	session.SetLogger(logger)
	if fallbackModel != "" {
		session.SetFlashFallback(fallbackModel, func(current, fallback string) bool { return false })
	}
	if rc != nil {
		session.SetCompressionThreshold(rc.CompressionThreshold)
	}

	manager := toolcall.NewManager(registry)
	manager.SetMode(mode)
	manager.SetLogger(logger)

	scheduler := turn.NewScheduler(session, manager)
	scheduler.SetLogger(logger)
	scheduler.SetConfirmationRequester(&stdinConfirmationRequester{in: bufio.NewReader(os.Stdin)})
	if rc != nil {
		scheduler.SetMaxTurns(rc.MaxTurns)
	}

	if checkpointDir != "" {
		store := checkpoint.NewStore(checkpointDir, gitSnapshotter{root: opts.workDir})
		scheduler.SetCheckpointSnapshotter(checkpoint.NewSchedulerAdapter(store, session))
	}

	if opts.compressCron != "" {
		ticker, err := turn.NewCompressionTicker(opts.compressCron, session, func(snap *convo.CompressionSnapshot, err error) {
			if err != nil {
				logger.Debug().Err(err).Msg("agentctl: background compression failed")
				return
			}
			if snap != nil {
				fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("(compressed history: %d -> %d tokens)", snap.OriginalTokenCount, snap.NewTokenCount)))
			}
		})
		if err != nil {
			return fmt.Errorf("compression schedule: %w", err)
		}
		tickerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go ticker.Run(tickerCtx)
	}

	scheduler.OnUpdate(printEvent)

	return scheduler.Submit(ctx, opts.prompt)
}

// toModelToolDeclarations mirrors pkg/agent's unexported helper of the same
// name; the two can't share code across the package boundary since that
// one is private to the facade.
func toModelToolDeclarations(decls []tool.FunctionDeclaration) []modelpkg.ToolDeclaration {
	out := make([]modelpkg.ToolDeclaration, 0, len(decls))
	for _, d := range decls {
		var schema []byte
		if d.Parameters != nil {
			schema, _ = json.Marshal(d.Parameters)
		}
		out = append(out, modelpkg.ToolDeclaration{Name: d.Name, Description: d.Description, Schema: schema})
	}
	return out
}

// printEvent renders the scheduler's progress/control/monitor events to the
// terminal as they arrive, giving a run command roughly the same live view
// the pkg/agent facade's channel-based Run consumers get.
func printEvent(evt event.Event) {
	switch evt.Type {
	case event.EventContent:
		if text, ok := evt.Data.(string); ok {
			fmt.Print(text)
		}
	case event.EventThought:
		fmt.Println(dimStyle.Render(fmt.Sprintf("(thinking: %v)", evt.Data)))
	case event.EventToolCallsUpdated:
		fmt.Println(infoStyle.Render(fmt.Sprintf("tool update: %v", evt.Data)))
	case event.EventChatCompressed:
		fmt.Println(dimStyle.Render(fmt.Sprintf("(history compressed: %v)", evt.Data)))
	case event.EventUserCancelled:
		fmt.Println(warningStyle.Render("cancelled"))
	case event.EventError:
		fmt.Println(errorStyle.Render(fmt.Sprintf("error: %v", evt.Data)))
	case event.EventTurnComplete:
		fmt.Println()
		fmt.Println(successStyle.Render("turn complete"))
	}
}

// stdinConfirmationRequester implements turn.ConfirmationRequester by
// rendering the pending call's confirmation details with the section/info
// styles and reading a single line of y/n/always input from stdin, the
// terminal analogue of a UI's inline approval prompt.
type stdinConfirmationRequester struct {
	in *bufio.Reader
}

func (r *stdinConfirmationRequester) RequestConfirmation(ctx context.Context, call *toolcall.ToolCall) (toolcall.Decision, error) {
	details := call.Confirmation
	fmt.Println(sectionStyle.Render("Tool call awaiting approval"))
	if details != nil {
		fmt.Printf("%s %s\n", infoStyle.Render("tool:"), call.Name)
		if details.Title != "" {
			fmt.Printf("%s %s\n", infoStyle.Render("what:"), details.Title)
		}
		if details.Command != "" {
			fmt.Printf("%s %s\n", infoStyle.Render("command:"), details.Command)
		}
		if details.Diff != nil {
			fmt.Println(infoStyle.Render("diff:"))
			fmt.Printf("--- %s\n+++ %s\n", details.Diff.Path, details.Diff.Path)
			fmt.Println(details.Diff.NewText)
		}
	} else {
		fmt.Printf("%s %s %v\n", infoStyle.Render("tool:"), call.Name, call.Args)
	}
	fmt.Print(warningStyle.Render("proceed? [y/N/a=always for this tool/q=cancel run]: "))

	line, _ := r.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return toolcall.Decision{ProceedOnce: true}, nil
	case "a", "always":
		return toolcall.Decision{ProceedAlways: toolcall.ScopeTool}, nil
	default:
		fmt.Println(errorStyle.Render("declined"))
		return toolcall.Decision{Cancel: true}, nil
	}
}

// gitSnapshotter implements checkpoint.Snapshotter by committing the
// working tree with git, the checkpoint mechanism spec §6 describes for
// restorable tool calls. It shells out rather than linking a git library
// since none of the retrieval pack vendors one.
type gitSnapshotter struct {
	root string
}

func (g gitSnapshotter) Snapshot(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(g.root)
	if err != nil {
		return "", err
	}
	add := exec.CommandContext(ctx, "git", "-C", abs, "add", "-A")
	if err := add.Run(); err != nil {
		return "", fmt.Errorf("checkpoint: git add: %w", err)
	}
	commit := exec.CommandContext(ctx, "git", "-C", abs, "commit", "--allow-empty", "-m", fmt.Sprintf("agentctl checkpoint: %s", path))
	if err := commit.Run(); err != nil {
		return "", fmt.Errorf("checkpoint: git commit: %w", err)
	}
	rev := exec.CommandContext(ctx, "git", "-C", abs, "rev-parse", "HEAD")
	out, err := rev.Output()
	if err != nil {
		return "", fmt.Errorf("checkpoint: git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
