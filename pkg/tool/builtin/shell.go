package toolbuiltin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ninetwolabs/agentrt/pkg/security"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

const (
	shellToolName        = "run_shell_command"
	shellDescription      = "Executes a shell command and returns its combined stdout/stderr."
	defaultShellTimeout   = 5 * time.Minute
	defaultShellMaxOutput = 1 << 20
)

var shellSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"command": map[string]interface{}{
			"type":        "string",
			"description": "Exact shell command to execute.",
		},
		"directory": map[string]interface{}{
			"type":        "string",
			"description": "Directory to run the command in, relative to the sandbox root.",
		},
		"description": map[string]interface{}{
			"type":        "string",
			"description": "Brief description of the command shown to the user.",
		},
	},
	Required: []string{"command"},
}

// ShellTool runs a shell command inside a sandboxed working directory.
// Commands containing command-substitution tokens are rejected outright;
// every other command gets an exec confirmation from ShouldConfirm. The
// ApprovalQueue passed to NewShellTool is stored but not consulted, so no
// whitelist bypasses that confirmation here.
type ShellTool struct {
	mu       sync.Mutex
	sandbox  *security.Sandbox
	root     string
	approval *security.ApprovalQueue
	timeout  time.Duration
}

var (
	_ tool.Tool        = (*ShellTool)(nil)
	_ tool.Confirmable = (*ShellTool)(nil)
)

// NewShellTool constructs a ShellTool rooted at root, confirming commands
// through approval before they run.
func NewShellTool(root string, approval *security.ApprovalQueue) *ShellTool {
	resolved := resolveRoot(root)
	return &ShellTool{
		sandbox:  security.NewSandbox(resolved),
		root:     resolved,
		approval: approval,
		timeout:  defaultShellTimeout,
	}
}

func (s *ShellTool) Name() string { return shellToolName }

func (s *ShellTool) Description() string { return shellDescription }

func (s *ShellTool) Schema() *tool.JSONSchema { return shellSchema }

// commandRoot returns the first whitespace-separated token of command, the
// unit an approval whitelist is scoped to (approving `git status` once
// whitelists `git`, not that exact invocation).
func commandRoot(command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", errors.New("could not identify command root")
	}
	return fields[0], nil
}

// isCommandAllowed rejects command substitution outright; these tokens let
// a command's output splice into the command line itself, defeating any
// review of the literal text being approved.
func isCommandAllowed(command string) bool {
	return !strings.Contains(command, "`") && !strings.Contains(command, "$(")
}

func (s *ShellTool) validate(params map[string]interface{}) (command, dir string, err error) {
	raw, ok := params["command"]
	if !ok {
		return "", "", errors.New("command is required")
	}
	command, err = coerceString(raw)
	if err != nil {
		return "", "", fmt.Errorf("command must be string: %w", err)
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return "", "", errors.New("command cannot be empty")
	}
	if !isCommandAllowed(command) {
		return "", "", fmt.Errorf("command is not allowed: %s", command)
	}
	if _, err := commandRoot(command); err != nil {
		return "", "", err
	}

	dir = s.root
	if rawDir, ok := params["directory"]; ok {
		dirStr, err := coerceString(rawDir)
		if err != nil {
			return "", "", fmt.Errorf("directory must be string: %w", err)
		}
		if strings.TrimSpace(dirStr) != "" {
			dir = filepath.Clean(filepath.Join(s.root, dirStr))
			if err := s.sandbox.ValidatePath(dir); err != nil {
				return "", "", err
			}
		}
	}
	return command, dir, nil
}

// ShouldConfirm always returns exec confirmation details for a valid
// command, carrying the command and its root; it does not check any
// whitelist.
func (s *ShellTool) ShouldConfirm(ctx context.Context, params map[string]interface{}) (*tool.ConfirmationDetails, error) {
	command, _, err := s.validate(params)
	if err != nil {
		return nil, err
	}
	root, _ := commandRoot(command)

	return &tool.ConfirmationDetails{
		Kind:        tool.ConfirmExec,
		Title:       "Confirm shell command",
		Command:     command,
		RootCommand: root,
		DisplayName: s.Name(),
	}, nil
}

func (s *ShellTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	command, dir, err := s.validate(params)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = sysProcAttrNewGroup()

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()

	output := combined.String()
	if len(output) > defaultShellMaxOutput {
		output = output[:defaultShellMaxOutput] + "\n...output truncated..."
	}

	if runCtx.Err() == context.DeadlineExceeded {
		killProcessGroup(cmd)
		return &tool.ToolResult{
			Success:       false,
			Output:        "command timed out",
			ReturnDisplay: output,
			Error:         runCtx.Err(),
		}, nil
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return nil, fmt.Errorf("run shell command: %w", runErr)
	}

	return &tool.ToolResult{
		Success:       exitCode == 0,
		Output:        fmt.Sprintf("command exited with code %d\noutput:\n%s", exitCode, output),
		ReturnDisplay: output,
		Data: map[string]interface{}{
			"exit_code": exitCode,
			"command":   command,
		},
	}, nil
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func sysProcAttrNewGroup() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
