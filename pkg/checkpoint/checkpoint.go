// Package checkpoint implements the filesystem snapshot sidecar the Turn
// Scheduler writes before a restorable tool call (replace/write_file)
// runs, and the directory watch that lets a caller learn about new
// checkpoints without polling.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sidecar is the JSON shape written alongside every restorable tool call,
// per spec §6: enough to rewind both the conversation and the filesystem.
type Sidecar struct {
	History       []any    `json:"history"`
	ClientHistory []any    `json:"clientHistory"`
	ToolCall      ToolCall `json:"toolCall"`
	CommitHash    string   `json:"commitHash"`
	FilePath      string   `json:"filePath"`
}

// ToolCall is the sidecar's minimal record of the call being checkpointed.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Snapshotter takes the actual filesystem snapshot (a git commit, a copy,
// whatever the caller's storage backend does) and returns its commit hash.
// checkpoint.Store owns only the sidecar bookkeeping, not the snapshot
// mechanism itself.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string) (commitHash string, err error)
}

// Store writes checkpoint sidecars under root/checkpoints, matching spec
// §6's "<project-temp-dir>/checkpoints/" convention. root is supplied by
// the caller (e.g. an agentctl session picks its own temp directory) since
// nothing in the retrieval pack establishes a single canonical location.
type Store struct {
	root        string
	snapshotter Snapshotter
	now         func() time.Time
}

// NewStore constructs a Store rooted at root, using snapshotter to produce
// the filesystem commit for each checkpoint.
func NewStore(root string, snapshotter Snapshotter) *Store {
	return &Store{root: root, snapshotter: snapshotter, now: time.Now}
}

func (s *Store) dir() string {
	return filepath.Join(s.root, "checkpoints")
}

// Write snapshots targetPath, then writes a sidecar recording history,
// clientHistory, the triggering tool call, the resulting commit hash and
// the target path. It returns the sidecar's file path.
func (s *Store) Write(ctx context.Context, toolName string, args map[string]any, targetPath string, history, clientHistory []any) (string, error) {
	commitHash, err := s.snapshotter.Snapshot(ctx, targetPath)
	if err != nil {
		return "", fmt.Errorf("checkpoint: snapshot %s: %w", targetPath, err)
	}

	sidecar := Sidecar{
		History:       history,
		ClientHistory: clientHistory,
		ToolCall:      ToolCall{Name: toolName, Args: args},
		CommitHash:    commitHash,
		FilePath:      targetPath,
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return "", fmt.Errorf("checkpoint: marshal sidecar: %w", err)
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", fmt.Errorf("checkpoint: mkdir: %w", err)
	}

	name := sidecarFilename(s.now(), targetPath, toolName)
	full := filepath.Join(s.dir(), name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("checkpoint: write sidecar: %w", err)
	}
	return full, nil
}

// Read loads and parses a sidecar file, used by a `/restore` command.
func (s *Store) Read(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read sidecar: %w", err)
	}
	var sidecar Sidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("checkpoint: parse sidecar: %w", err)
	}
	return &sidecar, nil
}

// List returns every sidecar path currently under the checkpoints
// directory, oldest first (the filename's leading ISO timestamp sorts
// lexically).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			paths = append(paths, filepath.Join(s.dir(), e.Name()))
		}
	}
	return paths, nil
}

// sidecarFilename builds "<iso-timestamp-dashed>-<basename>-<toolName>.json"
// per spec §6's filename convention: colons and dots in the RFC3339Nano
// timestamp are replaced with dashes so the name stays a valid path
// component on every OS the runtime targets.
func sidecarFilename(ts time.Time, targetPath, toolName string) string {
	stamp := ts.UTC().Format("2006-01-02T15:04:05.000000000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	base := filepath.Base(targetPath)
	return fmt.Sprintf("%s-%s-%s.json", stamp, base, toolName)
}
