package checkpoint

import (
	"context"
	"fmt"

	"github.com/ninetwolabs/agentrt/pkg/convo"
)

// SchedulerAdapter implements pkg/turn.CheckpointSnapshotter by pairing a
// Store with the Session whose history belongs in every sidecar. It exists
// only to translate the scheduler's (toolName, args) call shape into
// Store.Write's fuller signature — the store itself has no dependency on
// pkg/turn or pkg/convo's types.
type SchedulerAdapter struct {
	store   *Store
	session *convo.Session
}

// NewSchedulerAdapter binds store and session together for the Turn
// Scheduler's checkpoint hook.
func NewSchedulerAdapter(store *Store, session *convo.Session) *SchedulerAdapter {
	return &SchedulerAdapter{store: store, session: session}
}

// Snapshot extracts the target path from args (the first non-empty string
// among its file_path, path and target_path arguments) and delegates to
// Store.Write, feeding it the session's current comprehensive history as
// both the UI-facing and client-facing history the sidecar records.
func (a *SchedulerAdapter) Snapshot(ctx context.Context, toolName string, args map[string]any) (string, string, error) {
	targetPath := extractPath(args)
	if targetPath == "" {
		return "", "", fmt.Errorf("checkpoint: %s call has no recognizable path argument", toolName)
	}

	history := a.session.GetHistory(false)
	items := make([]any, len(history))
	for i, m := range history {
		items[i] = m
	}

	sidecarPath, err := a.store.Write(ctx, toolName, args, targetPath, items, items)
	if err != nil {
		return "", "", err
	}
	sidecar, err := a.store.Read(sidecarPath)
	if err != nil {
		return "", "", err
	}
	return sidecar.CommitHash, sidecarPath, nil
}

func extractPath(args map[string]any) string {
	for _, key := range []string{"file_path", "path", "target_path"} {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
