package turn

import "context"

// CheckpointSnapshotter is asked to snapshot the filesystem before a
// restorable tool call (replace/write_file) is allowed to proceed, per
// spec §4.6. The scheduler does not own the snapshot format; it only
// calls out at the right moment.
type CheckpointSnapshotter interface {
	Snapshot(ctx context.Context, toolName string, args map[string]any) (commitHash string, filePath string, err error)
}

// MemoryRefreshSignaler is notified at most once per callId when a
// save_memory call succeeds, per spec §4.1/§4.6.
type MemoryRefreshSignaler interface {
	SignalMemoryRefresh(ctx context.Context, callID string)
}

// noopCheckpointer and noopSignaler let a Scheduler run with no wiring
// configured, matching the teacher's convention of always-safe zero
// values over nil-checks scattered through the hot path.
type noopCheckpointer struct{}

func (noopCheckpointer) Snapshot(ctx context.Context, toolName string, args map[string]any) (string, string, error) {
	return "", "", nil
}

type noopSignaler struct{}

func (noopSignaler) SignalMemoryRefresh(ctx context.Context, callID string) {}
