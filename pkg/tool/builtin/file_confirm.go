package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ninetwolabs/agentrt/pkg/tool"
)

var (
	_ tool.Confirmable = (*FileTool)(nil)
	_ tool.Modifiable  = (*FileTool)(nil)
)

// ShouldConfirm flags write and delete operations as needing sign-off,
// attaching the old/new content so the approval prompt can render a diff.
// Reads never need confirmation.
func (f *FileTool) ShouldConfirm(ctx context.Context, params map[string]interface{}) (*tool.ConfirmationDetails, error) {
	op, err := parseOperation(params)
	if err != nil {
		return nil, err
	}
	if op == "read" {
		return nil, nil
	}

	target, err := f.resolvePath(params)
	if err != nil {
		return nil, err
	}

	switch op {
	case "write":
		oldText, existed := readExisting(target)
		newText, _ := coerceString(params["content"])
		return &tool.ConfirmationDetails{
			Kind:        tool.ConfirmEdit,
			Title:       fmt.Sprintf("Write %s", target),
			DisplayName: f.Name(),
			Diff: &tool.FileDiff{
				Path:     target,
				OldText:  oldText,
				NewText:  newText,
				IsCreate: !existed,
			},
		}, nil
	case "delete":
		oldText, _ := readExisting(target)
		return &tool.ConfirmationDetails{
			Kind:        tool.ConfirmEdit,
			Title:       fmt.Sprintf("Delete %s", target),
			DisplayName: f.Name(),
			Diff: &tool.FileDiff{
				Path:    target,
				OldText: oldText,
			},
		}, nil
	default:
		return nil, nil
	}
}

// ProposedContent returns the content a write operation would apply, so an
// approver can open it in an editor before confirming.
func (f *FileTool) ProposedContent(ctx context.Context, params map[string]interface{}) (string, error) {
	op, err := parseOperation(params)
	if err != nil {
		return "", err
	}
	if op != "write" {
		return "", errors.New("file tool: only write operations support modify-in-editor")
	}
	content, err := coerceString(params["content"])
	if err != nil {
		return "", err
	}
	return content, nil
}

// ApplyModifiedContent rewrites params with the user-edited text.
func (f *FileTool) ApplyModifiedContent(ctx context.Context, params map[string]interface{}, edited string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["content"] = edited
	return out, nil
}

func readExisting(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
