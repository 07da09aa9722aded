package replay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caseflow/internal/chat"
)

const permBody = `{"requiresPermission":true,"permissionType":"confirmed","toolName":"deleteCase","toolCallId":"tc-1","arguments":{"caseId":"42"},"description":"Delete case 42"}`

func twoStepTranscript() *Transcript {
	user := chat.NewUser("delete case 42")
	assistant := chat.NewAssistant("on it",
		chat.ToolCall{Name: "navigate", Status: chat.CallSuccess, Result: `{"success":true,"clientAction":{"type":"navigate","payload":{"path":"/cases/42"}}}`},
		chat.ToolCall{Name: "deleteCase", Status: chat.CallSuccess, Result: permBody},
	)
	return &Transcript{
		Name: "delete-case",
		Steps: []Step{
			{Status: chat.StatusStreaming, Messages: []chat.Message{user, assistant}},
			// The stream re-renders the identical message list.
			{Status: chat.StatusReady, Messages: []chat.Message{user, assistant}},
		},
	}
}

func TestRunHoldLeavesConfirmationPending(t *testing.T) {
	s := NewSession(Options{Policy: PolicyHold}, EchoInvoker, nil, nil)
	sum := s.Run(context.Background(), twoStepTranscript())

	if sum.ActionsExecuted != 1 {
		t.Errorf("expected 1 executed action across duplicate renders, got %d", sum.ActionsExecuted)
	}
	if sum.PendingLeft != 1 {
		t.Errorf("expected 1 pending confirmation, got %d", sum.PendingLeft)
	}
	if sum.Approved != 0 || sum.Denied != 0 {
		t.Errorf("hold policy must not decide: %+v", sum)
	}
}

func TestRunApproveAll(t *testing.T) {
	s := NewSession(Options{Policy: PolicyApproveAll}, EchoInvoker, nil, nil)
	sum := s.Run(context.Background(), twoStepTranscript())

	if sum.Approved != 1 {
		t.Fatalf("expected 1 approval, got %d", sum.Approved)
	}
	if sum.PendingLeft != 0 {
		t.Errorf("nothing should remain pending, got %d", sum.PendingLeft)
	}
	if len(sum.Continuations) != 1 || !strings.Contains(sum.Continuations[0], "deleteCase") {
		t.Errorf("expected one continuation naming the tool, got %v", sum.Continuations)
	}
}

func TestRunDenyAll(t *testing.T) {
	s := NewSession(Options{Policy: PolicyDenyAll}, EchoInvoker, nil, nil)
	sum := s.Run(context.Background(), twoStepTranscript())

	if sum.Denied != 1 || sum.Approved != 0 {
		t.Fatalf("expected 1 denial and no approvals, got %+v", sum)
	}
	if len(sum.Continuations) != 1 || !strings.Contains(sum.Continuations[0], "denied") {
		t.Errorf("expected a denial continuation, got %v", sum.Continuations)
	}
}

func TestRunAutoApproveList(t *testing.T) {
	s := NewSession(Options{Policy: PolicyHold, AutoApprove: []string{"deleteCase"}}, EchoInvoker, nil, nil)
	sum := s.Run(context.Background(), twoStepTranscript())

	if sum.Approved != 1 || sum.PendingLeft != 0 {
		t.Errorf("listed tool should be auto-approved: %+v", sum)
	}
}

func TestEchoInvoker(t *testing.T) {
	out, err := EchoInvoker(context.Background(), "deleteCase", `{"caseId":"42"}`)
	if err != nil {
		t.Fatalf("echo invoker: %v", err)
	}
	if !strings.Contains(out, "deleteCase") || !strings.Contains(out, "caseId") {
		t.Errorf("echo should report tool and arguments, got %q", out)
	}
}

func TestLoadTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	body := `{"name":"demo","steps":[{"messages":[{"id":"m-0","role":"user","content":"hi"}]}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tr.Name != "demo" || len(tr.Steps) != 1 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if tr.Steps[0].Status != chat.StatusReady {
		t.Errorf("missing status should default to ready, got %q", tr.Steps[0].Status)
	}
}

func TestRunRecordedTranscript(t *testing.T) {
	tr, err := Load(filepath.Join("testdata", "delete-case.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	s := NewSession(Options{Policy: PolicyApproveAll}, EchoInvoker, nil, nil)
	sum := s.Run(context.Background(), tr)

	// The navigation fires once even though the finished call is rendered in
	// two consecutive steps.
	if sum.ActionsExecuted != 1 || sum.ActionsFailed != 0 {
		t.Errorf("expected exactly one successful action, got %+v", sum)
	}
	if sum.Approved != 1 || sum.PendingLeft != 0 {
		t.Errorf("expected the deletion approved, got %+v", sum)
	}
	if len(sum.Continuations) != 1 || !strings.Contains(sum.Continuations[0], "tc-del") {
		t.Errorf("expected a continuation for tc-del, got %v", sum.Continuations)
	}
}

func TestLoadRejectsEmptyTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"steps":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a transcript with no steps")
	}
}
