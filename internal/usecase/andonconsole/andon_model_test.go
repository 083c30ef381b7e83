package andonconsole

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"factoryqc/internal/usecase/kpi"
)

type fakeAlertService struct {
	alerts   []kpi.AlertView
	listed   []kpi.ListAlertsInput
	acked    []kpi.AcknowledgeInput
	resolved []kpi.ResolveInput
	err      error
}

func (f *fakeAlertService) ListAlerts(_ context.Context, input kpi.ListAlertsInput) ([]kpi.AlertView, error) {
	f.listed = append(f.listed, input)
	return f.alerts, f.err
}

func (f *fakeAlertService) Acknowledge(_ context.Context, input kpi.AcknowledgeInput) (kpi.AlertView, error) {
	f.acked = append(f.acked, input)
	if f.err != nil {
		return kpi.AlertView{}, f.err
	}
	return kpi.AlertView{AlertNumber: input.Ref, Status: "acknowledged", Assignee: input.Assignee}, nil
}

func (f *fakeAlertService) Resolve(_ context.Context, input kpi.ResolveInput) (kpi.AlertView, error) {
	f.resolved = append(f.resolved, input)
	if f.err != nil {
		return kpi.AlertView{}, f.err
	}
	return kpi.AlertView{AlertNumber: input.Ref, Status: "resolved"}, nil
}

func sampleAlerts() []kpi.AlertView {
	at := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	return []kpi.AlertView{
		{ID: 1, AlertNumber: "AND-20260304-0001", MachineCode: "M-01", Status: "triggered", ConsecutiveNG: 3, EscalationLevel: 1, TriggeredAt: at},
		{ID: 2, AlertNumber: "AND-20260304-0002", MachineCode: "M-02", Status: "acknowledged", ConsecutiveNG: 6, EscalationLevel: 2, TriggeredAt: at, Assignee: "lead1"},
	}
}

func newLoadedModel(t *testing.T, svc *fakeAlertService, opts Options) *andonModel {
	t.Helper()

	model := NewAndonModel(context.Background(), svc, opts).(*andonModel)
	msg := model.loadAlertsCmd()()
	model.Update(msg)
	return model
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadAlertsUsesFilters(t *testing.T) {
	svc := &fakeAlertService{alerts: sampleAlerts()}
	model := newLoadedModel(t, svc, Options{MachineCode: " M-01 "})

	if len(svc.listed) != 1 {
		t.Fatalf("list calls = %d", len(svc.listed))
	}
	if got := svc.listed[0]; got.MachineCode != "M-01" || !got.OpenOnly {
		t.Fatalf("list input = %+v", got)
	}
	if len(model.alerts) != 2 || model.status != "refreshed, 2 alerts" {
		t.Fatalf("alerts=%d status=%q", len(model.alerts), model.status)
	}

	view := model.View()
	for _, want := range []string{"Andon Board", "AND-20260304-0001", "machine=M-02", "Assignee: -"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSelectionClampsAfterReload(t *testing.T) {
	svc := &fakeAlertService{alerts: sampleAlerts()}
	model := newLoadedModel(t, svc, Options{})

	model.Update(key("j"))
	model.Update(key("j"))
	if model.selectedIndex != 1 {
		t.Fatalf("selected = %d", model.selectedIndex)
	}

	svc.alerts = svc.alerts[:1]
	model.Update(model.loadAlertsCmd()())
	if model.selectedIndex != 0 {
		t.Fatalf("selected after shrink = %d", model.selectedIndex)
	}

	svc.alerts = nil
	model.Update(model.loadAlertsCmd()())
	if model.status != "no open alerts" {
		t.Fatalf("status = %q", model.status)
	}
	if _, ok := model.selectedAlert(); ok {
		t.Fatalf("expected no selection on empty board")
	}
}

func TestAcknowledgeFlow(t *testing.T) {
	svc := &fakeAlertService{alerts: sampleAlerts()}
	model := newLoadedModel(t, svc, Options{Operator: "lead1"})

	model.Update(key("a"))
	if model.mode != modeAcknowledge || model.input.Value() != "lead1" {
		t.Fatalf("mode=%d value=%q", model.mode, model.input.Value())
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected acknowledge command")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok {
		t.Fatalf("unexpected message %T", done)
	}
	if len(svc.acked) != 1 || svc.acked[0].Ref != "AND-20260304-0001" || svc.acked[0].Assignee != "lead1" {
		t.Fatalf("acknowledge input = %+v", svc.acked)
	}

	model.Update(done)
	if !strings.Contains(model.status, "acknowledged") || len(model.auditLogs) != 1 {
		t.Fatalf("status=%q audit=%v", model.status, model.auditLogs)
	}
}

func TestResolveFailureIsReported(t *testing.T) {
	svc := &fakeAlertService{alerts: sampleAlerts()}
	model := newLoadedModel(t, svc, Options{Operator: "lead2"})

	model.Update(key("j"))
	model.Update(key("r"))
	svc.err = errors.New("invalid state transition")
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	done := cmd().(actionDoneMsg)
	if len(svc.resolved) != 1 || svc.resolved[0].Ref != "AND-20260304-0002" || svc.resolved[0].ResolvedBy != "lead2" {
		t.Fatalf("resolve input = %+v", svc.resolved)
	}

	model.Update(done)
	if !strings.HasPrefix(model.status, "resolve failed") {
		t.Fatalf("status = %q", model.status)
	}
	if !strings.HasSuffix(model.auditLogs[0], "result=failed") {
		t.Fatalf("audit = %v", model.auditLogs)
	}
}

func TestInputCancelAndEmptyName(t *testing.T) {
	svc := &fakeAlertService{alerts: sampleAlerts()}
	model := newLoadedModel(t, svc, Options{})

	model.Update(key("a"))
	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.mode != modeBrowse || model.status != "canceled" {
		t.Fatalf("mode=%d status=%q", model.mode, model.status)
	}

	model.Update(key("a"))
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || model.status != "a name is required" {
		t.Fatalf("cmd=%v status=%q", cmd != nil, model.status)
	}
	if len(svc.acked) != 0 {
		t.Fatalf("unexpected acknowledge: %+v", svc.acked)
	}
}

func TestAuditLogIsBounded(t *testing.T) {
	model := NewAndonModel(context.Background(), &fakeAlertService{}, Options{}).(*andonModel)
	for i := 0; i < maxAuditLines+3; i++ {
		model.appendAuditLog("acknowledge", "AND-1", "x", "ok")
	}
	if len(model.auditLogs) != maxAuditLines {
		t.Fatalf("audit lines = %d", len(model.auditLogs))
	}
}
