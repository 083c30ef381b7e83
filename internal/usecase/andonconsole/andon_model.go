package andonconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/usecase/kpi"
)

const maxAuditLines = 8

// AlertService is the part of kpi.Service the console drives.
type AlertService interface {
	ListAlerts(ctx context.Context, input kpi.ListAlertsInput) ([]kpi.AlertView, error)
	Acknowledge(ctx context.Context, input kpi.AcknowledgeInput) (kpi.AlertView, error)
	Resolve(ctx context.Context, input kpi.ResolveInput) (kpi.AlertView, error)
}

type Options struct {
	MachineCode     string
	Operator        string
	ShowResolved    bool
	RefreshInterval time.Duration
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAcknowledge
	modeResolve
)

type andonModel struct {
	ctx             context.Context
	service         AlertService
	machineFilter   string
	operator        string
	showResolved    bool
	refreshInterval time.Duration

	alerts        []kpi.AlertView
	selectedIndex int
	status        string
	auditLogs     []string

	mode  inputMode
	input textinput.Model
}

type alertsLoadedMsg struct {
	items []kpi.AlertView
	err   error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action string
	ref    string
	actor  string
	alert  kpi.AlertView
	err    error
}

func NewAndonModel(ctx context.Context, service AlertService, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ti := textinput.New()
	ti.CharLimit = 128

	return &andonModel{
		ctx:             ctx,
		service:         service,
		machineFilter:   strings.TrimSpace(options.MachineCode),
		operator:        strings.TrimSpace(options.Operator),
		showResolved:    options.ShowResolved,
		refreshInterval: interval,
		status:          "loading",
		input:           ti,
	}
}

func (m *andonModel) Init() tea.Cmd {
	return tea.Batch(m.loadAlertsCmd(), m.tickCmd())
}

func (m *andonModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadAlertsCmd(), m.tickCmd())
	case alertsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.alerts = msg.items
		if m.selectedIndex >= len(m.alerts) {
			m.selectedIndex = len(m.alerts) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.mode == modeBrowse {
			if len(m.alerts) == 0 {
				m.status = "no open alerts"
			} else {
				m.status = fmt.Sprintf("refreshed, %d alerts", len(m.alerts))
			}
		}
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.ref, msg.actor, "failed")
			logging.Warn(m.ctx, "andon console action failed",
				slog.String("action", msg.action),
				slog.String("alert", msg.ref),
				slog.String("err", msg.err.Error()),
			)
		} else {
			m.status = fmt.Sprintf("%s done: %s is %s", msg.action, msg.alert.AlertNumber, msg.alert.Status)
			m.appendAuditLog(msg.action, msg.ref, msg.actor, msg.alert.Status)
		}
		return m, m.loadAlertsCmd()
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadAlertsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.alerts)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "a":
			return m, m.beginInput(modeAcknowledge, "assignee: ")
		case "r":
			return m, m.beginInput(modeResolve, "resolved by: ")
		}
	}
	return m, nil
}

func (m *andonModel) beginInput(mode inputMode, prompt string) tea.Cmd {
	if _, ok := m.selectedAlert(); !ok {
		m.status = "no alert selected"
		return nil
	}
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(m.operator)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *andonModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		m.status = "canceled"
		return m, nil
	case tea.KeyEnter:
		actor := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		if actor == "" {
			m.status = "a name is required"
			return m, nil
		}
		m.operator = actor
		if mode == modeAcknowledge {
			return m, m.acknowledgeCmd(actor)
		}
		return m, m.resolveCmd(actor)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *andonModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	alarmStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Andon Board"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"machine=%s resolved=%t refresh=%s",
		firstNonEmpty(m.machineFilter, "all"),
		m.showResolved,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Alerts"))
	builder.WriteString("\n")
	if len(m.alerts) == 0 {
		builder.WriteString(dimStyle.Render("- no alerts"))
		builder.WriteString("\n\n")
	} else {
		for index, alert := range m.alerts {
			line := fmt.Sprintf(
				"%s [%s] machine=%s ng=%d level=%d",
				alert.AlertNumber,
				alert.Status,
				alert.MachineCode,
				alert.ConsecutiveNG,
				alert.EscalationLevel,
			)
			switch {
			case index == m.selectedIndex:
				builder.WriteString(selectedStyle.Render("> " + line))
			case alert.Status == "triggered":
				builder.WriteString("  " + alarmStyle.Render(line))
			default:
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if alert, ok := m.selectedAlert(); ok {
		builder.WriteString(fmt.Sprintf("Alert: %s (id %d)\n", alert.AlertNumber, alert.ID))
		builder.WriteString(fmt.Sprintf("Description: %s\n", alert.Description))
		builder.WriteString(fmt.Sprintf("Triggered: %s\n", alert.TriggeredAt.Local().Format(time.DateTime)))
		builder.WriteString(fmt.Sprintf("Assignee: %s\n", firstNonEmpty(alert.Assignee, "-")))
		if alert.ResponseMinutes != nil {
			builder.WriteString(fmt.Sprintf("Response: %.1f min\n", *alert.ResponseMinutes))
		}
		builder.WriteString("\n")
	} else {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	if m.mode != modeBrowse {
		builder.WriteString(m.input.View())
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render("enter confirm  esc cancel"))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  a acknowledge  r resolve  q quit"))
	return builder.String()
}

func (m *andonModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *andonModel) loadAlertsCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.service.ListAlerts(m.ctx, kpi.ListAlertsInput{
			MachineCode: m.machineFilter,
			OpenOnly:    !m.showResolved,
		})
		if err != nil {
			return alertsLoadedMsg{err: err}
		}
		return alertsLoadedMsg{items: items}
	}
}

func (m *andonModel) acknowledgeCmd(actor string) tea.Cmd {
	selected, ok := m.selectedAlert()
	if !ok {
		return nil
	}
	ref := selected.AlertNumber
	m.status = "acknowledging " + ref
	return func() tea.Msg {
		alert, err := m.service.Acknowledge(m.ctx, kpi.AcknowledgeInput{Ref: ref, Assignee: actor})
		return actionDoneMsg{action: "acknowledge", ref: ref, actor: actor, alert: alert, err: err}
	}
}

func (m *andonModel) resolveCmd(actor string) tea.Cmd {
	selected, ok := m.selectedAlert()
	if !ok {
		return nil
	}
	ref := selected.AlertNumber
	m.status = "resolving " + ref
	return func() tea.Msg {
		alert, err := m.service.Resolve(m.ctx, kpi.ResolveInput{
			Ref:         ref,
			ResolvedBy:  actor,
			ActionTaken: "resolved from andon console",
		})
		return actionDoneMsg{action: "resolve", ref: ref, actor: actor, alert: alert, err: err}
	}
}

func (m *andonModel) selectedAlert() (kpi.AlertView, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.alerts) {
		return kpi.AlertView{}, false
	}
	return m.alerts[m.selectedIndex], true
}

func (m *andonModel) appendAuditLog(action, ref, actor, result string) {
	line := fmt.Sprintf("%s %s %s by=%s result=%s",
		time.Now().Format("15:04:05"), action, ref, firstNonEmpty(actor, "-"), result)
	m.auditLogs = append(m.auditLogs, line)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[len(m.auditLogs)-maxAuditLines:]
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
