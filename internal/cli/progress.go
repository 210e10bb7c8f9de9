package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/entraops/entramap/internal/service"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// statusMsg carries a pipeline stage update from the service.
type statusMsg service.StatusUpdate

// resultMsg carries the final outcome of the run.
type resultMsg struct {
	summary *service.RunSummary
	err     error
}

// stagePct maps each stage to overall progress. The directory fetch
// dominates wall time, so it gets the widest band.
var stagePct = map[service.Stage]float64{
	service.StageFetchAgents:    0.1,
	service.StageFetchDirectory: 0.4,
	service.StageCorrelate:      0.75,
	service.StageSave:           0.9,
	service.StageDone:           1.0,
}

// correlateModel is the bubbletea model for a correlation run.
type correlateModel struct {
	progress progress.Model
	theme    Theme
	cancel   context.CancelFunc
	stage    service.Stage
	fetched  int
	result   *resultMsg
	quitting bool
}

func newCorrelateModel(cancel context.CancelFunc) correlateModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return correlateModel{
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
		stage:    service.StageFetchAgents,
	}
}

// Init returns the initial command.
func (m correlateModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m correlateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Cancel the pipeline; the final resultMsg still arrives.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case statusMsg:
		m.stage = msg.Stage
		if msg.Fetched > 0 {
			m.fetched = msg.Fetched
		}
		return m, nil

	case resultMsg:
		m.result = &msg
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m correlateModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m correlateModel) renderContent() string {
	if m.result != nil {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.stage))
	bar := m.progress.ViewAs(stagePct[m.stage])

	detail := ""
	if m.stage == service.StageFetchDirectory && m.fetched > 0 {
		detail = fmt.Sprintf(" %d records", m.fetched)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return fmt.Sprintf("%s %s%s\n%s\n", status, bar, detail, hint)
}

// finalView renders the completion message.
func (m correlateModel) finalView() string {
	if m.result.err != nil {
		if m.quitting {
			return m.theme.hintStyle().Render("\nRun cancelled.\n")
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Run failed: %s\n", m.result.err))
	}

	s := m.result.summary
	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Agents:            %d\n", s.AgentCount)
	output += fmt.Sprintf("  Directory records: %d\n", s.RecordCount)
	output += fmt.Sprintf("  Mappings:          %d\n", len(s.Mappings))
	if len(s.Report.Dropped) > 0 {
		output += m.theme.errorStyle().Render(
			fmt.Sprintf("\n  %d record(s) dropped (no pair)\n", len(s.Report.Dropped)))
	}
	return output
}

// RunCorrelateProgress executes the correlation pipeline behind an
// interactive progress display. Stage updates flow in via p.Send from
// the service's notify callback.
func RunCorrelateProgress(ctx context.Context, svc *service.CorrelationService, opts service.RunOptions) (*service.RunSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newCorrelateModel(cancel))

	opts.Notify = func(u service.StatusUpdate) {
		p.Send(statusMsg(u))
	}

	go func() {
		summary, err := svc.Run(ctx, opts)
		p.Send(resultMsg{summary: summary, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(correlateModel); ok && m.result != nil {
		return m.result.summary, m.result.err
	}
	return nil, fmt.Errorf("progress UI exited without a result")
}
