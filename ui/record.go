// Package ui is the terminal front end: a live recording view, the
// reading card, and the preferences form.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"node.town/attacca/pipeline"
	"node.town/attacca/stt"
	"node.town/attacca/transcription"
)

type ProgressMsg transcription.Progress

// DoneMsg ends the recording view with the pipeline's outcome.
type DoneMsg struct {
	Reading *pipeline.Reading
	Err     error
}

type tickMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#2c3e50")).
			Padding(0, 1)
	partialStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	committedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type RecordModel struct {
	spinner  spinner.Model
	progress progress.Model
	duration time.Duration
	started  time.Time
	elapsed  time.Duration

	committed []string
	partial   string

	updates   <-chan transcription.Progress
	cancel    context.CancelFunc
	canceling bool

	done    bool
	reading *pipeline.Reading
	err     error
}

func NewRecordModel(
	duration time.Duration,
	updates <-chan transcription.Progress,
	cancel context.CancelFunc,
) RecordModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FEE033"))

	return RecordModel{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		duration: duration,
		started:  time.Now(),
		updates:  updates,
		cancel:   cancel,
	}
}

func (m RecordModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), waitForProgress(m.updates))
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForProgress(updates <-chan transcription.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return nil
		}
		return ProgressMsg(p)
	}
}

func (m RecordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// the run still has to finalize; DoneMsg ends the program
			if !m.canceling && m.cancel != nil {
				m.canceling = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-4, 10), 60)
		return m, nil

	case tickMsg:
		m.elapsed = time.Since(m.started)
		if m.done {
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ProgressMsg:
		if msg.Kind == stt.Partial {
			m.partial = msg.Text
		} else {
			m.committed = append(m.committed, msg.Text)
			m.partial = ""
		}
		return m, waitForProgress(m.updates)

	case DoneMsg:
		m.done = true
		m.reading = msg.Reading
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m RecordModel) fraction() float64 {
	if m.duration <= 0 {
		return 1
	}
	return min(float64(m.elapsed)/float64(m.duration), 1)
}

func (m RecordModel) status() string {
	switch {
	case m.done:
		return "Done"
	case m.canceling:
		return "Finishing up"
	case m.elapsed >= m.duration:
		return "Forming memory"
	default:
		return fmt.Sprintf("Listening %.1fs / %.0fs", m.elapsed.Seconds(), m.duration.Seconds())
	}
}

func (m RecordModel) TranscriptView() string {
	var b strings.Builder
	if len(m.committed) > 0 {
		b.WriteString(committedStyle.Render(strings.Join(m.committed, " ")))
	}
	if m.partial != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		p := transcription.Progress{Kind: stt.Partial, Text: m.partial}
		b.WriteString(partialStyle.Render(p.String()))
	}
	return b.String()
}

func (m RecordModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Riley's Rhythms"))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(m.fraction()))
	b.WriteString("\n\n")
	if t := m.TranscriptView(); t != "" {
		b.WriteString(t)
		b.WriteString("\n\n")
	}
	if !m.done && !m.canceling {
		b.WriteString(hintStyle.Render("Press q to stop early"))
		b.WriteString("\n")
	}
	return b.String()
}

// Result returns the outcome carried by DoneMsg.
func (m RecordModel) Result() (*pipeline.Reading, error) {
	return m.reading, m.err
}

// RunFunc records with sink receiving live progress.
type RunFunc func(ctx context.Context, sink transcription.Sink) (*pipeline.Reading, error)

// RunRecording shows the live view while run executes. Quitting the view
// cancels ctx for run and waits for it to finish.
func RunRecording(
	ctx context.Context,
	duration time.Duration,
	run RunFunc,
	opts ...tea.ProgramOption,
) (*pipeline.Reading, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan transcription.Progress, 16)
	program := tea.NewProgram(NewRecordModel(duration, updates, cancel), opts...)

	var (
		reading *pipeline.Reading
		runErr  error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		reading, runErr = run(ctx, transcription.ChanSink(updates))
		close(updates)
		program.Send(DoneMsg{Reading: reading, Err: runErr})
	}()

	_, err := program.Run()
	if err != nil {
		cancel()
		// keep committed progress from blocking a run nobody watches
		go func() {
			for range updates {
			}
		}()
	}
	<-finished

	if err != nil {
		return nil, fmt.Errorf("recording view: %w", err)
	}
	return reading, runErr
}
