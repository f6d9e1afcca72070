package main

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glasspane/webview-runtime/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 20

type browseModel struct {
	disp    *bridge.Dispatcher
	frame   *bridge.Frame
	reg     *bridge.Registry
	url     string
	input   textinput.Model
	history []string
	pending bool
}

type envelopeMsg bridge.Envelope

type outboxClosedMsg struct{}

func newBrowseModel(cfg *Config, reg *bridge.Registry, disp *bridge.Dispatcher, frame *bridge.Frame) *browseModel {
	ti := textinput.New()
	ti.Placeholder = "addInt 2 3"
	ti.Prompt = "call> "
	ti.Width = 60
	ti.Focus()

	return &browseModel{
		disp:  disp,
		frame: frame,
		reg:   reg,
		url:   cfg.StartURL,
		input: ti,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := m.input.Value()
			m.input.Reset()
			name, args, err := parseCommand(line)
			if err != nil {
				return m, nil
			}
			if !m.reg.Has(name) {
				m.record(errorStyle.Render(fmt.Sprintf("no such function %q", name)))
				return m, nil
			}
			m.pending = true
			m.record(funcStyle.Render(line))
			m.disp.Dispatch(bridge.CallRequest{
				Name:   name,
				Args:   args,
				ID:     callID.Add(1),
				Origin: m.frame,
			})
			return m, nil
		}

	case envelopeMsg:
		switch {
		case msg.Result != nil:
			m.pending = false
			if msg.Result.OK() {
				m.record(resultStyle.Render(fmt.Sprintf("= %s", msg.Result.Value)))
			} else {
				m.record(errorStyle.Render(fmt.Sprintf("! %s", msg.Result.Err)))
			}
		case msg.Event != nil:
			m.record(eventStyle.Render(fmt.Sprintf("~ %s", msg.Event)))
		}
		return m, nil

	case outboxClosedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *browseModel) record(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

func (m *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Browse"))
	b.WriteString(" ")
	b.WriteString(m.url)
	b.WriteString("\n\n")

	b.WriteString("Functions: ")
	b.WriteString(funcStyle.Render(strings.Join(m.reg.Names(), ", ")))
	b.WriteString("\n\n")

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.pending {
		b.WriteString(helpStyle.Render("..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter call • esc quit"))

	return b.String()
}

func runTUI(cfg *Config, reg *bridge.Registry, disp *bridge.Dispatcher, frame *bridge.Frame, envelopes <-chan bridge.Envelope) error {
	p := tea.NewProgram(newBrowseModel(cfg, reg, disp, frame), tea.WithAltScreen())

	var quitting atomic.Bool
	go func() {
		for env := range envelopes {
			if quitting.Load() {
				return
			}
			p.Send(envelopeMsg(env))
		}
		p.Send(outboxClosedMsg{})
	}()

	_, err := p.Run()
	quitting.Store(true)
	return err
}
