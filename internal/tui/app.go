// Package tui is the terminal chat front end for the companion.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bowerhall/bubble/internal/client"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/protocol"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
)

// Backend is what the chat screen talks to; *client.Client satisfies it.
type Backend interface {
	Send(ctx context.Context, text string) (client.Reply, error)
	SendMood(m mood.Mood) error
	ChangeEnvironment(id string) error
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleNotice    = "notice"
)

type entry struct {
	Role string
	Text string
	Mood mood.Mood
	At   time.Time
}

type replyMsg struct {
	reply client.Reply
	err   error
}

type typingMsg struct{}

type systemMsg struct{ system protocol.System }

type environmentMsg struct{ change protocol.EnvironmentChange }

type offerMsg struct{ prompt string }

type moodMsg struct{ transition client.Transition }

type disconnectMsg struct{ err error }

type model struct {
	ctx     context.Context
	backend Backend
	bus     *client.Bus
	offer   *client.BreathingOffer
	events  chan tea.Msg

	width  int
	height int

	log      []entry
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     keyMap
	help     help.Model

	sending     bool
	typing      bool
	online      bool
	mood        mood.Mood
	environment string
	errMsg      string
}

func newModel(ctx context.Context, backend Backend, online bool) model {
	input := textinput.New()
	input.Placeholder = "How are you feeling today?"
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		ctx:      ctx,
		backend:  backend,
		bus:      client.NewBus(mood.Neutral),
		events:   make(chan tea.Msg, 32),
		viewport: viewport.New(80, 20),
		input:    input,
		spinner:  sp,
		keys:     defaultKeyMap,
		help:     help.New(),
		online:   online,
		mood:     mood.Neutral,
	}

	m.offer = client.NewBreathingOffer(func(prompt string) { m.emit(offerMsg{prompt}) })
	m.bus.Subscribe(m.offer.Observe)
	m.bus.Subscribe(func(t client.Transition) { m.emit(moodMsg{t}) })

	m.appendEntry(roleAssistant, "Hi, I'm Bubble. I'm here to listen. What's on your mind?", mood.Neutral)
	return m
}

// Run opens the chat screen on c until the user quits.
func Run(ctx context.Context, c *client.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Callbacks go in before Connect starts the socket reader.
	m := newModel(ctx, c, true)
	c.OnTyping(func() { m.emit(typingMsg{}) })
	c.OnSystem(func(s protocol.System) { m.emit(systemMsg{s}) })
	c.OnEnvironment(func(e protocol.EnvironmentChange) { m.emit(environmentMsg{e}) })
	c.OnDisconnect(func(err error) { m.emit(disconnectMsg{err}) })

	if err := c.Connect(ctx); err != nil {
		m.online = false
		m.appendEntry(roleNotice, "Realtime connection unavailable, messages go over HTTP.", "")
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	c.Close()
	return err
}

// emit hands an event from a background goroutine to the program. Events
// are dropped when the queue is full.
func (m model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

func (m model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func sendCmd(ctx context.Context, backend Backend, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := backend.Send(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-6, 10)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-7, 3)
		m.syncViewport()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			return m, m.submit()
		case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case replyMsg:
		m.sending = false
		m.typing = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.appendEntry(roleAssistant, msg.reply.Message, msg.reply.Mood)
		m.bus.Publish(client.Message{Role: client.RoleAssistant, Text: msg.reply.Message, Mood: msg.reply.Mood})
		return m, nil

	case typingMsg:
		if m.sending || m.typing {
			return m, m.waitForEvent()
		}
		m.typing = true
		return m, tea.Batch(m.spinner.Tick, m.waitForEvent())

	case systemMsg:
		if msg.system.Message != "" {
			m.appendEntry(roleNotice, msg.system.Message, "")
		}
		if msg.system.Error != "" {
			m.errMsg = msg.system.Error
		}
		return m, m.waitForEvent()

	case environmentMsg:
		m.environment = msg.change.Environment
		m.appendEntry(roleNotice, fmt.Sprintf("Environment changed to %s.", msg.change.Environment), "")
		return m, m.waitForEvent()

	case offerMsg:
		m.appendEntry(roleNotice, msg.prompt, "")
		return m, m.waitForEvent()

	case moodMsg:
		m.mood = msg.transition.To
		return m, m.waitForEvent()

	case disconnectMsg:
		m.online = false
		m.appendEntry(roleNotice, "Connection lost, messages go over HTTP.", "")
		return m, m.waitForEvent()

	case spinner.TickMsg:
		if !m.sending && !m.typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the input line: slash commands run locally, anything
// else goes to the companion.
func (m *model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sending {
		return nil
	}
	m.input.SetValue("")

	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}

	m.errMsg = ""
	m.sending = true
	m.appendEntry(roleUser, text, "")
	m.offer.CheckInput(text)

	return tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.backend, text))
}

func (m *model) command(text string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return tea.Quit

	case "env":
		if arg == "" {
			m.errMsg = "usage: /env <id>"
			return nil
		}
		if err := m.backend.ChangeEnvironment(arg); err != nil {
			m.errMsg = err.Error()
		}

	case "mood":
		md, ok := mood.Parse(arg)
		if !ok {
			m.errMsg = fmt.Sprintf("unknown mood %q", arg)
			return nil
		}
		if err := m.backend.SendMood(md); err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.appendEntry(roleNotice, fmt.Sprintf("Logged your mood as %s.", md), "")

	case "breathe":
		m.appendEntry(roleNotice, "Breathe in for 4, hold for 4, out for 4, hold for 4. Repeat a few times.", "")

	default:
		m.errMsg = fmt.Sprintf("unknown command /%s", name)
	}

	return nil
}

func (m *model) appendEntry(role, text string, md mood.Mood) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m.log = append(m.log, entry{Role: role, Text: text, Mood: md, At: time.Now()})
	m.syncViewport()
}

func (m *model) syncViewport() {
	width := max(m.viewport.Width-2, 20)

	var b strings.Builder
	for _, e := range m.log {
		b.WriteString(renderEntry(e, width))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
	m.viewport.GotoBottom()
}

func renderEntry(e entry, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	stamp := dimStyle.Render(e.At.Format("15:04"))

	switch e.Role {
	case roleUser:
		return stamp + " " + userStyle.Render("You") + "\n" + wrap.Render(e.Text)
	case roleAssistant:
		face := client.AvatarExpression(e.Mood).Face
		return stamp + " " + assistantStyle.Render("Bubble "+face) + "\n" + wrap.Render(e.Text)
	default:
		return noticeStyle.Render(wrap.Render(e.Text))
	}
}

func (m model) View() string {
	expr := client.AvatarExpression(m.mood)
	track := client.AmbientTrack(m.mood)

	status := "online"
	if !m.online {
		status = "offline"
	}
	header := headerStyle.Render("Bubble "+expr.Face) + dimStyle.Render(fmt.Sprintf("  mood: %s  sound: %s  %s", m.mood, track.Name, status))
	if m.environment != "" {
		header += dimStyle.Render("  env: " + m.environment)
	}

	activity := ""
	if m.sending || m.typing {
		activity = m.spinner.View() + dimStyle.Render(" Bubble is typing...")
	}
	if m.errMsg != "" {
		activity = errStyle.Render(m.errMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		activity,
		inputStyle.Render(m.input.View()),
		m.help.View(m.keys),
	)
}
