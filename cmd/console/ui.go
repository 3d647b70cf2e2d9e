package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/eduquest/adventure-engine/pkg/game"
)

const (
	NarratorName    = "Narrator"
	PlaceHolderText = "What do you do?"
)

type entryRole int

const (
	entryScene entryRole = iota
	entryPlayer
	entryFeedback
	entryError
)

// transcriptEntry is one block of the play log: a scene, the player's
// action, or evaluation feedback.
type transcriptEntry struct {
	role entryRole
	text string
}

// ConsoleUI is the BubbleTea model that runs the play loop.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	client    *apiClient
	game      *game.Game
	character *game.Character
	quests    []game.Quest
	session   *game.Session

	transcript   []transcriptEntry
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	showQuitModal bool
	progressTick  int
}

type turnMsg struct {
	turn *TurnResult
	err  error
}

type refreshMsg struct {
	agg *GameAggregate
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	sceneTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	feedbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")) // pale yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(client *apiClient, g *game.Game, character *game.Character, quests []game.Quest, session *game.Session) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	m := ConsoleUI{
		client:       client,
		game:         g,
		character:    character,
		quests:       quests,
		session:      session,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
	for _, scene := range session.History {
		m.transcript = append(m.transcript, transcriptEntry{entryScene, sceneText(&scene)})
	}
	return m
}

func sceneText(s *game.Scene) string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString(s.Title + "\n\n")
	}
	b.WriteString(s.Narration)
	if len(s.AvailableActions) > 0 {
		b.WriteString("\n\nYou could:")
		for _, a := range s.AvailableActions {
			b.WriteString("\n  • " + a)
		}
	}
	return b.String()
}

func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(m.game.Title)) + "\n\n")
	content.WriteString("Type your actions below and press Enter.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, e := range m.transcript {
		switch e.role {
		case entryScene:
			content.WriteString(formatSceneEntry(e.text, chatWidth) + "\n\n")
		case entryPlayer:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(e.text, chatWidth-6) + "\n\n")
		case entryFeedback:
			content.WriteString(feedbackStyle.Render(wordwrap.String(e.text, chatWidth)) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render("Error: "+e.text) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

// formatSceneEntry renders a scene block: bold title line, narrated body.
func formatSceneEntry(text string, width int) string {
	title, body, hasTitle := strings.Cut(text, "\n\n")
	if !hasTitle {
		return narratorStyle.Render(NarratorName+": ") + wordwrap.String(text, width-len(NarratorName)-2)
	}
	return sceneTitleStyle.Render(title) + "\n" + wordwrap.String(body, width)
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")

	content.WriteString("Character:\n")
	content.WriteString(fmt.Sprintf("%s (%s)\n\n", m.character.Name, m.character.Archetype))

	if len(m.character.Attributes) > 0 {
		content.WriteString("Attributes:\n")
		for _, name := range sortedKeys(m.character.Attributes) {
			content.WriteString(fmt.Sprintf("• %s: %d\n", name, m.character.Attributes[name]))
		}
		content.WriteString("\n")
	}

	if len(m.quests) > 0 {
		content.WriteString("Quests:\n")
		for _, q := range m.quests {
			done := 0
			for _, step := range q.Steps {
				if step.Completed {
					done++
				}
			}
			content.WriteString(fmt.Sprintf("• %s (%d/%d) %s\n", q.Title, done, len(q.Steps), q.Status))
		}
		content.WriteString("\n")
	}

	content.WriteString(fmt.Sprintf("Scenes:\n%d so far\n\n", len(m.session.History)))

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")

	m.metaViewport.SetContent(content.String())
}

func sortedKeys(attrs map[string]int) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0
			m.transcript = append(m.transcript, transcriptEntry{entryPlayer, input})
			m.writeChatContent()

			return m, tea.Batch(m.submitAction(input), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.transcript = append(m.transcript, transcriptEntry{entryError, msg.err.Error()})
		} else {
			if msg.turn.Result != nil {
				feedback := msg.turn.Result.Description
				if msg.turn.Result.Feedback != "" {
					feedback += "\n" + msg.turn.Result.Feedback
				}
				m.transcript = append(m.transcript, transcriptEntry{entryFeedback, feedback})
			}
			if msg.turn.Scene != nil {
				m.transcript = append(m.transcript, transcriptEntry{entryScene, sceneText(msg.turn.Scene)})
			}
			if msg.turn.Session != nil {
				m.session = msg.turn.Session
			}
		}
		m.writeChatContent()
		m.chatViewport.GotoBottom()
		return m, m.refreshGame()

	case refreshMsg:
		if msg.err == nil && msg.agg != nil {
			m.quests = msg.agg.Quests
			for i := range msg.agg.Characters {
				if msg.agg.Characters[i].ID == m.character.ID {
					m.character = &msg.agg.Characters[i]
				}
			}
			m.writeMetadata()
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• /quests - Show quest progress
• Ctrl+C - Quit game

How to play:
• Type your actions and press Enter
• The narrator evaluates each action and continues the story
• Quest steps complete as you solve challenges
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()

	case "/quests":
		var questsText strings.Builder
		questsText.WriteString(titleStyle.Render("Quests:") + "\n")
		if len(m.quests) == 0 {
			questsText.WriteString("No quests yet.\n")
		}
		for _, q := range m.quests {
			questsText.WriteString(fmt.Sprintf("• %s [%s]\n", q.Title, q.Status))
			for _, step := range q.Steps {
				mark := " "
				if step.Completed {
					mark = "x"
				}
				questsText.WriteString(fmt.Sprintf("    [%s] %s\n", mark, step.Description))
			}
		}
		questsText.WriteString("\n")

		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + questsText.String())
		m.chatViewport.GotoBottom()
	}

	m.textarea.Reset()
	return m, nil
}

func (m ConsoleUI) submitAction(action string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.client.SubmitAction(m.game.ID, m.character.ID, action)
		return turnMsg{turn, err}
	}
}

func (m ConsoleUI) refreshGame() tea.Cmd {
	return func() tea.Msg {
		agg, err := m.client.GetGame(m.game.ID)
		return refreshMsg{agg, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved. Leave the adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar animates a bar while a turn is in flight.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
