package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/shardfall/journey-engine/pkg/engine"
	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/story"
)

// usableItems is the fixed set offered in the item modal, in menu order.
var usableItems = []struct {
	id   string
	name string
}{
	{"potion", "🧪 Purity Potion"},
	{"crystal_heart", "💖 Crystal Heart"},
	{"pure_shard", "✨ Pure Shard"},
	{"dark_core", "🌑 Dark Core"},
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	part          *story.Part
	player        *player.State
	impact        []string
	notice        string
	ended         bool
	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool

	// Item selection modal state
	showItemModal bool
	selectedItem  int

	// Confirmation modal states
	showResetModal bool
	showQuitModal  bool
}

type journeyMsg struct {
	result *engine.JourneyResult
	err    error
}

type turnMsg struct {
	result *engine.TurnResult
	err    error
}

type dailyMsg struct {
	result *engine.DailyResult
	err    error
}

type itemMsg struct {
	result *engine.UseItemResult
	err    error
}

type resetMsg struct {
	err error
}

var (
	storyPanelStyle = lipgloss.NewStyle().
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

	partTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	impactStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	separatorStyle = lipgloss.NewStyle().
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

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		client:        client,
		storyViewport: storyVp,
		metaViewport:  metaVp,
		loading:       true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.start()
}

func (m ConsoleUI) start() tea.Cmd {
	return func() tea.Msg {
		result, err := startJourney(m.client, m.config.APIBaseURL, m.config.UserID)
		return journeyMsg{result: result, err: err}
	}
}

func (m ConsoleUI) choose(index int) tea.Cmd {
	partID := m.part.ID
	return func() tea.Msg {
		result, err := takeChoice(m.client, m.config.APIBaseURL, m.config.UserID, partID, index)
		return turnMsg{result: result, err: err}
	}
}

func (m ConsoleUI) daily() tea.Cmd {
	return func() tea.Msg {
		result, err := claimDaily(m.client, m.config.APIBaseURL, m.config.UserID)
		return dailyMsg{result: result, err: err}
	}
}

func (m ConsoleUI) consume(itemID string) tea.Cmd {
	return func() tea.Msg {
		result, err := useItem(m.client, m.config.APIBaseURL, m.config.UserID, itemID)
		return itemMsg{result: result, err: err}
	}
}

func (m ConsoleUI) reset() tea.Cmd {
	return func() tea.Msg {
		err := resetProgress(m.client, m.config.APIBaseURL, m.config.UserID)
		if err != nil {
			return resetMsg{err: err}
		}
		result, err := startJourney(m.client, m.config.APIBaseURL, m.config.UserID)
		return journeyMsg{result: result, err: err}
	}
}

func (m *ConsoleUI) writeStoryContent() {
	storyWidth := m.storyViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("JOURNEY ENGINE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(storyWidth-6, 1))) + "\n\n")

	if m.ended {
		content.WriteString(narrativeStyle.Render("🏁 Your journey has come to an end. Thank you for playing.") + "\n\n")
		content.WriteString("Press r to begin anew, or q to quit.\n")
		m.storyViewport.SetContent(content.String())
		return
	}

	if m.part != nil {
		content.WriteString(partTitleStyle.Render("📖 "+m.part.Title) + "\n\n")
		content.WriteString(narrativeStyle.Render(wordwrap.String(m.part.Text, storyWidth)) + "\n\n")

		for i, ch := range m.part.Choices {
			line := fmt.Sprintf("%d. %s %s", i+1, ch.Emoji, ch.Text)
			content.WriteString(choiceStyle.Render(wordwrap.String(line, storyWidth)) + "\n")
		}
		content.WriteString("\n")
	}

	if len(m.impact) > 0 {
		content.WriteString(impactStyle.Render("Impact: "+strings.Join(m.impact, ", ")) + "\n\n")
	}
	if m.notice != "" {
		content.WriteString(impactStyle.Render(m.notice) + "\n\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.loading {
		content.WriteString(separatorStyle.Render("...") + "\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TRAVELER") + "\n\n")

	if m.player == nil {
		content.WriteString("Loading...\n")
		m.metaViewport.SetContent(content.String())
		return
	}

	p := m.player
	content.WriteString(p.UserID + "\n\n")
	content.WriteString(fmt.Sprintf("Level %d (XP %d/100)\n", p.Level, p.XP))
	content.WriteString(fmt.Sprintf("%s %s\n", p.Alignment.Emoji(), p.Alignment))
	content.WriteString(fmt.Sprintf("📍 %s\n\n", p.Location))

	content.WriteString(fmt.Sprintf("💎 Shards: %d\n", p.Shards))
	content.WriteString(fmt.Sprintf("🩸 Corruption: %d/100\n", p.Corruption))
	content.WriteString(fmt.Sprintf("🔮 Mystery: %d/100\n", p.Mystery))
	content.WriteString(fmt.Sprintf("⭐ Reputation: %d\n", p.Reputation))
	content.WriteString(fmt.Sprintf("🤝 Aren's Trust: %d/100\n", p.TrustAren))
	content.WriteString(fmt.Sprintf("🌍 Stability: %d/100\n\n", p.WorldStability))

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• d: Daily reward\n")
	content.WriteString("• u: Use item\n")
	content.WriteString("• c: Copy text\n")
	content.WriteString("• r: Reset\n")
	content.WriteString("• q: Quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showItemModal {
		return m.updateItemModal(msg)
	}
	if m.showResetModal {
		return m.updateResetModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		svCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, svCmd = m.storyViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(svCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.72) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 4
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.writeStoryContent()
		m.writeMetadata()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.showQuitModal = true
			return m, nil
		}
		switch msg.String() {
		case "q", "esc":
			m.showQuitModal = true
			return m, nil
		case "d":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.err = nil
			m.writeStoryContent()
			return m, m.daily()
		case "u":
			if !m.loading {
				m.showItemModal = true
				m.selectedItem = 0
			}
			return m, nil
		case "r":
			if !m.loading {
				m.showResetModal = true
			}
			return m, nil
		case "c":
			if m.part != nil {
				if err := clipboard.WriteAll(m.part.Title + "\n\n" + m.part.Text); err != nil {
					m.err = err
				} else {
					m.notice = "📋 Part text copied to clipboard"
				}
				m.writeStoryContent()
			}
			return m, nil
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if m.loading || m.part == nil || m.ended {
				return m, nil
			}
			index := int(msg.String()[0] - '1')
			if index >= len(m.part.Choices) {
				return m, nil
			}
			m.loading = true
			m.err = nil
			m.notice = ""
			m.writeStoryContent()
			return m, m.choose(index)
		}

	case journeyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.part = msg.result.Part
			m.player = msg.result.Player
			m.impact = nil
			m.ended = false
			m.notice = ""
			if msg.result.HasProgress {
				m.notice = "Welcome back. Your journey continues where you left it."
			}
		}
		m.writeStoryContent()
		m.writeMetadata()

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.part = msg.result.Part
			m.player = msg.result.Player
			m.impact = msg.result.Impact
			m.ended = msg.result.Ended
			m.notice = ""
			if !msg.result.Success {
				m.notice = "⚠️ The attempt failed and the path changed!"
			}
			for _, a := range msg.result.NewAchievements {
				m.notice += fmt.Sprintf("\n🏆 Achievement unlocked: %s %s", a.Emoji, a.Name)
			}
		}
		m.writeStoryContent()
		m.writeMetadata()

	case dailyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.player = msg.result.Player
			m.notice = "🎁 Daily reward: " + msg.result.Summary
		}
		m.writeStoryContent()
		m.writeMetadata()

	case itemMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.player = msg.result.Player
			m.notice = fmt.Sprintf("%s used: %s", msg.result.Item.Name, msg.result.Summary)
		}
		m.writeStoryContent()
		m.writeMetadata()

	case resetMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeStoryContent()
		}
	}

	m.storyViewport, svCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(svCmd, mvCmd)
}

func (m ConsoleUI) updateItemModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "up", "k":
		if m.selectedItem > 0 {
			m.selectedItem--
		}
	case "down", "j":
		if m.selectedItem < len(usableItems)-1 {
			m.selectedItem++
		}
	case "enter":
		m.showItemModal = false
		m.loading = true
		m.err = nil
		m.writeStoryContent()
		return m, m.consume(usableItems[m.selectedItem].id)
	case "esc", "q":
		m.showItemModal = false
	}
	return m, nil
}

func (m ConsoleUI) updateResetModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		m.showResetModal = false
		m.loading = true
		m.err = nil
		m.writeStoryContent()
		return m, m.reset()
	case "n", "N", "esc", "q":
		m.showResetModal = false
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y", "enter":
		return m, tea.Quit
	case "n", "N", "esc":
		m.showQuitModal = false
	}
	return m, nil
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.showItemModal {
		return m.renderModal(m.renderItemModal())
	}
	if m.showResetModal {
		return m.renderModal(modalTitleStyle.Render("Reset all progress?") +
			"\n\nThis deletes your state, inventory,\nachievements, and history.\n\n" +
			modalItemStyle.Render("y: confirm   n: cancel"))
	}
	if m.showQuitModal {
		return m.renderModal(modalTitleStyle.Render("Leave the journey?") +
			"\n\n" + modalItemStyle.Render("y: quit   n: stay"))
	}

	storyPanel := storyPanelStyle.Render(m.storyViewport.View())
	metaPanel := metaPanelStyle.Render(m.metaViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

func (m ConsoleUI) renderItemModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Use an item") + "\n\n")
	for i, item := range usableItems {
		line := item.name
		if i == m.selectedItem {
			content.WriteString(modalSelectedItemStyle.Render("> "+line) + "\n")
		} else {
			content.WriteString(modalItemStyle.Render("  "+line) + "\n")
		}
	}
	content.WriteString("\n" + modalItemStyle.Render("enter: use   esc: cancel"))
	return content.String()
}

func (m ConsoleUI) renderModal(content string) string {
	modal := modalStyle.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
