package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/densistedon/internal/blackjack"
	"github.com/lox/densistedon/internal/deck"
)

// Bank reports the player's spendable balance
type Bank interface {
	Balance(ctx context.Context, accountID string) (int, error)
}

// TUIModel represents the Bubble Tea model for a blackjack session
type TUIModel struct {
	table  *blackjack.Table
	bank   Bank
	events *EventLog
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	wagerInput  textinput.Model

	// Display state, refreshed after every engine call
	snapshot   blackjack.Snapshot
	valid      []blackjack.Action
	balance    int
	balanceErr error
	pending    bool
	status     logEntry

	gameLog  []logEntry
	quitting bool

	// Dimensions
	width       int
	height      int
	initialized bool
}

// tableState is what the model needs to redraw after an engine call
type tableState struct {
	snapshot   blackjack.Snapshot
	valid      []blackjack.Action
	balance    int
	balanceErr error
}

// actionDoneMsg carries the result of an engine call back to Update
type actionDoneMsg struct {
	action blackjack.Action
	state  tableState
	err    error
}

// stateMsg carries a refreshed table state with no action attached
type stateMsg struct {
	state tableState
}

// NewTUIModel creates a model driving table. Events published to events are
// appended to the log after each action.
func NewTUIModel(table *blackjack.Table, bank Bank, events *EventLog, logger *log.Logger) *TUIModel {
	// Sized properly when WindowSizeMsg arrives
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = strconv.Itoa(table.Rules().MinWager)
	ti.Focus()
	ti.CharLimit = 9
	ti.Width = 12
	ti.PromptStyle = lipgloss.NewStyle().Foreground(promptColour).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "Wager > "

	return &TUIModel{
		table:       table,
		bank:        bank,
		events:      events,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		wagerInput:  ti,
		snapshot:    table.Snapshot(),
		valid:       table.ValidActions(),
	}
}

// Run starts the program in the alternate screen and blocks until it exits
func Run(ctx context.Context, model *TUIModel) error {
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init initializes the TUI model
func (m *TUIModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshCmd())
}

// Update handles messages in the TUI
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case stateMsg:
		m.apply(msg.state)
		return m, nil

	case actionDoneMsg:
		m.pending = false
		m.drainEvents()
		m.apply(msg.state)
		m.reportResult(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "up", "pgup", "down", "pgdown", "home", "end":
			m.scroll(msg.String())
			return m, nil
		}

		if m.pending {
			return m, nil
		}
		if cmd, handled := m.handleActionKey(msg.String()); handled {
			return m, cmd
		}

		if m.snapshot.Phase == blackjack.Betting && wagerKey(msg) {
			var cmd tea.Cmd
			m.wagerInput, cmd = m.wagerInput.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.wagerInput, cmd = m.wagerInput.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// wagerKey reports whether msg may edit the wager input
func wagerKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return false
			}
		}
		return len(msg.Runes) > 0
	}
	return false
}

// handleActionKey maps a key to an engine call for the current phase
func (m *TUIModel) handleActionKey(key string) (tea.Cmd, bool) {
	switch m.snapshot.Phase {
	case blackjack.Betting:
		if key != "d" && key != "enter" {
			return nil, false
		}
		wager, err := m.wager()
		if err != nil {
			m.status = logEntry{text: err.Error(), style: ErrorStyle}
			return nil, true
		}
		return m.start(blackjack.ActionDeal, func(ctx context.Context, available int) error {
			_, err := m.table.Deal(ctx, wager, available)
			return err
		}), true

	case blackjack.Player:
		var action blackjack.Action
		switch key {
		case "h":
			action = blackjack.ActionHit
		case "s":
			action = blackjack.ActionStand
		case "x":
			action = blackjack.ActionDouble
		default:
			return nil, false
		}
		if !slices.Contains(m.valid, action) {
			m.status = logEntry{text: fmt.Sprintf("You cannot %s now", action), style: WarningStyle}
			return nil, true
		}
		return m.start(action, func(ctx context.Context, available int) error {
			var err error
			switch action {
			case blackjack.ActionHit:
				_, err = m.table.Hit(ctx)
			case blackjack.ActionStand:
				_, err = m.table.Stand(ctx)
			case blackjack.ActionDouble:
				_, err = m.table.Double(ctx, available)
			}
			return err
		}), true

	case blackjack.Settled:
		if key != "n" && key != "enter" {
			return nil, false
		}
		return m.start(blackjack.ActionNewRound, func(context.Context, int) error {
			_, err := m.table.NewRound()
			return err
		}), true
	}
	return nil, false
}

// start marks an action pending and returns the command that performs it
func (m *TUIModel) start(action blackjack.Action, call func(ctx context.Context, available int) error) tea.Cmd {
	m.pending = true
	m.status = logEntry{}
	table, bank := m.table, m.bank

	return func() tea.Msg {
		ctx := context.Background()
		available, err := bank.Balance(ctx, table.AccountID())
		if err != nil {
			err = fmt.Errorf("read balance: %w", err)
		} else {
			err = call(ctx, available)
		}
		return actionDoneMsg{action: action, state: readState(ctx, table, bank), err: err}
	}
}

func (m *TUIModel) refreshCmd() tea.Cmd {
	table, bank := m.table, m.bank
	return func() tea.Msg {
		return stateMsg{state: readState(context.Background(), table, bank)}
	}
}

func readState(ctx context.Context, table *blackjack.Table, bank Bank) tableState {
	balance, err := bank.Balance(ctx, table.AccountID())
	return tableState{
		snapshot:   table.Snapshot(),
		valid:      table.ValidActions(),
		balance:    balance,
		balanceErr: err,
	}
}

func (m *TUIModel) apply(state tableState) {
	m.snapshot = state.snapshot
	m.valid = state.valid
	m.balanceErr = state.balanceErr
	if state.balanceErr == nil {
		m.balance = state.balance
	}
	if m.snapshot.Phase == blackjack.Betting {
		m.wagerInput.Focus()
	} else {
		m.wagerInput.Blur()
	}
}

func (m *TUIModel) reportResult(msg actionDoneMsg) {
	switch {
	case msg.err == nil:
		if s := msg.state.snapshot.Settlement; s != nil && s.CreditErr != nil {
			m.logger.Warn("Payout not credited", "round", s.RoundID, "credit", s.Credit, "error", s.CreditErr)
			m.status = logEntry{
				text:  fmt.Sprintf("Payout of %d could not be credited: %v", s.Credit, s.CreditErr),
				style: WarningStyle,
			}
		}
		if msg.action == blackjack.ActionNewRound {
			m.wagerInput.SetValue("")
		}
	case errors.Is(msg.err, blackjack.ErrDebitDeclined):
		m.status = logEntry{text: "Insufficient funds for that wager", style: ErrorStyle}
	case errors.Is(msg.err, blackjack.ErrInvalidWager):
		m.status = logEntry{text: msg.err.Error(), style: ErrorStyle}
	case errors.Is(msg.err, blackjack.ErrActionInProgress):
		m.status = logEntry{text: "Still working on the previous action", style: WarningStyle}
	default:
		m.logger.Error("Action failed", "action", msg.action, "error", msg.err)
		m.status = logEntry{text: fmt.Sprintf("%s failed: %v", msg.action, msg.err), style: ErrorStyle}
	}
}

func (m *TUIModel) wager() (int, error) {
	raw := strings.TrimSpace(m.wagerInput.Value())
	if raw == "" {
		return m.table.Rules().MinWager, nil
	}
	wager, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("wager %q is not a number", raw)
	}
	return wager, nil
}

func (m *TUIModel) drainEvents() {
	if m.events == nil {
		return
	}
	for _, event := range m.events.Drain() {
		if entry, ok := describeEvent(event); ok {
			m.AddLogEntry(entry.text, entry.style)
		}
	}
}

func (m *TUIModel) scroll(key string) {
	switch key {
	case "up":
		m.logViewport.ScrollUp(1)
	case "down":
		m.logViewport.ScrollDown(1)
	case "pgup":
		m.logViewport.HalfPageUp()
	case "pgdown":
		m.logViewport.HalfPageDown()
	case "home":
		m.logViewport.GotoTop()
	case "end":
		m.logViewport.GotoBottom()
	}
}

// AddLogEntry adds an entry to the game log and scrolls to it
func (m *TUIModel) AddLogEntry(text string, style lipgloss.Style) {
	m.gameLog = append(m.gameLog, logEntry{text: text, style: style})
	m.logViewport.SetContent(m.renderLogPane())
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// LogLines returns the unstyled game log
func (m *TUIModel) LogLines() []string {
	lines := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		lines[i] = e.text
	}
	return lines
}

// Status returns the unstyled status line
func (m *TUIModel) Status() string {
	return m.status.text
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(focusBorder).
		Width(max(m.width-2, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(paneBorder).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.SetContent(m.renderLogPane())
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(paneBorder).
		Width(logWidth).
		Height(paneHeight).
		Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *TUIModel) renderLogPane() string {
	lines := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		lines[i] = e.style.Render(e.text)
	}
	return strings.Join(lines, "\n")
}

func (m *TUIModel) renderSidebarPane() string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render(" Den Siste Don "))
	content.WriteString("\n\n")
	if m.balanceErr != nil {
		content.WriteString(ErrorStyle.Render("Balance unavailable"))
	} else {
		content.WriteString(WarningStyle.Render(fmt.Sprintf("Balance: %d", m.balance)))
	}
	content.WriteString("\n")
	if m.snapshot.Wager > 0 {
		wager := fmt.Sprintf("Wager: %d", m.snapshot.Wager)
		if m.snapshot.Doubled {
			wager += " (doubled)"
		}
		content.WriteString(WarningStyle.Render(wager))
		content.WriteString("\n")
	}
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Shoe: %d cards", m.snapshot.ShoeRemaining)))
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Minimum: %d", m.table.Rules().MinWager)))
	content.WriteString("\n")
	if m.snapshot.RoundID != "" {
		content.WriteString(InfoStyle.Render("Round: " + shortID(m.snapshot.RoundID)))
		content.WriteString("\n")
	}

	return content.String()
}

func (m *TUIModel) renderActionPane() string {
	var content strings.Builder

	if m.snapshot.Phase != blackjack.Betting {
		content.WriteString(m.renderHands())
		content.WriteString("\n")
	}

	content.WriteString(m.renderAvailableActions())
	content.WriteString("\n")

	if m.snapshot.Phase == blackjack.Betting {
		content.WriteString(m.wagerInput.View())
		content.WriteString("\n")
	}

	if m.status.text != "" {
		content.WriteString(m.status.style.Render(m.status.text))
		content.WriteString("\n")
	}

	content.WriteString(InfoStyle.Render("↑↓ scroll log • Esc/Ctrl+C to quit"))
	return content.String()
}

func (m *TUIModel) renderHands() string {
	dealer := m.formatCards(m.snapshot.Dealer)
	if m.snapshot.HoleHidden {
		dealer = strings.TrimSuffix(dealer, "]") + " " + HiddenCardStyle.Render("??") + "]"
	}
	dealerTotal := formatValue(m.snapshot.DealerValue)
	if m.snapshot.HoleHidden {
		dealerTotal = "showing " + dealerTotal
	}

	return HandInfoStyle.Render(fmt.Sprintf("Dealer: %s %s", dealer, dealerTotal)) + "\n" +
		HandInfoStyle.Render(fmt.Sprintf("You:    %s %s", m.formatCards(m.snapshot.Player), formatValue(m.snapshot.PlayerValue)))
}

func (m *TUIModel) renderAvailableActions() string {
	if m.pending {
		return ActionsStyle.Render("Waiting for the ledger...")
	}

	var actions []string
	for _, action := range m.valid {
		switch action {
		case blackjack.ActionDeal:
			actions = append(actions, SuccessStyle.Render("[d/enter deal]"))
		case blackjack.ActionHit:
			actions = append(actions, SuccessStyle.Render("[h hit]"))
		case blackjack.ActionStand:
			actions = append(actions, WarningStyle.Render("[s stand]"))
		case blackjack.ActionDouble:
			actions = append(actions, WarningStyle.Render("[x double]"))
		case blackjack.ActionNewRound:
			actions = append(actions, SuccessStyle.Render("[n/enter new round]"))
		}
	}
	if len(actions) == 0 {
		actions = append(actions, ErrorStyle.Render("[no actions available]"))
	}

	return ActionsStyle.Render("Actions: " + strings.Join(actions, " "))
}

// formatCards formats cards with colors
func (m *TUIModel) formatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return "[]"
	}

	var formatted []string
	for _, card := range cards {
		if card.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}

	return "[" + strings.Join(formatted, " ") + "]"
}

func formatValue(v blackjack.HandValue) string {
	if v.Soft && v.Total < blackjack.BlackjackTotal {
		return fmt.Sprintf("(soft %d)", v.Total)
	}
	return fmt.Sprintf("(%d)", v.Total)
}
