// internal/tui/app.go
//
// The apiprobe panel. It follows The Elm Architecture via bubbletea:
// keys become messages, Update moves between three screens
// (categories -> APIs -> parameters) and View renders the current one next
// to the dispatch journal.

package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/invoke"
	"github.com/kingrea/apiprobe/internal/logbook"
	"github.com/kingrea/apiprobe/internal/resolver"
)

// appState represents which screen is showing.
type appState int

const (
	stateCategories appState = iota
	stateAPIs
	stateDetail
)

const (
	sendTimeout  = 15 * time.Second
	journalLines = 8
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	staticStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	dynamicStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// sendFinishedMsg carries the outcome of an asynchronous Invoke.
type sendFinishedMsg struct {
	result invoke.Result
	err    error
}

type categoryItem struct {
	category catalog.Category
}

func (i categoryItem) Title() string { return i.category.Label }
func (i categoryItem) Description() string {
	return fmt.Sprintf("%s · %d APIs", i.category.Key, len(i.category.APIs))
}
func (i categoryItem) FilterValue() string { return i.category.Key }

type apiItem struct {
	entry catalog.APIEntry
}

func (i apiItem) Title() string       { return i.entry.Name }
func (i apiItem) Description() string { return i.entry.Description }
func (i apiItem) FilterValue() string { return i.entry.Name }

// AppOption customizes App construction.
type AppOption func(*App)

// WithLogbook shows the dispatch journal beside the panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// App is the bubbletea model for the panel.
type App struct {
	state   appState
	invoker *invoke.Invoker
	logbook *logbook.Logbook

	categories []catalog.Category
	catMenu    list.Model
	apiMenu    list.Model

	category catalog.Category
	entry    catalog.APIEntry
	preview  *resolver.Payload
	sending  bool

	statusMsg string
	err       error

	width  int
	height int
}

// NewApp builds the panel over inv's catalog.
func NewApp(inv *invoke.Invoker, opts ...AppOption) *App {
	categories := inv.Catalog().ListCategories()
	items := make([]list.Item, len(categories))
	for i, cat := range categories {
		items[i] = categoryItem{category: cat}
	}
	catMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	catMenu.Title = "Categories"
	catMenu.SetShowStatusBar(false)
	catMenu.SetFilteringEnabled(false)
	apiMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	apiMenu.SetShowStatusBar(false)
	apiMenu.SetFilteringEnabled(false)

	app := &App{
		state:      stateCategories,
		invoker:    inv,
		categories: categories,
		catMenu:    catMenu,
		apiMenu:    apiMenu,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.catMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		a.apiMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		return a, nil

	case sendFinishedMsg:
		a.sending = false
		if msg.err != nil {
			a.err = msg.err
			a.statusMsg = ""
			return a, nil
		}
		a.err = nil
		a.preview = msg.result.Payload
		a.statusMsg = fmt.Sprintf("Sent %s.%s as %s", msg.result.Category, msg.result.Entry.Name, msg.result.Receipt.MessageID)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == stateCategories {
				return a, tea.Quit
			}
			return a.back()
		case "esc", "backspace":
			return a.back()
		case "enter":
			switch a.state {
			case stateCategories:
				return a.openCategory()
			case stateAPIs:
				return a.openAPI()
			}
		case "r":
			if a.state == stateDetail {
				a.resolvePreview()
				return a, nil
			}
		case "s":
			if a.state == stateDetail {
				return a, a.send()
			}
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case stateCategories:
		a.catMenu, cmd = a.catMenu.Update(msg)
	case stateAPIs:
		a.apiMenu, cmd = a.apiMenu.Update(msg)
	}
	return a, cmd
}

func (a *App) back() (tea.Model, tea.Cmd) {
	switch a.state {
	case stateDetail:
		a.state = stateAPIs
		a.preview = nil
	case stateAPIs:
		a.state = stateCategories
	}
	a.err = nil
	a.statusMsg = ""
	return a, nil
}

func (a *App) openCategory() (tea.Model, tea.Cmd) {
	item, ok := a.catMenu.SelectedItem().(categoryItem)
	if !ok {
		return a, nil
	}
	a.category = item.category
	items := make([]list.Item, len(item.category.APIs))
	for i, entry := range item.category.APIs {
		items[i] = apiItem{entry: entry}
	}
	a.apiMenu.Title = fmt.Sprintf("%s APIs", item.category.Label)
	a.apiMenu.SetItems(items)
	a.apiMenu.Select(0)
	a.state = stateAPIs
	return a, nil
}

func (a *App) openAPI() (tea.Model, tea.Cmd) {
	item, ok := a.apiMenu.SelectedItem().(apiItem)
	if !ok {
		return a, nil
	}
	a.entry = item.entry
	a.preview = nil
	a.err = nil
	a.statusMsg = "r: resolve preview · s: send"
	a.state = stateDetail
	return a, nil
}

// resolvePreview runs every producer once so the user sees concrete values.
func (a *App) resolvePreview() {
	_, payload, err := a.invoker.Preview(a.category.Key, a.entry.Name)
	if err != nil {
		a.err = err
		a.preview = nil
		return
	}
	a.err = nil
	a.preview = payload
	a.statusMsg = fmt.Sprintf("Resolved %d params", payload.Len())
}

func (a *App) send() tea.Cmd {
	if a.sending {
		return nil
	}
	if !a.invoker.CanSend() {
		a.err = invoke.ErrNoSender
		return nil
	}
	a.sending = true
	a.statusMsg = fmt.Sprintf("Sending %s.%s...", a.category.Key, a.entry.Name)
	inv := a.invoker
	categoryKey, apiName := a.category.Key, a.entry.Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		result, err := inv.Invoke(ctx, categoryKey, apiName)
		return sendFinishedMsg{result: result, err: err}
	}
}

// View renders the current screen.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	switch a.state {
	case stateCategories:
		content = a.catMenu.View()
	case stateAPIs:
		content = a.apiMenu.View()
	case stateDetail:
		content = a.renderDetail()
	}
	sections := []string{headerStyle.Render("◇ APIPROBE"), content}
	if status := a.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	if journal := a.renderJournal(width - 4); journal != "" {
		sections = append(sections, journal)
	}
	sections = append(sections, mutedStyle.Render("enter: open · esc: back · r: resolve · s: send · q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) renderDetail() string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s / %s", a.category.Label, a.entry.Name)),
	}
	if desc := strings.TrimSpace(a.entry.Description); desc != "" {
		lines = append(lines, mutedStyle.Render(desc))
	}
	lines = append(lines, "")
	if len(a.entry.Params) == 0 {
		lines = append(lines, mutedStyle.Render("(no parameters)"))
	}
	for _, param := range a.entry.Params {
		style := staticStyle
		if param.IsDynamic() {
			style = dynamicStyle
		}
		line := fmt.Sprintf("%-12s %s", param.Name, style.Render(param.Describe()))
		if a.preview != nil {
			if v, ok := a.preview.Get(param.Name); ok {
				line += mutedStyle.Render(fmt.Sprintf("  → %v", v))
			}
		}
		lines = append(lines, line)
	}
	if a.preview != nil {
		if data, err := json.Marshal(a.preview); err == nil {
			lines = append(lines, "", mutedStyle.Render(string(data)))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderStatus() string {
	if a.err != nil {
		return errStyle.Render(a.err.Error())
	}
	if a.statusMsg == "" {
		return ""
	}
	if strings.HasPrefix(a.statusMsg, "Sent ") {
		return okStyle.Render(a.statusMsg)
	}
	return mutedStyle.Render(a.statusMsg)
}

func (a *App) renderJournal(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(journalLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	head := titleStyle.Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := mutedStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Width(max(20, width)).Render(head + "\n" + body)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
