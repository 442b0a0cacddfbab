package ui

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ashwch/coreshell/internal/command"
	"github.com/ashwch/coreshell/internal/favorites"
	"github.com/ashwch/coreshell/internal/i18n"
	"github.com/ashwch/coreshell/internal/logging"
	"github.com/ashwch/coreshell/internal/resolver"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type Resolver interface {
	Resolve(ctx context.Context, query string) resolver.Outcome
}

type Favorites interface {
	Add(record command.Record) (favorites.AddResult, error)
	Remove(index int) (command.Record, error)
	List() []command.Record
}

type AppOptions struct {
	Resolver  Resolver
	Favorites Favorites
	Catalog   i18n.Catalog
	// Copy defaults to the system clipboard.
	Copy func(text string) error
	// GOOS picks which command ctrl+y copies; defaults to runtime.GOOS.
	GOOS   string
	Logger *zap.Logger
}

type focusArea int

const (
	focusSearch focusArea = iota
	focusFavorites
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

const maxVisibleFavorites = 8

type resolvedMsg struct {
	query   string
	outcome resolver.Outcome
}

// App is the interactive search screen.
type App struct {
	resolver  Resolver
	favorites Favorites
	catalog   i18n.Catalog
	copy      func(string) error
	goos      string
	logger    *zap.Logger

	search  textinput.Model
	spinner spinner.Model

	width  int
	height int

	focus      focusArea
	cursor     int
	confirming bool

	pending bool
	ticks   int
	outcome *resolver.Outcome

	status     string
	statusKind statusKind
}

func NewApp(opts AppOptions) *App {
	search := textinput.New()
	search.Placeholder = opts.Catalog.Messages.Placeholder
	search.CharLimit = 200
	search.Prompt = "> "
	search.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	logger := logging.OrNop(opts.Logger)

	return &App{
		resolver:  opts.Resolver,
		favorites: opts.Favorites,
		catalog:   opts.Catalog,
		copy:      copyFn,
		goos:      goos,
		logger:    logger,
		search:    search,
		spinner:   sp,
		width:     80,
	}
}

// RunApp blocks until the user quits.
func RunApp(opts AppOptions) error {
	_, err := tea.NewProgram(NewApp(opts), tea.WithAltScreen()).Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width - 4
		a.height = msg.Height - 2
		a.search.Width = clampInt(a.width-4, 10, 120)
		return a, nil

	case spinner.TickMsg:
		if !a.pending {
			return a, nil
		}
		a.ticks++
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case resolvedMsg:
		a.finishResolve(msg)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.pending {
			if msg.String() == "esc" {
				return a, tea.Quit
			}
			return a, nil
		}
		if a.confirming {
			return a.updateConfirm(msg)
		}
		if a.focus == focusFavorites {
			return a.updateFavorites(msg)
		}
		return a.updateSearch(msg)
	}

	if a.focus == focusSearch && !a.pending {
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return a, tea.Quit
	case "enter":
		return a, a.submit()
	case "ctrl+s":
		a.saveCurrent()
		return a, nil
	case "ctrl+y":
		if a.outcome != nil && a.outcome.Found() {
			a.copyRecord(a.outcome.Record)
		}
		return a, nil
	case "tab":
		a.focus = focusFavorites
		a.search.Blur()
		a.clampCursor()
		if len(a.favoriteList()) == 0 {
			a.setStatus(statusInfo, a.catalog.Messages.EmptyFavorites)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

func (a *App) updateFavorites(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := a.favoriteList()
	switch msg.String() {
	case "tab", "esc":
		a.focus = focusSearch
		return a, a.search.Focus()
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(list)-1 {
			a.cursor++
		}
	case "enter":
		if len(list) > 0 {
			a.outcome = &resolver.Outcome{Record: list[a.cursor], Status: resolver.StatusFound}
		}
	case "ctrl+y":
		if len(list) > 0 {
			a.copyRecord(list[a.cursor])
		}
	case "ctrl+s":
		a.saveCurrent()
	case "d", "delete":
		if len(list) > 0 {
			a.confirming = true
			a.setStatus(statusWarning, fmt.Sprintf(a.catalog.Messages.ConfirmRemove, list[a.cursor].Name)+" [y/n]")
		}
	}
	return a, nil
}

func (a *App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		a.confirming = false
		removed, err := a.favorites.Remove(a.cursor)
		if err != nil {
			a.logger.Warn("favorite removal failed", zap.Int("index", a.cursor), zap.Error(err))
			a.setStatus(statusError, fmt.Sprintf(a.catalog.Messages.SaveFailed, storageCause(err)))
			return a, nil
		}
		a.clampCursor()
		a.setStatus(statusSuccess, fmt.Sprintf(a.catalog.Messages.Removed, removed.Name))
	case "n", "N", "esc":
		a.confirming = false
		a.clearStatus()
	}
	return a, nil
}

func (a *App) submit() tea.Cmd {
	query := strings.TrimSpace(a.search.Value())
	if query == "" {
		a.setStatus(statusWarning, a.catalog.Messages.EmptyQuery)
		return nil
	}
	a.pending = true
	a.ticks = 0
	a.clearStatus()
	return tea.Batch(a.spinner.Tick, a.resolveCmd(query))
}

// resolveCmd runs the lookup off the update loop.
func (a *App) resolveCmd(query string) tea.Cmd {
	r := a.resolver
	return func() tea.Msg {
		if r == nil {
			return resolvedMsg{query: query, outcome: resolver.Outcome{Status: resolver.StatusAIUnavailable}}
		}
		return resolvedMsg{query: query, outcome: r.Resolve(context.Background(), query)}
	}
}

func (a *App) finishResolve(msg resolvedMsg) {
	a.pending = false
	outcome := msg.outcome
	switch outcome.Status {
	case resolver.StatusFound:
		a.outcome = &outcome
		a.clearStatus()
	case resolver.StatusAIFailed:
		a.outcome = nil
		a.setStatus(statusError, outcome.Message)
	default:
		a.outcome = nil
		a.setStatus(statusWarning, outcome.Message)
	}
}

func (a *App) saveCurrent() {
	if a.favorites == nil || a.outcome == nil || !a.outcome.Found() {
		a.setStatus(statusWarning, a.catalog.Messages.NothingToSave)
		return
	}
	record := a.outcome.Record
	result, err := a.favorites.Add(record)
	if err != nil {
		a.logger.Warn("favorite save failed", zap.String("name", record.Name), zap.Error(err))
		a.setStatus(statusError, fmt.Sprintf(a.catalog.Messages.SaveFailed, storageCause(err)))
		return
	}
	if result == favorites.AlreadyExists {
		a.setStatus(statusWarning, fmt.Sprintf(a.catalog.Messages.AlreadySaved, record.Name))
		return
	}
	a.setStatus(statusSuccess, fmt.Sprintf(a.catalog.Messages.Saved, record.Name))
}

func (a *App) copyRecord(record command.Record) {
	text := commandForOS(record, a.goos)
	if err := a.copy(text); err != nil {
		a.setStatus(statusError, fmt.Sprintf(a.catalog.Messages.CopyFailed, err.Error()))
		return
	}
	a.setStatus(statusSuccess, fmt.Sprintf(a.catalog.Messages.Copied, text))
}

// storageCause drops the store's own "could not save" prefix, which the
// localized message already carries.
func storageCause(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

func commandForOS(record command.Record, goos string) string {
	if goos == "windows" {
		return record.Win
	}
	return record.Mac
}

func (a *App) favoriteList() []command.Record {
	if a.favorites == nil {
		return nil
	}
	return a.favorites.List()
}

func (a *App) clampCursor() {
	n := len(a.favoriteList())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) setStatus(kind statusKind, text string) {
	a.statusKind = kind
	a.status = text
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = statusInfo
}

func (a *App) View() string {
	msgs := a.catalog.Messages
	var b strings.Builder

	b.WriteString(titleStyle.Render(msgs.Title))
	b.WriteString("\n\n")
	b.WriteString(a.search.View())
	b.WriteString("\n\n")

	if a.pending {
		// rotate the loader line every few spinner frames
		b.WriteString(a.spinner.View() + " " + subtleStyle.Render(a.catalog.Thinking(a.ticks/8)))
		b.WriteString("\n\n")
	} else if result := a.renderResult(); result != "" {
		b.WriteString(result)
		b.WriteString("\n\n")
	}

	b.WriteString(a.renderFavorites())
	b.WriteString("\n")

	if a.status != "" {
		b.WriteString(a.renderStatus())
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render(msgs.Help))

	return appStyle.Render(b.String())
}

func (a *App) renderResult() string {
	if a.outcome == nil || !a.outcome.Found() {
		return ""
	}
	msgs := a.catalog.Messages
	record := a.outcome.Record

	var caption string
	switch a.outcome.Origin {
	case command.OriginAI:
		caption = msgs.GeneratedByAI
	case command.OriginLocal:
		caption = msgs.FoundLocally
	default:
		caption = msgs.FavoritesTitle
	}

	colWidth := clampInt((a.width-6)/2, 20, 60)
	mac := paneStyle.Width(colWidth).Render(headerStyle.Render(msgs.MacHeader) + "\n" + commandStyle.Render(record.Mac))
	win := paneStyle.Width(colWidth).Render(headerStyle.Render(msgs.WinHeader) + "\n" + commandStyle.Render(record.Win))

	lines := []string{
		captionStyle.Render(caption),
		descStyle.Render(record.Desc),
		lipgloss.JoinHorizontal(lipgloss.Top, mac, " ", win),
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderFavorites() string {
	msgs := a.catalog.Messages
	list := a.favoriteList()
	focused := a.focus == focusFavorites

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", msgs.FavoritesTitle, len(list))))
	b.WriteString("\n")
	if len(list) == 0 {
		b.WriteString(subtleStyle.Render(msgs.EmptyFavorites))
	}

	start := 0
	if a.cursor >= maxVisibleFavorites {
		start = a.cursor - maxVisibleFavorites + 1
	}
	end := start + maxVisibleFavorites
	if end > len(list) {
		end = len(list)
	}
	for i := start; i < end; i++ {
		record := list[i]
		line := fmt.Sprintf("%d. %s  %s", i+1, record.Name, subtleStyle.Render(commandForOS(record, a.goos)))
		if focused && i == a.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	style := paneStyle
	if focused {
		style = focusedPaneStyle
	}
	return style.Width(clampInt(a.width-2, 30, 124)).Render(b.String())
}

func (a *App) renderStatus() string {
	switch a.statusKind {
	case statusSuccess:
		return successStyle.Render(a.status)
	case statusWarning:
		return warningStyle.Render(a.status)
	case statusError:
		return errorStyle.Render(a.status)
	default:
		return subtleStyle.Render(a.status)
	}
}
