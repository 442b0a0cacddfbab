package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashwch/coreshell/internal/favorites"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// SelectFavorite lets the user pick one of matches and returns its store
// index, or -1 when the picker was cancelled. used is false when no
// interactive backend ran.
func SelectFavorite(backend string, title string, matches []favorites.Match) (index int, used bool, err error) {
	if len(matches) == 0 {
		return -1, false, nil
	}

	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			selected int
			ok       bool
			err      error
		)
		switch candidate {
		case BackendBubbleTea:
			selected, ok, err = selectWithBubbleTea(title, matches)
		case BackendHuh:
			selected, ok, err = selectWithHuh(title, matches)
		case BackendTView:
			selected, ok, err = selectWithTView(title, matches)
		default:
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return selected, true, nil
		}
	}
	return -1, false, firstErr
}

func favoriteLabel(match favorites.Match) string {
	label := fmt.Sprintf("%d. %s", match.Index+1, match.Record.Name)
	if desc := strings.TrimSpace(match.Record.Desc); desc != "" {
		label += "  (" + desc + ")"
	}
	return label
}

func selectWithHuh(title string, matches []favorites.Match) (int, bool, error) {
	options := make([]huh.Option[int], 0, len(matches))
	for _, match := range matches {
		options = append(options, huh.NewOption(favoriteLabel(match), match.Index))
	}

	choice := matches[0].Index
	err := huh.NewSelect[int]().
		Title(title).
		Options(options...).
		Filtering(true).
		Height(huhSelectHeight(len(options))).
		Value(&choice).
		WithTheme(huh.ThemeCharm()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return -1, true, nil
		}
		return -1, false, err
	}
	return choice, true, nil
}

type favoriteItem struct {
	match favorites.Match
}

func (i favoriteItem) Title() string       { return favoriteLabel(i.match) }
func (i favoriteItem) Description() string { return i.match.Record.Mac }
func (i favoriteItem) FilterValue() string { return i.match.Record.Name }

type bubbleSelectorModel struct {
	list      list.Model
	selection int
	cancelled bool
	options   int
}

func (m bubbleSelectorModel) Init() tea.Cmd { return nil }

func (m bubbleSelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.WindowSizeMsg:
		width, height := bubblePickerSize(k.Width, k.Height, m.options)
		m.list.SetSize(width, height)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch k.String() {
		case "q", "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(favoriteItem); ok {
				m.selection = item.match.Index
			} else {
				m.cancelled = true
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m bubbleSelectorModel) View() string {
	return m.list.View()
}

func newBubbleSelector(title string, matches []favorites.Match) bubbleSelectorModel {
	items := make([]list.Item, 0, len(matches))
	for _, match := range matches {
		items = append(items, favoriteItem{match: match})
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	width, height := bubblePickerSize(80, 24, len(items))
	picker := list.New(items, delegate, width, height)
	picker.Title = title
	picker.SetShowHelp(false)
	picker.SetFilteringEnabled(true)
	return bubbleSelectorModel{list: picker, selection: -1, options: len(items)}
}

func selectWithBubbleTea(title string, matches []favorites.Match) (int, bool, error) {
	final, err := tea.NewProgram(newBubbleSelector(title, matches), tea.WithAltScreen()).Run()
	if err != nil {
		return -1, false, err
	}
	out, ok := final.(bubbleSelectorModel)
	if !ok || out.cancelled {
		return -1, true, nil
	}
	return out.selection, true, nil
}

func selectWithTView(title string, matches []favorites.Match) (int, bool, error) {
	app := tview.NewApplication()
	listView := tview.NewList()
	listView.SetBorder(true)
	listView.SetTitle(title)

	selected := -1
	for i, match := range matches {
		current := match
		shortcut := rune(0)
		if i < 9 {
			shortcut = []rune(strconv.Itoa(i + 1))[0]
		}
		listView.AddItem(favoriteLabel(current), current.Record.Mac, shortcut, func() {
			selected = current.Index
			app.Stop()
		})
	}
	listView.SetDoneFunc(func() {
		app.Stop()
	})

	if err := app.SetRoot(listView, true).SetFocus(listView).Run(); err != nil {
		return -1, false, err
	}
	return selected, true, nil
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func bubblePickerSize(termWidth, termHeight, optionCount int) (int, int) {
	if termWidth <= 0 {
		termWidth = 80
	}
	if termHeight <= 0 {
		termHeight = 24
	}
	if optionCount < 1 {
		optionCount = 1
	}

	minWidth := 32
	if termWidth < minWidth {
		minWidth = termWidth
	}
	width := clampInt(termWidth-4, minWidth, termWidth)

	// two lines per item: title and command
	desiredHeight := clampInt(optionCount, 3, 10)*2 + 4

	maxHeight := termHeight - 2
	if maxHeight <= 0 {
		maxHeight = 1
	}
	minHeight := 8
	if maxHeight < minHeight {
		minHeight = maxHeight
	}
	return width, clampInt(desiredHeight, minHeight, maxHeight)
}

func huhSelectHeight(optionCount int) int {
	if optionCount < 1 {
		optionCount = 1
	}
	return clampInt(optionCount+1, 4, 10)
}
