package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// ConfirmRemoval asks a yes/no question. used is false when no interactive
// backend could run (plain mode or every backend failed).
func ConfirmRemoval(backend string, question string) (approved bool, used bool, err error) {
	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			ok  bool
			err error
		)
		switch candidate {
		case BackendBubbleTea:
			ok, err = confirmWithBubbleTea(question)
		case BackendHuh:
			ok, err = confirmWithHuh(question)
		case BackendTView:
			ok, err = confirmWithTView(question)
		default:
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return ok, true, nil
	}
	return false, false, firstErr
}

type confirmModel struct {
	question string
	approved bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch strings.ToLower(k.String()) {
		case "y":
			m.approved = true
			m.done = true
			return m, tea.Quit
		case "n", "esc", "ctrl+c", "enter":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	return cardStyle.Render(strings.TrimSpace(m.question) + "\n\n" + hintStyle.Render("[y] remove  [n] keep"))
}

func confirmWithBubbleTea(question string) (bool, error) {
	final, err := tea.NewProgram(confirmModel{question: question}).Run()
	if err != nil {
		return false, err
	}
	out, ok := final.(confirmModel)
	if !ok || !out.done {
		return false, nil
	}
	return out.approved, nil
}

func confirmWithHuh(question string) (bool, error) {
	approved := false
	err := huh.NewConfirm().
		Title(strings.TrimSpace(question)).
		Affirmative("Remove").
		Negative("Keep").
		Value(&approved).
		WithTheme(huh.ThemeCharm()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return approved, nil
}

func confirmWithTView(question string) (bool, error) {
	app := tview.NewApplication()
	approved := false
	modal := tview.NewModal().
		SetText(strings.TrimSpace(question)).
		AddButtons([]string{"Remove", "Keep"}).
		SetDoneFunc(func(_ int, label string) {
			approved = label == "Remove"
			app.Stop()
		})
	if err := app.SetRoot(modal, true).Run(); err != nil {
		return false, err
	}
	return approved, nil
}
