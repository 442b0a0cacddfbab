package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptAPIKey reads a secret without echoing it. An empty key with used=true
// means the user cancelled.
func PromptAPIKey(backend string, title string) (key string, used bool, err error) {
	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			value string
			err   error
		)
		switch candidate {
		case BackendBubbleTea:
			value, err = promptKeyWithBubbleTea(title)
		case BackendHuh:
			value, err = promptKeyWithHuh(title)
		case BackendTView:
			value, err = promptKeyWithTView(title)
		default:
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return strings.TrimSpace(value), true, nil
	}
	return "", false, firstErr
}

type keyPromptModel struct {
	title     string
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newKeyPromptModel(title string) keyPromptModel {
	input := textinput.New()
	input.Placeholder = "AIza..."
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '*'
	input.CharLimit = 256
	input.Width = 48
	input.Focus()
	return keyPromptModel{title: title, input: input}
}

func (m keyPromptModel) Init() tea.Cmd { return textinput.Blink }

func (m keyPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m keyPromptModel) View() string {
	body := titleStyle.Render(m.title) + "\n\n" + m.input.View() + "\n\n" + hintStyle.Render("enter save | esc cancel")
	return cardStyle.Render(body)
}

func promptKeyWithBubbleTea(title string) (string, error) {
	final, err := tea.NewProgram(newKeyPromptModel(title)).Run()
	if err != nil {
		return "", err
	}
	out, ok := final.(keyPromptModel)
	if !ok || out.cancelled || !out.submitted {
		return "", nil
	}
	return out.input.Value(), nil
}

func promptKeyWithHuh(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value).
		WithTheme(huh.ThemeCharm()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func promptKeyWithTView(title string) (string, error) {
	app := tview.NewApplication()
	value := ""
	field := tview.NewInputField().
		SetLabel(title + ": ").
		SetMaskCharacter('*').
		SetFieldWidth(48)
	field.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			value = field.GetText()
		}
		app.Stop()
	})
	if err := app.SetRoot(field, true).SetFocus(field).Run(); err != nil {
		return "", err
	}
	return value, nil
}
