package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/urlutil"
)

// AddForm holds the state for submitting a new URL.
type AddForm struct {
	input     textinput.Model
	presets   []model.Preset
	presetIdx int
	err       string
}

// NewAddForm creates the form with the default preset selected.
func NewAddForm() *AddForm {
	input := textinput.New()
	input.Placeholder = "https://..."
	input.CharLimit = 2048
	input.Width = 60

	presets := model.BuiltinPresets()
	idx := 0
	for i, p := range presets {
		if p.ID == model.DefaultPresetID {
			idx = i
		}
	}
	return &AddForm{input: input, presets: presets, presetIdx: idx}
}

func (f *AddForm) preset() model.Preset {
	return f.presets[f.presetIdx]
}

// addDoneMsg is sent when an add submission completes
type addDoneMsg struct {
	err error
}

// renderAddForm renders the add-download form view
func (a *App) renderAddForm() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Add Download"))
	b.WriteString("\n\n")

	form := a.addForm
	b.WriteString("  URL: " + form.input.View())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Preset: ◀ %s ▶\n", form.preset().Name))
	b.WriteString(mutedItemStyle.Render("          " + form.preset().Description))
	b.WriteString("\n\n")

	if form.err != "" {
		b.WriteString(errorStyle.Render("  " + form.err))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("[Enter] Submit  [←/→] Preset  [Esc] Cancel"))

	return b.String()
}

// handleAddFormKey handles key presses in the add form
func (a *App) handleAddFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := a.addForm

	switch msg.String() {
	case "esc":
		a.currentView = ViewQueue
		a.addForm = nil
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "left":
		form.presetIdx--
		if form.presetIdx < 0 {
			form.presetIdx = len(form.presets) - 1
		}
		return a, nil

	case "right":
		form.presetIdx = (form.presetIdx + 1) % len(form.presets)
		return a, nil

	case "enter":
		urls := urlutil.ExtractURLs(form.input.Value())
		if len(urls) == 0 {
			form.err = "Enter a valid http(s) URL"
			return a, nil
		}
		return a, a.submitAdd(urls, form.preset().ID)
	}

	var cmd tea.Cmd
	form.input, cmd = form.input.Update(msg)
	return a, cmd
}

// submitAdd hands every pasted URL to the scheduler off the render loop.
func (a *App) submitAdd(urls []string, presetID string) tea.Cmd {
	return func() tea.Msg {
		for _, url := range urls {
			if _, err := a.ctrl.Add(context.Background(), url, presetID, model.DefaultToggles()); err != nil {
				return addDoneMsg{err: err}
			}
		}
		return addDoneMsg{}
	}
}
