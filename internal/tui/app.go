package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/event"
	"github.com/downlinkhq/downlink/internal/model"
)

// View represents the current view
type View int

const (
	ViewQueue View = iota
	ViewDetail
	ViewAddForm
)

// Controller is the slice of the scheduler the queue UI drives. Satisfied by
// *downloader.Scheduler; tests inject fakes.
type Controller interface {
	Add(ctx context.Context, url, presetID string, toggles model.Toggles) (*model.Download, error)
	List() []model.Download
	Get(id uuid.UUID) (model.Download, bool)
	AggregateFor(parentID uuid.UUID) model.PlaylistAggregate
	Stop(id uuid.UUID) error
	StopAll()
	Resume(id uuid.UUID) error
	ResumeAll()
	Cancel(id uuid.UUID) error
	Retry(id uuid.UUID) error
	Remove(ctx context.Context, id uuid.UUID) error
	Logs(ctx context.Context, id uuid.UUID, limit int) ([]model.LogLine, error)
}

// App is the queue UI model.
type App struct {
	ctrl   Controller
	events <-chan event.Event

	downloads []model.Download
	logs      []model.LogLine

	currentView View
	cursor      int
	selected    uuid.UUID
	expanded    map[uuid.UUID]bool
	addForm     *AddForm
	actionErr   string

	width  int
	height int
}

// NewApp creates the queue UI. The event channel comes from an event bus
// subscription and drives refreshes; pass nil to refresh on ticks only.
func NewApp(ctrl Controller, events <-chan event.Event) *App {
	return &App{
		ctrl:        ctrl,
		events:      events,
		currentView: ViewQueue,
		expanded:    make(map[uuid.UUID]bool),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.refresh, tick()}
	if a.events != nil {
		cmds = append(cmds, waitForEvent(a.events))
	}
	return tea.Batch(cmds...)
}

type refreshMsg struct {
	downloads []model.Download
}

type logsMsg struct {
	logs []model.LogLine
}

type eventMsg struct {
	ev event.Event
	ok bool
}

type tickMsg time.Time

type actionMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{ev: ev, ok: ok}
	}
}

// refresh reloads the download table from the scheduler.
func (a *App) refresh() tea.Msg {
	return refreshMsg{downloads: a.ctrl.List()}
}

// loadLogs fetches the selected download's recent output.
func (a *App) loadLogs() tea.Msg {
	logs, err := a.ctrl.Logs(context.Background(), a.selected, 40)
	if err != nil {
		return logsMsg{}
	}
	return logsMsg{logs: logs}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case refreshMsg:
		a.downloads = msg.downloads
		a.clampCursor()
		return a, nil

	case logsMsg:
		a.logs = msg.logs
		return a, nil

	case eventMsg:
		if !msg.ok {
			return a, nil
		}
		cmds := []tea.Cmd{a.refresh, waitForEvent(a.events)}
		if a.currentView == ViewDetail && msg.ev.Download() == a.selected {
			cmds = append(cmds, a.loadLogs)
		}
		return a, tea.Batch(cmds...)

	case tickMsg:
		cmds := []tea.Cmd{a.refresh, tick()}
		if a.currentView == ViewDetail {
			cmds = append(cmds, a.loadLogs)
		}
		return a, tea.Batch(cmds...)

	case actionMsg:
		if msg.err != nil {
			a.actionErr = msg.err.Error()
		} else {
			a.actionErr = ""
		}
		return a, a.refresh

	case addDoneMsg:
		if a.addForm == nil {
			return a, a.refresh
		}
		if msg.err != nil {
			a.addForm.err = msg.err.Error()
			return a, nil
		}
		a.currentView = ViewQueue
		a.addForm = nil
		return a, a.refresh
	}

	return a, nil
}

// handleKeyPress handles keyboard input
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.currentView == ViewAddForm {
		return a.handleAddFormKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "r":
		return a, a.refresh

	case "a":
		a.addForm = NewAddForm()
		a.currentView = ViewAddForm
		a.actionErr = ""
		return a, a.addForm.input.Focus()

	case "esc":
		if a.currentView == ViewDetail {
			a.currentView = ViewQueue
			a.logs = nil
		}
		return a, nil

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "down", "j":
		a.cursor++
		a.clampCursor()
		return a, nil

	case "enter":
		if a.currentView != ViewQueue {
			return a, nil
		}
		row, ok := a.rowAt(a.cursor)
		if !ok {
			return a, nil
		}
		a.selected = row.ID
		a.currentView = ViewDetail
		return a, a.loadLogs

	case "tab":
		// Fold or unfold a playlist's items.
		row, ok := a.rowAt(a.cursor)
		if ok && row.SourceKind == model.SourcePlaylistParent {
			a.expanded[row.ID] = !a.expanded[row.ID]
		}
		return a, nil

	case "s":
		return a.rowAction(func(id uuid.UUID) error { return a.ctrl.Stop(id) })

	case "S":
		return a, func() tea.Msg { a.ctrl.StopAll(); return actionMsg{} }

	case "p":
		return a.rowAction(func(id uuid.UUID) error { return a.ctrl.Resume(id) })

	case "P":
		return a, func() tea.Msg { a.ctrl.ResumeAll(); return actionMsg{} }

	case "c":
		return a.rowAction(func(id uuid.UUID) error { return a.ctrl.Cancel(id) })

	case "y":
		return a.rowAction(func(id uuid.UUID) error { return a.ctrl.Retry(id) })

	case "x":
		return a.rowAction(func(id uuid.UUID) error {
			return a.ctrl.Remove(context.Background(), id)
		})
	}

	return a, nil
}

// rowAction runs a scheduler call against the download under the cursor (or
// the selected one in detail view) and reports the result asynchronously.
func (a *App) rowAction(fn func(id uuid.UUID) error) (tea.Model, tea.Cmd) {
	var id uuid.UUID
	if a.currentView == ViewDetail {
		id = a.selected
	} else {
		row, ok := a.rowAt(a.cursor)
		if !ok {
			return a, nil
		}
		id = row.ID
	}
	return a, func() tea.Msg {
		return actionMsg{err: fn(id)}
	}
}

// visibleRows flattens the download table for display: top-level entries in
// order, with playlist children inlined under expanded parents.
func (a *App) visibleRows() []model.Download {
	var rows []model.Download
	for _, d := range a.downloads {
		if d.ParentID != nil {
			continue
		}
		rows = append(rows, d)
		if d.SourceKind == model.SourcePlaylistParent && a.expanded[d.ID] {
			for _, c := range a.downloads {
				if c.ParentID != nil && *c.ParentID == d.ID {
					rows = append(rows, c)
				}
			}
		}
	}
	return rows
}

func (a *App) rowAt(i int) (model.Download, bool) {
	rows := a.visibleRows()
	if i < 0 || i >= len(rows) {
		return model.Download{}, false
	}
	return rows[i], true
}

func (a *App) clampCursor() {
	max := len(a.visibleRows()) - 1
	if max < 0 {
		max = 0
	}
	if a.cursor > max {
		a.cursor = max
	}
}

// View implements tea.Model
func (a *App) View() string {
	switch a.currentView {
	case ViewQueue:
		return a.renderQueue()
	case ViewDetail:
		return a.renderDetail()
	case ViewAddForm:
		return a.renderAddForm()
	default:
		return "Unknown view"
	}
}
