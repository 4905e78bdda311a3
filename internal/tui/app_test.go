package tui

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/model"
)

type fakeController struct {
	downloads []model.Download
	stopped   []uuid.UUID
	resumed   []uuid.UUID
	stopAlls  int
	resumeAll int
	canceled  []uuid.UUID
	retried   []uuid.UUID
	removed   []uuid.UUID
	added     []string
}

func (c *fakeController) Add(ctx context.Context, url, presetID string, toggles model.Toggles) (*model.Download, error) {
	c.added = append(c.added, url)
	d := model.NewSingle(url, presetID, "/tmp")
	c.downloads = append(c.downloads, *d)
	return d, nil
}

func (c *fakeController) List() []model.Download { return c.downloads }

func (c *fakeController) Get(id uuid.UUID) (model.Download, bool) {
	for _, d := range c.downloads {
		if d.ID == id {
			return d, true
		}
	}
	return model.Download{}, false
}

func (c *fakeController) Children(parentID uuid.UUID) []model.Download {
	var out []model.Download
	for _, d := range c.downloads {
		if d.ParentID != nil && *d.ParentID == parentID {
			out = append(out, d)
		}
	}
	return out
}

func (c *fakeController) AggregateFor(parentID uuid.UUID) model.PlaylistAggregate {
	return model.Aggregate(c.Children(parentID))
}

func (c *fakeController) Stop(id uuid.UUID) error   { c.stopped = append(c.stopped, id); return nil }
func (c *fakeController) StopAll()                  { c.stopAlls++ }
func (c *fakeController) Resume(id uuid.UUID) error { c.resumed = append(c.resumed, id); return nil }
func (c *fakeController) ResumeAll()                { c.resumeAll++ }
func (c *fakeController) Cancel(id uuid.UUID) error { c.canceled = append(c.canceled, id); return nil }
func (c *fakeController) Retry(id uuid.UUID) error  { c.retried = append(c.retried, id); return nil }

func (c *fakeController) Remove(ctx context.Context, id uuid.UUID) error {
	c.removed = append(c.removed, id)
	return nil
}

func (c *fakeController) Logs(ctx context.Context, id uuid.UUID, limit int) ([]model.LogLine, error) {
	return nil, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func testDownloads() (*fakeController, *model.Download, []*model.Download) {
	parent := model.NewPlaylistParent("https://example.com/playlist?list=PL1", "recommended_best", "/tmp")
	c1 := model.NewPlaylistItem(parent.ID, "https://example.com/watch?v=1", "One", "recommended_best", "/tmp")
	c2 := model.NewPlaylistItem(parent.ID, "https://example.com/watch?v=2", "Two", "recommended_best", "/tmp")
	single := model.NewSingle("https://example.com/watch?v=3", "recommended_best", "/tmp")
	single.Title = "Three"

	ctrl := &fakeController{downloads: []model.Download{*parent, *c1, *c2, *single}}
	return ctrl, parent, []*model.Download{c1, c2, single}
}

func TestVisibleRows_CollapsedHidesChildren(t *testing.T) {
	ctrl, _, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	rows := a.visibleRows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (parent and single)", len(rows))
	}
	if rows[0].SourceKind != model.SourcePlaylistParent {
		t.Errorf("first row kind = %q, want playlist_parent", rows[0].SourceKind)
	}
}

func TestVisibleRows_ExpandShowsChildrenInline(t *testing.T) {
	ctrl, parent, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	a.Update(key("tab"))
	rows := a.visibleRows()
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4 after expand", len(rows))
	}
	if rows[1].ParentID == nil || *rows[1].ParentID != parent.ID {
		t.Error("second row is not a child of the expanded parent")
	}

	// A second tab folds it back.
	a.Update(key("tab"))
	if rows := a.visibleRows(); len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2 after collapse", len(rows))
	}
}

func TestCursorClampedToVisibleRows(t *testing.T) {
	ctrl, _, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	for i := 0; i < 10; i++ {
		a.Update(key("j"))
	}
	if a.cursor != 1 {
		t.Errorf("cursor = %d, want clamped to 1", a.cursor)
	}

	a.Update(key("k"))
	a.Update(key("k"))
	a.Update(key("k"))
	if a.cursor != 0 {
		t.Errorf("cursor = %d, want 0", a.cursor)
	}
}

func TestEnterOpensDetailAndEscReturns(t *testing.T) {
	ctrl, parent, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	a.Update(key("enter"))
	if a.currentView != ViewDetail {
		t.Fatalf("view = %v, want detail", a.currentView)
	}
	if a.selected != parent.ID {
		t.Errorf("selected = %v, want parent %v", a.selected, parent.ID)
	}

	a.Update(key("esc"))
	if a.currentView != ViewQueue {
		t.Errorf("view = %v, want queue after esc", a.currentView)
	}
}

func TestRowActionsTargetCursorRow(t *testing.T) {
	ctrl, _, downloads := testDownloads()
	single := downloads[2]
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	// Move to the single download (row 1 when collapsed) and stop it.
	a.Update(key("j"))
	_, cmd := a.Update(key("s"))
	if cmd == nil {
		t.Fatal("expected an action command")
	}
	cmd()
	if len(ctrl.stopped) != 1 || ctrl.stopped[0] != single.ID {
		t.Errorf("stopped = %v, want [%v]", ctrl.stopped, single.ID)
	}
}

func TestStopAllAndResumeAllKeys(t *testing.T) {
	ctrl, _, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	_, cmd := a.Update(key("S"))
	if cmd == nil {
		t.Fatal("expected a stop-all command")
	}
	cmd()
	if ctrl.stopAlls != 1 {
		t.Errorf("StopAll calls = %d, want 1", ctrl.stopAlls)
	}

	_, cmd = a.Update(key("P"))
	if cmd == nil {
		t.Fatal("expected a resume-all command")
	}
	cmd()
	if ctrl.resumeAll != 1 {
		t.Errorf("ResumeAll calls = %d, want 1", ctrl.resumeAll)
	}
}

func TestAddFormSubmitsURL(t *testing.T) {
	ctrl := &fakeController{}
	a := NewApp(ctrl, nil)

	a.Update(key("a"))
	if a.currentView != ViewAddForm {
		t.Fatalf("view = %v, want add form", a.currentView)
	}

	for _, r := range "https://example.com/watch?v=x" {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := a.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	msg := cmd()
	done, ok := msg.(addDoneMsg)
	if !ok {
		t.Fatalf("msg = %T, want addDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("submit error = %v", done.err)
	}
	if len(ctrl.added) != 1 || ctrl.added[0] != "https://example.com/watch?v=x" {
		t.Errorf("added = %v", ctrl.added)
	}

	a.Update(msg)
	if a.currentView != ViewQueue {
		t.Errorf("view = %v, want queue after successful add", a.currentView)
	}
}

func TestAddFormRejectsEmptyURL(t *testing.T) {
	ctrl := &fakeController{}
	a := NewApp(ctrl, nil)

	a.Update(key("a"))
	_, cmd := a.Update(key("enter"))
	if cmd != nil {
		t.Error("expected no command for empty URL")
	}
	if a.addForm.err == "" {
		t.Error("expected a validation error")
	}
}

func TestQueueViewRendersRows(t *testing.T) {
	ctrl, _, _ := testDownloads()
	a := NewApp(ctrl, nil)
	a.downloads = ctrl.List()

	out := a.View()
	if !strings.Contains(out, "Three") {
		t.Error("queue view does not show the single download title")
	}
	if strings.Contains(out, "One") {
		t.Error("collapsed playlist children should not render")
	}
}

func TestRenderBarWidth(t *testing.T) {
	tests := []struct {
		percent float64
		width   int
	}{
		{0, 10},
		{50, 10},
		{100, 10},
		{-1, 10},
		{150, 10},
	}
	for _, tt := range tests {
		bar := RenderBar(tt.percent, tt.width)
		if got := utf8.RuneCountInString(bar); got != tt.width {
			t.Errorf("RenderBar(%v, %d) rune count = %d, want %d", tt.percent, tt.width, got, tt.width)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{-1, "--"},
		{0, "0B"},
		{512, "512B"},
		{2048, "2.0KiB"},
		{5 * 1024 * 1024, "5.0MiB"},
		{3 * 1024 * 1024 * 1024, "3.0GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{-1, "--"},
		{0, "0:00"},
		{75, "1:15"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.in); got != tt.want {
			t.Errorf("FormatETA(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(-1); got != "--" {
		t.Errorf("FormatSpeed(-1) = %q, want --", got)
	}
	if got := FormatSpeed(2048); got != "2.0KiB/s" {
		t.Errorf("FormatSpeed(2048) = %q, want 2.0KiB/s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 10)
	if len([]rune(got)) != 10 {
		t.Errorf("truncate rune length = %d, want 10", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncate result %q missing ellipsis", got)
	}
}
