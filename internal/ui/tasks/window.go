package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/Megamind2600/TimerAD/internal/core/focus"
	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/log"
	"github.com/Megamind2600/TimerAD/internal/storage"
	"github.com/Megamind2600/TimerAD/internal/storage/transfer"
)

var priorityNames = map[int]string{
	model.PriorityLow:    "Low",
	model.PriorityMedium: "Medium",
	model.PriorityHigh:   "High",
}

// Config is the configuration for the task list window.
type Config struct {
	App        fyne.App
	Repository storage.Repository
	Controller *focus.Controller
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.App == nil {
		return fmt.Errorf("fyne app is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("task repository is required")
	}
	if c.Controller == nil {
		return fmt.Errorf("focus controller is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tasks.Window"})
	return nil
}

// Window is the main task list UI: it lists tasks with their accumulated
// focus and distraction time and starts timer sessions against the selected
// task.
type Window struct {
	window     fyne.Window
	repository storage.Repository
	controller *focus.Controller
	logger     log.Logger

	mu       sync.Mutex
	tasks    []model.Task
	selected int

	list        *widget.List
	startButton *widget.Button
	stopButton  *widget.Button
}

// New creates the task list window.
func New(cfg Config) (*Window, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	win := &Window{
		window:     cfg.App.NewWindow("TimerAD"),
		repository: cfg.Repository,
		controller: cfg.Controller,
		logger:     cfg.Logger,
		selected:   -1,
	}

	win.list = widget.NewList(win.taskCount, newTaskRow, win.renderTaskRow)
	win.list.OnSelected = func(id widget.ListItemID) {
		win.mu.Lock()
		win.selected = int(id)
		win.mu.Unlock()
		win.refreshButtons()
	}
	win.list.OnUnselected = func(widget.ListItemID) {
		win.mu.Lock()
		win.selected = -1
		win.mu.Unlock()
		win.refreshButtons()
	}

	addButton := widget.NewButton("Add", win.handleAdd)
	editButton := widget.NewButton("Edit", win.handleEdit)
	deleteButton := widget.NewButton("Delete", win.handleDelete)
	doneButton := widget.NewButton("Toggle done", win.handleToggleDone)
	win.startButton = widget.NewButton("Start focus", win.handleStartFocus)
	win.stopButton = widget.NewButton("Stop focus", win.controller.Stop)
	exportButton := widget.NewButton("Export...", win.handleExport)
	importButton := widget.NewButton("Import...", win.handleImport)

	toolbar := container.NewHBox(
		addButton, editButton, deleteButton, doneButton,
		layout.NewSpacer(),
		win.startButton, win.stopButton,
	)
	bottom := container.NewHBox(layout.NewSpacer(), exportButton, importButton)

	win.window.SetContent(container.NewBorder(toolbar, bottom, nil, nil, win.list))
	win.window.Resize(fyne.NewSize(640, 460))
	win.window.SetCloseIntercept(win.window.Hide)

	win.refreshButtons()
	return win, nil
}

// Show displays the window.
func (win *Window) Show() {
	win.window.Show()
	win.window.RequestFocus()
}

// Reload re-reads the task list from the repository and refreshes the UI.
// Safe to call from any goroutine.
func (win *Window) Reload() {
	tasks, err := win.repository.ListTasks(context.Background())
	if err != nil {
		win.logger.Errorf("could not list tasks: %v", err)
		return
	}
	sortTasks(tasks)

	win.mu.Lock()
	win.tasks = tasks
	win.mu.Unlock()

	fyne.Do(func() {
		win.list.Refresh()
		win.refreshButtons()
	})
}

// ApplyTaskCounters updates the cached counters of a single task without a
// repository round trip. Used on every timer tick. Safe to call from any
// goroutine.
func (win *Window) ApplyTaskCounters(taskID string, timeSpent, distractionTime int) {
	win.mu.Lock()
	for i := range win.tasks {
		if win.tasks[i].ID == taskID {
			win.tasks[i].TimeSpent = timeSpent
			win.tasks[i].DistractionTime = distractionTime
			break
		}
	}
	win.mu.Unlock()

	fyne.Do(win.list.Refresh)
}

// RefreshFocusState re-evaluates the start/stop buttons against the
// controller state. Safe to call from any goroutine.
func (win *Window) RefreshFocusState() {
	fyne.Do(win.refreshButtons)
}

func (win *Window) taskCount() int {
	win.mu.Lock()
	defer win.mu.Unlock()
	return len(win.tasks)
}

func newTaskRow() fyne.CanvasObject {
	title := widget.NewLabel("")
	title.TextStyle = fyne.TextStyle{Bold: true}
	meta := widget.NewLabel("")
	timers := widget.NewLabel("")
	timers.TextStyle = fyne.TextStyle{Monospace: true}
	return container.NewBorder(nil, nil, nil, timers, container.NewVBox(title, meta))
}

func (win *Window) renderTaskRow(id widget.ListItemID, item fyne.CanvasObject) {
	task, ok := win.taskAt(int(id))
	if !ok {
		return
	}

	row := item.(*fyne.Container)
	timers := row.Objects[1].(*widget.Label)
	lines := row.Objects[0].(*fyne.Container)
	title := lines.Objects[0].(*widget.Label)
	meta := lines.Objects[1].(*widget.Label)

	title.SetText(task.Title)
	meta.SetText(taskMeta(task))
	timers.SetText(fmt.Sprintf("%s | %s",
		focus.FormatSeconds(task.TimeSpent),
		focus.FormatSeconds(task.DistractionTime)))
}

func taskMeta(task model.Task) string {
	parts := []string{priorityNames[task.Priority], string(task.Status)}
	if task.Deadline != nil {
		parts = append(parts, "due "+task.Deadline.Format("2006-01-02"))
	}
	return strings.Join(parts, " / ")
}

func (win *Window) taskAt(index int) (model.Task, bool) {
	win.mu.Lock()
	defer win.mu.Unlock()
	if index < 0 || index >= len(win.tasks) {
		return model.Task{}, false
	}
	return win.tasks[index], true
}

func (win *Window) selectedTask() (model.Task, bool) {
	win.mu.Lock()
	index := win.selected
	win.mu.Unlock()
	return win.taskAt(index)
}

func (win *Window) refreshButtons() {
	active := win.controller.State() != focus.StateIdle
	_, hasSelection := win.selectedTask()

	if active || !hasSelection {
		win.startButton.Disable()
	} else {
		win.startButton.Enable()
	}
	if active {
		win.stopButton.Enable()
	} else {
		win.stopButton.Disable()
	}
}

func (win *Window) handleAdd() {
	win.showTaskForm("Add task", model.Task{
		Status:   model.TaskStatusPending,
		Priority: model.PriorityMedium,
	}, func(task model.Task) error {
		task.ID = model.NewTaskID()
		now := time.Now()
		task.CreatedAt = now
		task.UpdatedAt = now
		return win.repository.CreateTask(context.Background(), task)
	})
}

func (win *Window) handleEdit() {
	task, ok := win.selectedTask()
	if !ok {
		return
	}
	win.showTaskForm("Edit task", task, func(edited model.Task) error {
		edited.UpdatedAt = time.Now()
		return win.repository.UpdateTask(context.Background(), edited)
	})
}

// showTaskForm opens a task editing dialog; persist runs on confirmation with
// the edited copy and its error surfaces as a dialog.
func (win *Window) showTaskForm(title string, task model.Task, persist func(model.Task) error) {
	titleEntry := widget.NewEntry()
	titleEntry.SetText(task.Title)

	notesEntry := widget.NewMultiLineEntry()
	notesEntry.SetText(task.Notes)

	prioritySelect := widget.NewSelect([]string{"Low", "Medium", "High"}, nil)
	prioritySelect.SetSelected(priorityNames[task.Priority])

	deadlineEntry := widget.NewEntry()
	deadlineEntry.SetPlaceHolder("YYYY-MM-DD")
	if task.Deadline != nil {
		deadlineEntry.SetText(task.Deadline.Format("2006-01-02"))
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Title", titleEntry),
		widget.NewFormItem("Notes", notesEntry),
		widget.NewFormItem("Priority", prioritySelect),
		widget.NewFormItem("Deadline", deadlineEntry),
	}

	dialog.ShowForm(title, "Save", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		task.Title = strings.TrimSpace(titleEntry.Text)
		task.Notes = notesEntry.Text
		task.Priority = priorityFromName(prioritySelect.Selected)
		task.Deadline = nil
		if deadlineEntry.Text != "" {
			deadline, err := time.Parse("2006-01-02", deadlineEntry.Text)
			if err != nil {
				dialog.ShowError(fmt.Errorf("invalid deadline: %w", err), win.window)
				return
			}
			task.Deadline = &deadline
		}

		if err := persist(task); err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		go win.Reload()
	}, win.window)
}

func priorityFromName(name string) int {
	for priority, candidate := range priorityNames {
		if candidate == name {
			return priority
		}
	}
	return model.PriorityMedium
}

func (win *Window) handleDelete() {
	task, ok := win.selectedTask()
	if !ok {
		return
	}

	dialog.ShowConfirm("Delete task", fmt.Sprintf("Delete %q?", task.Title), func(confirmed bool) {
		if !confirmed {
			return
		}
		if win.controller.ActiveTaskID() == task.ID {
			win.controller.Stop()
		}
		if err := win.repository.DeleteTask(context.Background(), task.ID); err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		go win.Reload()
	}, win.window)
}

func (win *Window) handleToggleDone() {
	task, ok := win.selectedTask()
	if !ok {
		return
	}

	if task.Status == model.TaskStatusDone {
		task.Status = model.TaskStatusPending
	} else {
		task.Status = model.TaskStatusDone
	}
	task.UpdatedAt = time.Now()

	if err := win.repository.UpdateTask(context.Background(), task); err != nil {
		dialog.ShowError(err, win.window)
		return
	}
	go win.Reload()
}

func (win *Window) handleStartFocus() {
	task, ok := win.selectedTask()
	if !ok {
		return
	}

	go func() {
		err := win.controller.Start(context.Background(), task.ID)
		if err == nil {
			return
		}
		win.logger.Warningf("could not start focus session: %v", err)
		if errors.Is(err, model.ErrAlreadyActive) {
			// Start raced with another one; the buttons refresh on the
			// session started event.
			return
		}
		fyne.Do(func() {
			dialog.ShowError(err, win.window)
		})
	}()
}

func (win *Window) handleExport() {
	saver := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		if err := transfer.Export(context.Background(), win.repository, writer); err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		win.logger.Infof("tasks exported to %s", writer.URI())
	}, win.window)
	saver.SetFileName("tasks.json")
	saver.Show()
}

func (win *Window) handleImport() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		imported, err := transfer.Import(context.Background(), win.repository, reader)
		if err != nil {
			dialog.ShowError(err, win.window)
			return
		}
		win.logger.Infof("imported %d tasks from %s", imported, reader.URI())
		go win.Reload()
	}, win.window)
}

func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Status != tasks[j].Status {
			return tasks[i].Status == model.TaskStatusPending
		}
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].ID < tasks[j].ID
	})
}
