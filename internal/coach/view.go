package coach

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/form-coach/internal/engine"
	"github.com/lowaak/form-coach/internal/pose"
	"github.com/lowaak/form-coach/internal/safego"
)

// View is the curses-based terminal UI: a live session panel, a form
// feedback panel and the application log tail, driven entirely by model
// events.
type View struct {
	logger     *log.Logger
	app        *tview.Application
	model      *SessionModel
	controller *Controller

	statusPanel   *tview.TextView
	feedbackPanel *tview.TextView
	logView       *tview.TextView
	mainFlex      *tview.Flex

	// Lifetime totals loaded from the history store at startup; session
	// totals from the model are added on top for display.
	lifetimeTotals map[string]int

	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
}

// NewView builds the widgets, wires the keyboard handlers and subscribes to
// the model's events.
func NewView(logger *log.Logger, app *tview.Application, model *SessionModel,
	controller *Controller, lifetimeTotals map[string]int) *View {
	if logger == nil {
		panic("View: logger cannot be nil")
	}
	if app == nil {
		panic("View: app cannot be nil")
	}
	if model == nil {
		panic("View: model cannot be nil")
	}
	if controller == nil {
		panic("View: controller cannot be nil")
	}
	if lifetimeTotals == nil {
		lifetimeTotals = make(map[string]int)
	}
	ctx, cancel := context.WithCancel(context.Background())

	ui := &View{
		logger:         logger,
		app:            app,
		model:          model,
		controller:     controller,
		lifetimeTotals: lifetimeTotals,
		ctx:            ctx,
		cancel:         cancel,
	}

	ui.initWidgets()
	ui.setupKeyboardHandlers()
	ui.setupEventListeners()

	ui.waitGroup.Add(1)
	safego.Go(logger, func() { ui.monitorLogResize() })

	return ui
}

func (ui *View) initWidgets() {
	// Seed the panels from whatever the model already holds; the snapshot
	// listener takes over from the first published frame.
	snap := ui.model.GetSnapshot()

	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]1[white] Squat  |  [yellow]2[white] Push-up  |  [yellow]3[white] Lunge  |  [yellow]R[white] Reset Counter  |  [yellow]Q[white]/[yellow]Esc[white] Quit")

	ui.statusPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.statusPanel.SetBorder(true).SetTitle(" Session ")
	ui.updateStatusDisplay(snap)

	ui.feedbackPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.feedbackPanel.SetBorder(true).SetTitle(" Form ")
	ui.updateFeedbackDisplay(snap)

	// Note: Don't use SetChangedFunc with app.Draw() - it can cause hangs
	// during shutdown when the app has been stopped but log messages are
	// still being written. The event listeners already call Draw() after
	// updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	leftColumn := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 2, 0, false).
		AddItem(ui.statusPanel, 0, 2, true).
		AddItem(ui.feedbackPanel, 0, 1, false)

	ui.mainFlex = tview.NewFlex().
		AddItem(leftColumn, 0, 1, true).
		AddItem(ui.logView, 0, 1, false)
}

func (ui *View) setupKeyboardHandlers() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			ui.controller.OnEscapeKey()
			return nil
		}
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q', 'Q':
				ui.controller.OnEscapeKey()
				return nil
			case 'r', 'R':
				ui.controller.ResetActiveExercise()
				return nil
			default:
				if ui.controller.OnExerciseKey(event.Rune()) {
					return nil
				}
			}
		}
		return event
	})
}

func (ui *View) setupEventListeners() {
	// Listen to session snapshots from model
	snapshotChan := make(chan SessionSnapshot, 1)
	snapshotUnregister := ui.model.ListenToSnapshot(snapshotChan)
	ui.waitGroup.Add(1)
	safego.Go(ui.logger, func() {
		defer ui.waitGroup.Done()
		defer snapshotUnregister()
		for {
			select {
			case <-ui.ctx.Done():
				return
			case snap, ok := <-snapshotChan:
				if !ok {
					return
				}
				ui.updateStatusDisplay(snap)
				ui.updateFeedbackDisplay(snap)
				ui.app.Draw()
			}
		}
	})

	// Listen to log messages from model
	logChan := make(chan string, 1)
	logUnregister := ui.model.ListenToLog(logChan)
	ui.waitGroup.Add(1)
	safego.Go(ui.logger, func() {
		defer ui.waitGroup.Done()
		defer logUnregister()
		for {
			select {
			case <-ui.ctx.Done():
				return
			case _, ok := <-logChan:
				if !ok {
					return
				}
				ui.updateLogDisplay()
				ui.app.Draw()
			}
		}
	})

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := ui.model.ListenToCloseApplication(closeChan)
	ui.waitGroup.Add(1)
	safego.Go(ui.logger, func() {
		defer ui.waitGroup.Done()
		defer closeUnregister()
		select {
		case <-ui.ctx.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			ui.app.Stop()
		}
	})
}

func (ui *View) updateStatusDisplay(snap SessionSnapshot) {
	status := snap.Status
	var b strings.Builder

	fmt.Fprintf(&b, " Exercise: [yellow]%s[white]\n\n", status.Exercise)
	fmt.Fprintf(&b, " Reps:     [green]%d[white]\n", status.RepCount)
	fmt.Fprintf(&b, " Phase:    %s\n", status.PhaseLabel)
	if status.AngleOK {
		fmt.Fprintf(&b, " Angle:    %.0f°\n", status.PrimaryAngle)
	} else {
		fmt.Fprintf(&b, " Angle:    [gray]--[white]\n")
	}
	fmt.Fprintf(&b, " FPS:      %.1f\n\n", snap.FPS)

	fmt.Fprintf(&b, " Totals (session + lifetime):\n")
	for _, line := range ui.totalLines() {
		fmt.Fprintf(&b, "   %s\n", line)
	}

	ui.statusPanel.SetText(b.String())
}

// totalLines renders one "Name: session (lifetime N)" line per exercise in
// key order.
func (ui *View) totalLines() []string {
	session := ui.model.GetSessionTotals()

	names := make([]string, 0, len(engine.AllExercises))
	for _, info := range engine.AllExercises {
		names = append(names, info.DisplayName)
	}
	// Exercises only present in old history files still show up.
	for name := range ui.lifetimeTotals {
		found := false
		for _, n := range names {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			names = append(names, name)
		}
	}
	sort.Strings(names[len(engine.AllExercises):])

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%-8s %d  [gray](lifetime %d)[white]",
			name+":", session[name], ui.lifetimeTotals[name]+session[name]))
	}
	return lines
}

func (ui *View) updateFeedbackDisplay(snap SessionSnapshot) {
	status := snap.Status
	var b strings.Builder

	switch {
	case !status.PoseDetected:
		b.WriteString(" [gray]Pose not detected. Step into frame.[white]\n")
	case !status.Valid && len(status.MissingLandmarks) > 0:
		fmt.Fprintf(&b, " [gray]Move fully into frame: %s not visible.[white]\n",
			landmarkNames(status.MissingLandmarks))
	case len(status.Feedback) == 0:
		b.WriteString(" [green]Form looks good[white]\n")
	default:
		for _, msg := range status.Feedback {
			color := "yellow"
			if msg.Severity == engine.SeverityWarn {
				color = "red"
			}
			fmt.Fprintf(&b, " [%s]%s[white]\n", color, msg.Text)
		}
	}

	ui.feedbackPanel.SetText(b.String())
}

// landmarkNames joins landmark IDs into a readable list ("left hip, left knee").
func landmarkNames(ids []pose.LandmarkID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = strings.ReplaceAll(string(id), "_", " ")
	}
	return strings.Join(names, ", ")
}

func (ui *View) updateLogDisplay() {
	_, _, _, height := ui.logView.GetInnerRect()
	if height <= 0 {
		return
	}

	lines := ui.model.GetLogTail(height)
	ui.logView.SetText(strings.Join(lines, "\n"))
}

func (ui *View) monitorLogResize() {
	defer ui.waitGroup.Done()
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ui.ctx.Done():
			return
		case <-ticker.C:
			_, _, _, height := ui.logView.GetInnerRect()
			if height != lastHeight && height > 0 {
				lastHeight = height
				ui.updateLogDisplay()
				ui.app.Draw()
			}
		}
	}
}

// Run starts the UI and blocks until it exits
func (ui *View) Run() error {
	return ui.app.SetRoot(ui.mainFlex, true).SetFocus(ui.statusPanel).Run()
}

// Shutdown stops all goroutines and waits for them to finish
func (ui *View) Shutdown() {
	ui.logger.Println("View: Shutting down")
	ui.cancel()
	ui.waitGroup.Wait()
	ui.logger.Println("View: Shutdown complete")
}
