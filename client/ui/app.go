package ui

import (
	"context"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"btlshyp/game"
)

// Submitter receives what the player does on screen.
type Submitter interface {
	SubmitShip(ship *game.Ship) error
	SubmitAttack(coord game.Coordinate) error
	SubmitChat(text string) error
}

type mode int

const (
	modeIdle mode = iota
	modePlacing
	modeAttacking
)

// App is the terminal front end. It implements controller.View.
type App struct {
	app        *tview.Application
	pages      *tview.Pages
	serverAddr string
	input      Submitter
	names      chan string
	stopped    atomic.Bool

	// Fields below are only touched on the tview goroutine.
	currentUser string
	lastNotice  string
	mode        mode
	pending     pendingShip
	fleet       grid
	targets     grid

	fleetTable  *tview.Table
	targetTable *tview.Table
	messageView *tview.TextView
	inputField  *tview.InputField
	statusBar   *tview.TextView
}

// NewApp creates the application and its widgets. Nothing is drawn until Run.
func NewApp(serverAddr string) *App {
	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		serverAddr: serverAddr,
		names:      make(chan string, 1),
	}
	background := tview.NewBox()
	background.SetBackgroundColor(tcell.NewRGBColor(64, 64, 64))
	a.pages.AddPage("background", background, true, true)
	a.pages.AddPage("game", a.createGamePage(), true, false)
	return a
}

// Bind sets where user input goes. Call it before Run.
func (a *App) Bind(input Submitter) {
	a.input = input
}

// SetUsername prefills the login dialog. Call it before Run.
func (a *App) SetUsername(name string) {
	a.currentUser = name
}

// Run blocks until the player quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, a.app.Stop)
	defer stop()
	defer a.stopped.Store(true)

	return a.app.SetRoot(a.pages, true).EnableMouse(true).Run()
}

// update runs f on the UI goroutine unless the app has already stopped.
func (a *App) update(f func()) {
	if a.stopped.Load() {
		return
	}
	a.app.QueueUpdateDraw(f)
}

// Finish shows why the session ended and waits for a key before exiting.
func (a *App) Finish(err error) {
	text := "Session finished."
	if err != nil {
		text = "Session ended: " + err.Error()
	}
	a.update(func() {
		modal := tview.NewModal().
			SetText(text).
			AddButtons([]string{"Exit"}).
			SetDoneFunc(func(int, string) { a.quit() })
		modal.SetBackgroundColor(ColorBg)
		modal.SetButtonBackgroundColor(ColorBar)
		a.pages.AddPage("finish", modal, true, true)
		a.app.SetFocus(modal)
	})
}

// quit exits the application
func (a *App) quit() {
	a.app.Stop()
}
