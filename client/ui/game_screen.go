package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"btlshyp/game"
)

const (
	statusIdle      = " F1:Help | Tab:Switch panel | F10:Quit "
	statusPlacing   = " Enter:Pick cell | Esc:Clear picks | Tab:Switch panel | F10:Quit "
	statusAttacking = " Enter:Fire | Tab:Switch panel | F10:Quit "
)

func (a *App) showGamePage() {
	a.pages.RemovePage("background")
	a.pages.ShowPage("game")
	a.fleetTable.SetTitle(fmt.Sprintf(" Your fleet [%s] ", a.currentUser))
	a.app.SetFocus(a.inputField)
}

func newBoardTable(title string) *tview.Table {
	t := tview.NewTable()
	t.SetBorder(true)
	t.SetBorderColor(ColorBorder)
	t.SetBackgroundColor(ColorBg)
	t.SetTitle(title)
	t.SetTitleColor(ColorTitle)
	t.SetSelectable(true, true)
	t.SetFixed(1, 1)
	t.SetSelectedStyle(tcell.StyleDefault.Foreground(ColorTitle).Background(ColorBar))

	t.SetCell(0, 0, tview.NewTableCell(" ").SetSelectable(false))
	for x := 0; x < game.Width; x++ {
		t.SetCell(0, x+1, tview.NewTableCell(fmt.Sprintf(" %c ", 'A'+rune(x))).
			SetTextColor(ColorHighlight).SetSelectable(false))
	}
	for y := 0; y < game.Height; y++ {
		t.SetCell(y+1, 0, tview.NewTableCell(fmt.Sprintf("%d ", y+1)).
			SetTextColor(ColorHighlight).SetSelectable(false))
	}
	t.Select(1, 1)
	return t
}

// renderBoard copies g into the table cells.
func renderBoard(t *tview.Table, g *grid) {
	for x := 0; x < game.Width; x++ {
		for y := 0; y < game.Height; y++ {
			text, color := g.at(game.Coordinate{X: x, Y: y}).glyph()
			t.SetCell(y+1, x+1, tview.NewTableCell(" "+text+" ").
				SetTextColor(color).
				SetAlign(tview.AlignCenter))
		}
	}
}

func tableCoordinate(row, col int) game.Coordinate {
	return game.Coordinate{X: col - 1, Y: row - 1}
}

func (a *App) createGamePage() tview.Primitive {
	a.fleetTable = newBoardTable(" Your fleet ")
	a.fleetTable.SetSelectedFunc(func(row, col int) {
		a.pickFleetCell(tableCoordinate(row, col))
	})
	renderBoard(a.fleetTable, &a.fleet)

	a.targetTable = newBoardTable(" Targets ")
	a.targetTable.SetSelectedFunc(func(row, col int) {
		a.fire(tableCoordinate(row, col))
	})
	renderBoard(a.targetTable, &a.targets)

	// Messages and chat
	a.messageView = tview.NewTextView()
	a.messageView.SetBorder(true)
	a.messageView.SetBorderColor(ColorBorder)
	a.messageView.SetBackgroundColor(ColorBg)
	a.messageView.SetTitle(" Messages ")
	a.messageView.SetTitleColor(ColorTitle)
	a.messageView.SetTextColor(ColorFg)
	a.messageView.SetDynamicColors(true)
	a.messageView.SetScrollable(true)

	a.inputField = tview.NewInputField()
	a.inputField.SetLabel("> ")
	a.inputField.SetFieldWidth(0)
	a.inputField.SetBackgroundColor(ColorBg)
	a.inputField.SetFieldBackgroundColor(ColorField)
	a.inputField.SetFieldTextColor(ColorFg)
	a.inputField.SetLabelColor(ColorHighlight)
	a.inputField.SetBorder(true)
	a.inputField.SetBorderColor(ColorBorder)
	a.inputField.SetTitle(" Chat / commands ")
	a.inputField.SetTitleColor(ColorTitle)
	a.inputField.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := a.inputField.GetText()
		if text == "" {
			return
		}
		a.inputField.SetText("")
		a.runCommand(text)
	})

	// Status bar
	a.statusBar = tview.NewTextView()
	a.statusBar.SetBackgroundColor(ColorBar)
	a.statusBar.SetTextColor(ColorTitle)
	a.statusBar.SetTextAlign(tview.AlignCenter)
	a.statusBar.SetText(statusIdle)

	boards := tview.NewFlex().
		AddItem(a.fleetTable, 0, 1, false).
		AddItem(a.targetTable, 0, 1, false)

	// Layout
	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(boards, game.Height+3, 0, false).
		AddItem(a.messageView, 0, 1, false).
		AddItem(a.inputField, 3, 0, true).
		AddItem(a.statusBar, 1, 0, false)
	mainFlex.SetBackgroundColor(ColorBg)

	focusOrder := []tview.Primitive{a.inputField, a.fleetTable, a.targetTable}

	// Handle keyboard
	mainFlex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			a.showHelp()
			return nil
		case tcell.KeyTab:
			for i, p := range focusOrder {
				if p.HasFocus() {
					a.app.SetFocus(focusOrder[(i+1)%len(focusOrder)])
					return nil
				}
			}
			a.app.SetFocus(a.inputField)
			return nil
		case tcell.KeyEsc:
			if a.mode == modePlacing && a.fleetTable.HasFocus() {
				a.pending.reset(a.pending.kind)
				a.fleet.clearMark(markPending)
				renderBoard(a.fleetTable, &a.fleet)
				return nil
			}
		case tcell.KeyF10:
			a.quit()
			return nil
		}
		return event
	})

	return mainFlex
}

// pickFleetCell adds or removes one cell of the ship being placed and
// submits the ship once it is long enough.
func (a *App) pickFleetCell(c game.Coordinate) {
	if a.mode != modePlacing {
		return
	}
	if a.fleet.at(c) == markShip {
		a.appendLine("[red]That cell already holds a ship.[-]")
		return
	}
	if a.fleet.at(c) == markPending {
		a.fleet.set(c, markWater)
	} else {
		a.fleet.set(c, markPending)
	}
	complete := a.pending.toggle(c)
	renderBoard(a.fleetTable, &a.fleet)
	if complete {
		a.submitPending()
	}
}

func (a *App) submitPending() {
	ship := a.pending.ship()
	a.mode = modeIdle
	a.fleet.clearMark(markPending)
	renderBoard(a.fleetTable, &a.fleet)
	a.statusBar.SetText(statusIdle)
	if err := a.input.SubmitShip(ship); err != nil {
		a.appendLine("[red]" + tview.Escape(err.Error()) + "[-]")
	}
}

func (a *App) fire(c game.Coordinate) {
	if a.mode != modeAttacking {
		a.appendLine("[gray]Not your turn.[-]")
		return
	}
	if a.targets.at(c) != markWater {
		a.appendLine(fmt.Sprintf("[gray]You already fired at %s.[-]", cellName(c)))
		return
	}
	a.mode = modeIdle
	a.statusBar.SetText(statusIdle)
	if err := a.input.SubmitAttack(c); err != nil {
		a.appendLine("[red]" + tview.Escape(err.Error()) + "[-]")
	}
}

func (a *App) runCommand(line string) {
	cmd, err := parseCommand(line)
	if err != nil {
		a.appendLine("[red]" + tview.Escape(err.Error()) + "[-]")
		return
	}
	switch cmd.kind {
	case cmdChat:
		if err := a.input.SubmitChat(cmd.text); err != nil {
			a.appendLine("[red]" + tview.Escape(err.Error()) + "[-]")
		}
	case cmdFire:
		a.fire(cmd.cells[0])
	case cmdPlace:
		if a.mode != modePlacing {
			a.appendLine("[gray]No ship to place right now.[-]")
			return
		}
		a.fleet.clearMark(markPending)
		a.pending.reset(a.pending.kind)
		a.pending.cells = cmd.cells
		a.submitPending()
	case cmdHelp:
		a.showHelp()
	}
}

// appendLine adds one timestamped line to the message view.
func (a *App) appendLine(text string) {
	fmt.Fprintf(a.messageView, "[gray]%s[-] %s\n", time.Now().Format("15:04:05"), text)
	a.messageView.ScrollToEnd()
}
