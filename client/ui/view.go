package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"btlshyp/game"
	"btlshyp/protocol"
)

// The methods below are called from the controller goroutine and only
// queue work for the UI goroutine.

func (a *App) RequestShip(kind game.ShipKind) {
	a.update(func() {
		a.mode = modePlacing
		a.pending.reset(kind)
		a.statusBar.SetText(statusPlacing)
		a.appendLine(fmt.Sprintf("[yellow]Place your %s (%d cells):[-] pick cells on your fleet or type /place A1 A2 ...",
			kind, kind.Size()))
		a.app.SetFocus(a.fleetTable)
	})
}

func (a *App) RequestAttack() {
	a.update(func() {
		a.mode = modeAttacking
		a.statusBar.SetText(statusAttacking)
		a.appendLine("[yellow]Your turn![-] Pick a target or type /fire B3.")
		a.app.SetFocus(a.targetTable)
	})
}

func (a *App) DisplayAttack(result *protocol.AttackResponseMessage) {
	a.update(func() {
		a.targets.set(result.Coordinate, resultMark(result))
		renderBoard(a.targetTable, &a.targets)
		a.appendLine("You fired at " + describeResult(result))
	})
}

func (a *App) DisplayOpponentAttack(result *protocol.AttackResponseMessage) {
	a.update(func() {
		a.fleet.set(result.Coordinate, resultMark(result))
		renderBoard(a.fleetTable, &a.fleet)
		a.appendLine("Opponent fired at " + describeResult(result))
	})
}

func (a *App) DisplayChat(user, text string) {
	a.update(func() {
		color := "aqua"
		if user == a.currentUser {
			color = "yellow"
		}
		a.appendLine(fmt.Sprintf("[%s]%s:[-] %s", color, tview.Escape(user), tview.Escape(text)))
	})
}

func (a *App) DisplayNotification(text string) {
	a.update(func() {
		a.lastNotice = text
		a.appendLine("[white]" + tview.Escape(text) + "[-]")
	})
}

func (a *App) NotYourTurn() {
	a.update(func() {
		a.mode = modeIdle
		a.statusBar.SetText(statusIdle)
		a.appendLine("[gray]Opponent's turn.[-]")
	})
}

func (a *App) DisplayShip(ship *game.Ship) {
	a.update(func() {
		for _, c := range ship.Coordinates {
			a.fleet.set(c, markShip)
		}
		renderBoard(a.fleetTable, &a.fleet)
	})
}

func (a *App) Reset() {
	a.update(func() {
		a.mode = modeIdle
		a.pending.reset(0)
		a.fleet = grid{}
		a.targets = grid{}
		renderBoard(a.fleetTable, &a.fleet)
		renderBoard(a.targetTable, &a.targets)
		a.statusBar.SetText(statusIdle)
	})
}

func resultMark(r *protocol.AttackResponseMessage) mark {
	if r.HitOrMiss == protocol.Hit {
		return markHit
	}
	return markMiss
}

// describeResult renders an attack result as e.g. "B3: HIT, DESTROYER sunk".
func describeResult(r *protocol.AttackResponseMessage) string {
	s := cellName(r.Coordinate) + ": "
	if r.HitOrMiss == protocol.Hit {
		s += "[red]HIT[-]"
	} else {
		s += "MISS"
	}
	if kind, ok := r.ShipSunk.Kind(); ok {
		s += fmt.Sprintf(", [red]%s sunk[-]", kind)
	}
	return s
}
