package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) showHelp() {
	helpText := `
 [yellow]Panels[-]
 ───────────────────────────────────────────────────────────────
   [white]Tab[-]      Cycle: input line, your fleet, targets
   [white]F1[-]       Show this help
   [white]F10[-]      Quit application

 [yellow]Placing ships[-]
 ───────────────────────────────────────────────────────────────
   [white]Enter[-]    Pick or unpick a cell on your fleet
   [white]Esc[-]      Clear picked cells
   Ships go in a straight line, vertical or horizontal,
   and may not overlap. The ship is sent once enough
   cells are picked.

 [yellow]Attacking[-]
 ───────────────────────────────────────────────────────────────
   [white]Enter[-]    Fire at the selected target cell

 [yellow]Input line[-]
 ───────────────────────────────────────────────────────────────
   [white]text[-]             Chat with everyone on the server
   [white]/fire B3[-]         Fire at B3
   [white]/place A1 A2 A3[-]  Place the requested ship
   [white]/help[-]            Show this help

 [yellow]Board[-]
 ───────────────────────────────────────────────────────────────
   [blue]~[-] water   ■ ship   [yellow]□[-] picked   [red]✗[-] hit   • miss
`

	helpView := tview.NewTextView()
	helpView.SetText(helpText)
	helpView.SetBackgroundColor(ColorBg)
	helpView.SetTextColor(ColorFg)
	helpView.SetDynamicColors(true)
	helpView.SetBorder(true)
	helpView.SetBorderColor(ColorBorder)
	helpView.SetTitle(" Help ")
	helpView.SetTitleColor(ColorTitle)
	helpView.SetScrollable(true)

	// Status bar
	statusBar := tview.NewTextView()
	statusBar.SetBackgroundColor(ColorBar)
	statusBar.SetTextColor(ColorTitle)
	statusBar.SetTextAlign(tview.AlignCenter)
	statusBar.SetText(" ↑↓: Scroll | Esc/Enter/F1: Close ")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(helpView, 0, 1, true).
		AddItem(statusBar, 1, 0, false)
	flex.SetBackgroundColor(ColorBg)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyEnter, tcell.KeyF1:
			a.pages.RemovePage("help")
			a.app.SetFocus(a.inputField)
			return nil
		case tcell.KeyUp:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := helpView.GetScrollOffset()
			helpView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	a.pages.AddPage("help", flex, true, true)
}
