package ui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptUsername shows the login dialog and waits for a name.
func (a *App) PromptUsername(ctx context.Context) (string, error) {
	a.update(a.showLoginDialog)
	select {
	case name := <-a.names:
		return name, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *App) showLoginDialog() {
	// Form container
	form := tview.NewForm()
	form.SetBackgroundColor(ColorBg)
	form.SetFieldBackgroundColor(ColorField)
	form.SetFieldTextColor(ColorFg)
	form.SetLabelColor(ColorHighlight)
	form.SetButtonBackgroundColor(ColorBar)
	form.SetButtonTextColor(ColorTitle)
	form.SetBorder(true)
	form.SetBorderColor(ColorBorder)
	form.SetTitle(" BtlShyp Login ")
	form.SetTitleColor(ColorTitle)

	statusText := tview.NewTextView()
	statusText.SetBackgroundColor(ColorBg)
	statusText.SetTextAlign(tview.AlignCenter)
	statusText.SetDynamicColors(true)
	statusText.SetText("[gray]" + tview.Escape(a.serverAddr) + "[-]")
	if a.lastNotice != "" {
		statusText.SetText("[red]" + tview.Escape(a.lastNotice) + "[-]")
	}

	nameField := tview.NewInputField()
	nameField.SetLabel("Username: ")
	nameField.SetFieldWidth(30)
	nameField.SetBackgroundColor(ColorBg)
	if a.currentUser != "" {
		nameField.SetText(a.currentUser)
	}

	submit := func() {
		name := strings.TrimSpace(nameField.GetText())
		if name == "" {
			statusText.SetText("[red]Please enter a username[-]")
			return
		}
		select {
		case a.names <- name:
		default:
			return
		}
		a.currentUser = name
		a.pages.RemovePage("login")
		a.showGamePage()
	}

	form.AddFormItem(nameField)
	nameField.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			submit()
		}
	})
	form.AddButton("Play", submit)
	form.AddButton("Quit", a.quit)

	formFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(statusText, 1, 0, false)

	// Create modal-like container
	width := 50
	height := 9

	modal := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(formFlex, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage("login", modal, true, true)
	a.app.SetFocus(form)
}
