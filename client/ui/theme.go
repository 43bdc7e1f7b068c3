package ui

import "github.com/gdamore/tcell/v2"

// Colors - Midnight Commander style
var (
	ColorBg        = tcell.NewRGBColor(0, 0, 128)     // Dark blue background
	ColorFg        = tcell.NewRGBColor(192, 192, 192) // Light gray text
	ColorBorder    = tcell.NewRGBColor(0, 255, 255)   // Cyan borders
	ColorTitle     = tcell.NewRGBColor(255, 255, 255) // White titles
	ColorHighlight = tcell.NewRGBColor(0, 255, 255)   // Cyan highlight
	ColorBar       = tcell.NewRGBColor(0, 128, 128)   // Teal status bar and buttons
	ColorField     = tcell.NewRGBColor(0, 0, 64)      // Input field background
	ColorWater     = tcell.NewRGBColor(64, 96, 192)
	ColorShip      = tcell.NewRGBColor(192, 192, 192)
	ColorPending   = tcell.NewRGBColor(255, 255, 0)
	ColorHit       = tcell.NewRGBColor(255, 64, 64)
	ColorMiss      = tcell.NewRGBColor(255, 255, 255)
)
