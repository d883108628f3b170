package ui

import "github.com/gdamore/tcell/v2"

// Theme holds the chrome colors applied at build time. Verdict colors inside
// running text stay as inline tview tags next to the strings they color.
type Theme struct {
	Surface tcell.Color
	Accent  tcell.Color
	Text    tcell.Color
	Muted   tcell.Color
}

func DefaultTheme() Theme {
	return Theme{
		Surface: tcell.ColorDarkSlateGray,
		Accent:  tcell.ColorTeal,
		Text:    tcell.ColorWhite,
		Muted:   tcell.ColorGray,
	}
}

// pairPalette colors committed matching pairs, as tview color tags. Indexes
// wrap modulo the palette length.
var pairPalette = []string{
	"#2aa198",
	"#cb4b16",
	"#6c71c4",
	"#859900",
	"#dc322f",
	"#268bd2",
	"#b58900",
	"#d33682",
}

// PairTag maps a palette index from the matching state to a tview color tag.
func PairTag(idx int) string {
	if idx < 0 {
		return ""
	}
	return pairPalette[idx%len(pairPalette)]
}
