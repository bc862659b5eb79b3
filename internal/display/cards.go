package display

import (
	"strings"

	"github.com/jason-s-yu/setdealer/internal/cards"
	"github.com/pterm/pterm"
)

var (
	shapes   = []string{"◆", "●", "≈"}
	shadings = []string{"solid", "striped", "open"}
	colors   = []pterm.Color{pterm.FgRed, pterm.FgGreen, pterm.FgMagenta}
)

// DescribeCard draws a card of the classic layout as its number of colored shapes with
// their shading. Other layouts fall back to the feature digits.
func DescribeCard(rules cards.Rules, card int) string {
	if rules != cards.StandardRules() {
		return rules.Describe(card)
	}
	f := rules.Features(card) // number, color, shading, shape
	glyphs := strings.Repeat(shapes[f[3]], f[0]+1)
	return colors[f[1]].Sprint(glyphs) + " " + shadings[f[2]]
}
