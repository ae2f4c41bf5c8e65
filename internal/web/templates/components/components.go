package components

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/mcoot/callclock/internal/model"
)

// CaptionSlotID is the element the caption fragment is swapped into
const CaptionSlotID = "caption-slot"

// DefaultPillWidth is used until the widest caption has been measured
const DefaultPillWidth = 160

// Element ids the page script drives
const (
	HourHandID   = "hour-hand"
	MinuteHandID = "minute-hand"
	SecondHandID = "second-hand"
)

// External links of the page chrome
const (
	ClubURL   = "https://www.linkedin.com/company/pick-up-the-phone-club/"
	TrophyURL = "https://trophy.inc"
)

// num formats a coordinate the way SVG expects, without trailing zeros
func num(f float64) string {
	return fmt.Sprintf("%.4g", f)
}

func viewBox(g model.Geometry) string {
	return "0 0 " + num(g.Size) + " " + num(g.Size)
}

// rotate is an SVG transform turning a hand about the dial center
func rotate(angle float64, g model.Geometry) string {
	c := num(g.Center)
	return "rotate(" + num(angle) + ", " + c + ", " + c + ")"
}

// fadeOrder staggers the entrance animation of ticks and markers
func fadeOrder(i int) templ.SafeCSS {
	return templ.SafeCSS("--i:" + strconv.Itoa(i))
}

func pillStyle(width int) templ.SafeCSS {
	return templ.SafeCSS("width:" + strconv.Itoa(width) + "px")
}

func captionClass(phase model.Phase) string {
	return "caption-" + string(phase)
}

// secondTipStart is where the red tip of the second hand begins
func secondTipStart(g model.Geometry) float64 {
	return g.Center - g.SecondHandLength + g.SecondTipLength
}
