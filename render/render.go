// Package render provides a headless text renderer for the sign. It
// implements the orchestrator's Renderer contract against an io.Writer
// instead of LED hardware, which is what the binary uses off-device and
// what the tests drive.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mta-display/subway-sign/model"
)

const (
	// ScreenWidth is the sign's pixel width; alert scrolling completes
	// once the text has traveled ScreenWidth + text width + margin.
	ScreenWidth  = 192
	scrollMargin = 10

	// charAdvance approximates the pixel advance per glyph of the sign
	// font, used to size alert text without rasterizing it.
	charAdvance = 5

	// screenCols is the text-mode row width.
	screenCols = ScreenWidth / charAdvance
)

// TextRenderer renders two text rows per frame to a writer. Only frames
// whose content differs from the previous one are written, so a 30 fps
// loop does not flood the output.
type TextRenderer struct {
	out        io.Writer
	brightness int

	lastAlertWidth int
	lastFrame      string
}

// NewTextRenderer creates a renderer writing frames to out.
func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out, brightness: 100}
}

// RenderFrame draws the top (soonest train) and bottom (alert or
// cycling train) rows.
func (r *TextRenderer) RenderFrame(snap model.DisplaySnapshot, cycleIndex int, flash bool, scrollOffset float64, alert *model.Alert) {
	top := r.trainRow(snap.FirstTrain(), flash)

	var bottom string
	if alert != nil {
		bottom = r.alertRow(*alert, scrollOffset)
	} else {
		cycling := snap.CyclingTrains(cycleIndex + 1)
		bottom = r.trainRow(cycling[cycleIndex], false)
	}

	frame := top + "\n" + bottom + "\n"
	if frame == r.lastFrame {
		return
	}
	r.lastFrame = frame
	fmt.Fprint(r.out, frame)
}

// ScrollCompleteDistance is the travel after which the last rendered
// alert has fully left the screen.
func (r *TextRenderer) ScrollCompleteDistance() int {
	return ScreenWidth + r.lastAlertWidth + scrollMargin
}

// SetBrightness records the brightness; a text sink has nothing to dim.
func (r *TextRenderer) SetBrightness(percent int) {
	r.brightness = percent
}

// trainRow formats one arrival. The arrival flash blanks the time part
// on alternate phases while the train is at zero minutes.
func (r *TextRenderer) trainRow(t model.Train, flash bool) string {
	if t.IsPlaceholder() {
		return pad("--- ---")
	}
	route := t.Route
	if t.Express {
		route += "X"
	}
	eta := fmt.Sprintf("%d min", t.Minutes)
	if t.Minutes == 0 {
		eta = "Now"
		if flash {
			eta = ""
		}
	}
	return pad(fmt.Sprintf("[%s] %s %s", route, t.Destination, eta))
}

// alertRow renders the visible window of the scrolling alert text. The
// text enters from the right edge and exits left.
func (r *TextRenderer) alertRow(a model.Alert, scrollOffset float64) string {
	text := []rune(a.Text)
	r.lastAlertWidth = len(text) * charAdvance

	// Leftmost text pixel sits at ScreenWidth - offset.
	x := ScreenWidth - int(scrollOffset)
	row := make([]rune, screenCols)
	for i := range row {
		row[i] = ' '
	}
	// Only whole cells are drawable: pixels past screenCols*charAdvance
	// belong to no cell.
	for i, ch := range text {
		px := x + i*charAdvance
		if px < 0 || px >= screenCols*charAdvance {
			continue
		}
		row[px/charAdvance] = ch
	}
	return string(row)
}

func pad(s string) string {
	if len(s) > screenCols {
		return s[:screenCols]
	}
	return s + strings.Repeat(" ", screenCols-len(s))
}
