package render

import (
	"strings"
	"testing"

	"github.com/mta-display/subway-sign/model"
)

func snapshot() model.DisplaySnapshot {
	return model.DisplaySnapshot{Trains: []model.Train{
		{Route: "6", Destination: "Pelham Bay Park", Minutes: 0},
		{Route: "6", Destination: "Brooklyn Bridge-City Hall", Minutes: 4},
	}}
}

func TestRenderFrame_TopRowShowsFirstTrain(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)

	r.RenderFrame(snapshot(), 0, false, 0, nil)
	frame := out.String()
	if !strings.Contains(frame, "[6] Pelham Bay Park Now") {
		t.Errorf("top row missing arriving train:\n%s", frame)
	}
}

func TestRenderFrame_FlashBlanksArrivalTime(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)

	r.RenderFrame(snapshot(), 0, true, 0, nil)
	frame := out.String()
	if strings.Contains(frame, "Now") {
		t.Errorf("flash phase should blank the arrival text:\n%s", frame)
	}
	if !strings.Contains(frame, "Pelham Bay Park") {
		t.Errorf("destination must stay visible during flash:\n%s", frame)
	}
}

func TestRenderFrame_BottomRowCyclesTrains(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)

	r.RenderFrame(snapshot(), 0, false, 0, nil)
	if !strings.Contains(out.String(), "Brooklyn Bridge-City Hall") {
		t.Errorf("cycle slot 0 should show the second train:\n%s", out.String())
	}

	out.Reset()
	r.lastFrame = ""
	r.RenderFrame(snapshot(), 1, false, 0, nil)
	if !strings.Contains(out.String(), "---") {
		t.Errorf("cycle slot past known trains should show a placeholder:\n%s", out.String())
	}
}

func TestRenderFrame_ExpressMarker(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)
	snap := model.DisplaySnapshot{Trains: []model.Train{
		{Route: "6", Destination: "Pelham Bay Park", Minutes: 3, Express: true},
	}}
	r.RenderFrame(snap, 0, false, 0, nil)
	if !strings.Contains(out.String(), "[6X]") {
		t.Errorf("express trains should carry the X marker:\n%s", out.String())
	}
}

func TestRenderFrame_SkipsUnchangedFrames(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)

	r.RenderFrame(snapshot(), 0, false, 0, nil)
	first := out.Len()
	r.RenderFrame(snapshot(), 0, false, 0, nil)
	if out.Len() != first {
		t.Error("identical frames should not be re-written")
	}
}

func TestScrollCompleteDistance(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)

	alert := model.NewAlert("a1", "Delays on the 6", 1, "6")
	r.RenderFrame(snapshot(), 0, false, 0, &alert)

	want := ScreenWidth + len(alert.Text)*charAdvance + scrollMargin
	if got := r.ScrollCompleteDistance(); got != want {
		t.Errorf("scroll complete distance = %d, want %d", got, want)
	}
}

func TestAlertRow_ScrollsInFromRight(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)
	alert := model.NewAlert("a1", "DELAY", 1, "6")

	// Offset 0: text still entirely off the right edge.
	r.RenderFrame(snapshot(), 0, false, 0, &alert)
	if strings.Contains(out.String(), "DELAY") {
		t.Errorf("alert should start off-screen:\n%s", out.String())
	}

	// Scrolled in far enough to be fully visible.
	out.Reset()
	r.lastFrame = ""
	r.RenderFrame(snapshot(), 0, false, float64(ScreenWidth/2), &alert)
	if !strings.Contains(out.String(), "DELAY") {
		t.Errorf("alert should be visible mid-scroll:\n%s", out.String())
	}
}

// The first alert frame arrives at offset 2 (one scroll step), putting
// the leading glyph right at the screen's edge. Rendering there must
// not fault.
func TestAlertRow_FirstFrameAtScreenEdge(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)
	alert := model.NewAlert("a1", "Delays on the 6", 1, "6")

	r.RenderFrame(snapshot(), 0, false, 2, &alert)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two rows, got %d", len(lines))
	}
	if len(lines[1]) != screenCols {
		t.Errorf("bottom row should stay %d cells wide, got %d", screenCols, len(lines[1]))
	}
}

// Every offset from entry to completion must render cleanly; glyphs
// straddling either edge are clipped, not drawn out of bounds.
func TestAlertRow_FullScrollSweep(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)
	alert := model.NewAlert("a1", "DELAY", 1, "6")

	// Prime the width cache so the sweep covers the real distance.
	r.RenderFrame(snapshot(), 0, false, 0, &alert)

	seen := false
	for offset := 0; offset <= r.ScrollCompleteDistance(); offset += 2 {
		r.lastFrame = ""
		out.Reset()
		r.RenderFrame(snapshot(), 0, false, float64(offset), &alert)
		if strings.Contains(out.String(), "DELAY") {
			seen = true
		}
	}
	if !seen {
		t.Error("alert text never became visible during the scroll")
	}
}

func TestAlertRow_NonASCIIText(t *testing.T) {
	var out strings.Builder
	r := NewTextRenderer(&out)
	alert := model.NewAlert("a1", "Retraso señal — vía 2", 1, "6")

	r.RenderFrame(snapshot(), 0, false, float64(ScreenWidth/2), &alert)

	want := ScreenWidth + len([]rune(alert.Text))*charAdvance + scrollMargin
	if got := r.ScrollCompleteDistance(); got != want {
		t.Errorf("scroll distance must count runes, not bytes: got %d, want %d", got, want)
	}
	if !strings.Contains(out.String(), "señal") {
		t.Errorf("non-ASCII glyphs should render intact:\n%s", out.String())
	}
}
