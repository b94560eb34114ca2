// Command path-plot flies a synthetic looping flight through the breadcrumb
// recorder and renders the raw track next to the cleaned return path as a
// PNG, a quick visual check of the simplification and loop pruning.
package main

import (
	"flag"
	"image/color"
	"log"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/driftline/safereturn/internal/breadcrumb"
)

var (
	output    = flag.String("o", "path.png", "Output PNG file")
	maxPoints = flag.Int("points", breadcrumb.DefaultMaxPoints, "Path capacity in points")
	accuracy  = flag.Float64("accuracy", breadcrumb.DefaultAccuracy, "Minimum spacing between stored points, meters")
)

func main() {
	flag.Parse()

	cfg := breadcrumb.DefaultConfig()
	cfg.MaxPoints = *maxPoints
	cfg.Accuracy = *accuracy

	rec, err := breadcrumb.New(cfg)
	if err != nil {
		log.Fatalf("failed to build recorder: %v", err)
	}

	raw := syntheticFlight()
	rec.Reset(raw[0], true)
	for _, p := range raw[1:] {
		rec.Update(p, true)
		// Stand in for the scheduler that advances cleanup between fixes.
		for i := 0; i < 8; i++ {
			rec.AdvanceSimplification()
			rec.AdvancePruning()
		}
	}
	if !rec.IsActive() {
		log.Fatalf("recorder deactivated mid-flight: %s", rec.DeactivationReason())
	}

	for i := 0; i < 10000 && !rec.ThoroughCleanup(); i++ {
		rec.AdvanceSimplification()
		rec.AdvancePruning()
	}

	cleaned := make([]r3.Vector, rec.Len())
	for i := range cleaned {
		cleaned[i] = rec.At(i)
	}
	log.Printf("raw %d points, stored %d after cleanup", len(raw), len(cleaned))

	if err := render(raw, cleaned, *output); err != nil {
		log.Fatalf("failed to render plot: %v", err)
	}
	log.Printf("wrote %s", *output)
}

// syntheticFlight traces an outbound leg, a survey loop that crosses
// itself, and a wiggly segment that simplification should flatten.
func syntheticFlight() []r3.Vector {
	var pts []r3.Vector

	// Outbound, slightly noisy.
	for i := 0; i <= 60; i++ {
		x := float64(i) * 3
		pts = append(pts, r3.Vector{X: x, Y: 0.3 * math.Sin(x/5), Z: -20})
	}

	// Survey loop returning across the outbound track.
	for i := 1; i <= 80; i++ {
		a := float64(i) / 80 * 2 * math.Pi
		pts = append(pts, r3.Vector{
			X: 180 + 50*math.Sin(a),
			Y: 50 - 50*math.Cos(a),
			Z: -20,
		})
	}

	// Zigzag leg onward.
	for i := 1; i <= 40; i++ {
		x := 180 + float64(i)*2.5
		pts = append(pts, r3.Vector{X: x, Y: 2 * math.Sin(x/3), Z: -20})
	}
	return pts
}

func toXYs(pts []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i].X = p.Y // east
		xys[i].Y = p.X // north
	}
	return xys
}

func render(raw, cleaned []r3.Vector, file string) error {
	p := plot.New()
	p.Title.Text = "Breadcrumb cleanup"
	p.X.Label.Text = "east (m)"
	p.Y.Label.Text = "north (m)"

	rawLine, err := plotter.NewLine(toXYs(raw))
	if err != nil {
		return err
	}
	rawLine.Width = vg.Points(1)
	rawLine.Color = color.RGBA{R: 180, G: 180, B: 180, A: 255}
	p.Add(rawLine)
	p.Legend.Add("raw track", rawLine)

	cleanLine, err := plotter.NewLine(toXYs(cleaned))
	if err != nil {
		return err
	}
	cleanLine.Width = vg.Points(2)
	cleanLine.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	p.Add(cleanLine)
	p.Legend.Add("stored path", cleanLine)

	marks, err := plotter.NewScatter(toXYs(cleaned))
	if err != nil {
		return err
	}
	marks.GlyphStyle.Radius = vg.Points(2)
	marks.GlyphStyle.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	p.Add(marks)

	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(10*vg.Inch, 8*vg.Inch, file)
}
