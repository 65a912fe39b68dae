package scout

import (
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorRenderer renders a snapshot as vector graphics in world
// centimeters: filled squares for obstacle cells, a stroked polyline
// for the driven path, a circle plus heading tick for the robot, and
// optional dashed grid lines.
type VectorRenderer struct {
	Snap        Snapshot
	Padding     float64 // world cm around the populated bounds
	GridSpacing float64 // grid line spacing in cm; 0 disables
	Resolution  canvas.Resolution
}

// NewVectorRenderer returns a renderer with default settings.
func NewVectorRenderer(snap Snapshot) *VectorRenderer {
	return &VectorRenderer{
		Snap:        snap,
		Padding:     50,
		GridSpacing: 100,
		Resolution:  canvas.DPI(300),
	}
}

// canvasRenderer is satisfied by both the svg and rasterizer backends.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the snapshot as an SVG document.
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, maxX, maxY := r.worldBounds()
	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, maxX, maxY, width, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the vector output and writes a PNG.
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, maxX, maxY := r.worldBounds()
	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, maxX, maxY, width, height)

	// Rasterizer implements image.Image
	return png.Encode(w, rast)
}

// worldBounds is the populated map extent in world cm, always at least
// one cell around the robot.
func (r *VectorRenderer) worldBounds() (minX, minY, maxX, maxY float64) {
	res := r.Snap.Resolution
	b := r.Snap.Bounds
	if r.Snap.CellCount == 0 {
		px, py := r.Snap.Pose.X*res, r.Snap.Pose.Y*res
		return px - res, py - res, px + res, py + res
	}
	return float64(b.MinX) * res, float64(b.MinY) * res,
		float64(b.MaxX) * res, float64(b.MaxY) * res
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, maxX, maxY, width, height float64) {
	res := r.Snap.Resolution

	// World cm to canvas coordinates; canvas origin is bottom-left,
	// same orientation as the world frame.
	toCanvas := func(wx, wy float64) (float64, float64) {
		return wx - minX + r.Padding, wy - minY + r.Padding
	}

	// Background
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	// Grid lines
	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 0.5
		gridStyle.Dashes = []float64{2.0, 2.0}

		for x := math.Floor(minX/r.GridSpacing) * r.GridSpacing; x <= maxX; x += r.GridSpacing {
			gridPath := &canvas.Path{}
			x1, y1 := toCanvas(x, minY)
			x2, y2 := toCanvas(x, maxY)
			gridPath.MoveTo(x1, y1)
			gridPath.LineTo(x2, y2)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
		for y := math.Floor(minY/r.GridSpacing) * r.GridSpacing; y <= maxY; y += r.GridSpacing {
			gridPath := &canvas.Path{}
			x1, y1 := toCanvas(minX, y)
			x2, y2 := toCanvas(maxX, y)
			gridPath.MoveTo(x1, y1)
			gridPath.LineTo(x2, y2)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
	}

	// Obstacle cells
	for gx, col := range r.Snap.Grid {
		for gy, d := range col {
			cellStyle := canvas.DefaultStyle
			cellStyle.Fill = canvas.Paint{Color: distanceColor(d)}
			cellStyle.Stroke = canvas.Paint{Color: canvas.Transparent}

			cx, cy := toCanvas(float64(gx)*res, float64(gy)*res)
			cell := canvas.Rectangle(res, res)
			cell = cell.Translate(cx-res/2, cy-res/2)
			renderer.RenderPath(cell, cellStyle, canvas.Identity)
		}
	}

	// Driven path
	if len(r.Snap.Path) > 1 {
		pathStyle := canvas.DefaultStyle
		pathStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		pathStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		pathStyle.StrokeWidth = 2.0

		cp := &canvas.Path{}
		for i, p := range r.Snap.Path {
			cx, cy := toCanvas(p.X*res, p.Y*res)
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		renderer.RenderPath(cp, pathStyle, canvas.Identity)
	}

	// Robot marker with heading tick
	rx, ry := toCanvas(r.Snap.Pose.X*res, r.Snap.Pose.Y*res)

	robotStyle := canvas.DefaultStyle
	robotStyle.Fill = canvas.Paint{Color: canvas.Blue}
	robotStyle.Stroke = canvas.Paint{Color: canvas.Black}
	robotStyle.StrokeWidth = 1.0

	robot := canvas.Circle(res * 0.8)
	robot = robot.Translate(rx, ry)
	renderer.RenderPath(robot, robotStyle, canvas.Identity)

	headingStyle := canvas.DefaultStyle
	headingStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	headingStyle.Stroke = canvas.Paint{Color: canvas.Red}
	headingStyle.StrokeWidth = 2.0

	rad := r.Snap.Pose.Heading * math.Pi / 180
	tick := &canvas.Path{}
	tick.MoveTo(rx, ry)
	tick.LineTo(rx+1.2*res*math.Cos(rad), ry+1.2*res*math.Sin(rad))
	renderer.RenderPath(tick, headingStyle, canvas.Identity)
}
