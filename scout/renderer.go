package scout

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MapRenderer turns a snapshot into a PNG image. Cells are colored by
// obstacle distance on a red-green ramp (close = green through red as
// distance grows), the robot is a blue dot with a red heading tick, and
// a one-line legend sits in the bottom-left corner.
type MapRenderer struct {
	Snap    Snapshot
	Scale   int // pixels per grid cell
	Padding int // pixels around the populated bounds
}

// NewMapRenderer returns a renderer with default scale and padding.
func NewMapRenderer(snap Snapshot) *MapRenderer {
	return &MapRenderer{Snap: snap, Scale: 20, Padding: 20}
}

// Render draws the snapshot. An empty map still yields a small canvas
// with the robot marker and legend.
func (r *MapRenderer) Render() *image.RGBA {
	b := r.Snap.Bounds
	cols := b.MaxX - b.MinX + 1
	rows := b.MaxY - b.MinY + 1
	if r.Snap.CellCount == 0 {
		cols, rows = 1, 1
	}

	width := cols*r.Scale + 2*r.Padding
	height := rows*r.Scale + 2*r.Padding
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// White background
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	for gx, col := range r.Snap.Grid {
		for gy, d := range col {
			px, py := r.toPixel(float64(gx), float64(gy))
			c := distanceColor(d)
			for dy := 0; dy < r.Scale; dy++ {
				for dx := 0; dx < r.Scale; dx++ {
					img.Set(px+dx-r.Scale/2, py+dy-r.Scale/2, c)
				}
			}
		}
	}

	r.drawPath(img)
	r.drawRobot(img)
	r.drawLegend(img, height)

	return img
}

// SavePNG renders and writes the image to a file.
func (r *MapRenderer) SavePNG(path string) error {
	img := r.Render()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// toPixel maps grid coordinates to image pixels. The Y axis flips so
// that +Y in the world points up on screen.
func (r *MapRenderer) toPixel(gx, gy float64) (int, int) {
	b := r.Snap.Bounds
	px := int((gx-float64(b.MinX))*float64(r.Scale)) + r.Padding
	py := int((float64(b.MaxY)-gy)*float64(r.Scale)) + r.Padding
	return px, py
}

// distanceColor maps an obstacle distance (cm) to the ramp the map
// viewer has always used: near obstacles render green and fade through
// yellow to red as distance grows.
func distanceColor(d float64) color.RGBA {
	intensity := 255 - 2*d
	if intensity < 0 {
		intensity = 0
	}
	i := uint8(intensity)
	return color.RGBA{255 - i, i, 0, 255}
}

func (r *MapRenderer) drawPath(img *image.RGBA) {
	grey := color.RGBA{160, 160, 160, 255}
	for i := 1; i < len(r.Snap.Path); i++ {
		x0, y0 := r.toPixel(r.Snap.Path[i-1].X, r.Snap.Path[i-1].Y)
		x1, y1 := r.toPixel(r.Snap.Path[i].X, r.Snap.Path[i].Y)
		drawLine(img, x0, y0, x1, y1, grey)
	}
}

func (r *MapRenderer) drawRobot(img *image.RGBA) {
	px, py := r.toPixel(r.Snap.Pose.X, r.Snap.Pose.Y)

	blue := color.RGBA{0, 0, 255, 255}
	radius := 8
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.Set(px+dx, py+dy, blue)
			}
		}
	}

	// Heading tick; screen Y grows downward, so the world angle flips.
	rad := r.Snap.Pose.Heading * math.Pi / 180
	hx := px + int(12*math.Cos(rad))
	hy := py - int(12*math.Sin(rad))
	drawLine(img, px, py, hx, hy, color.RGBA{255, 0, 0, 255})
}

func (r *MapRenderer) drawLegend(img *image.RGBA, height int) {
	label := fmt.Sprintf("%d cells  pose (%.1f, %.1f) %.0f°",
		r.Snap.CellCount, r.Snap.Pose.X, r.Snap.Pose.Y, r.Snap.Pose.Heading)
	drawText(img, 5, height-5, label, color.RGBA{60, 60, 60, 255})
}

// drawText renders a label with the fixed 7x13 face.
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// drawLine is a basic Bresenham segment.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
