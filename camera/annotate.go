package camera

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/stefanpenner/intersection-control/vehicle"
)

// annotate burns a per-class count overlay into frame without needing
// a font rendering library: each class with a non-zero count gets a
// fixed-height colored bar in the top-left corner, its length
// proportional to its count (10px per vehicle, capped at 120px), so an operator looking at the stream can see at a glance
// which classes are driving the weighted total.
func annotate(frame image.Image, counts map[vehicle.Class]int) image.Image {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	classes := make([]vehicle.Class, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	const barHeight = 6
	const barGap = 2
	const maxBarWidth = 120
	for i, class := range classes {
		n := counts[class]
		if n <= 0 {
			continue
		}
		width := n * 10
		if width > maxBarWidth {
			width = maxBarWidth
		}
		y0 := b.Min.Y + i*(barHeight+barGap)
		y1 := y0 + barHeight
		if y1 > b.Max.Y {
			break
		}
		rect := image.Rect(b.Min.X, y0, b.Min.X+width, y1)
		draw.Draw(out, rect, &image.Uniform{C: barColor(class)}, image.Point{}, draw.Src)
	}
	return out
}

// annotateDisabled overlays a hatched amber band across the top of a
// raw frame so anyone watching the stream can see detection is
// switched off, without needing text rendering.
func annotateDisabled(frame image.Image) image.Image {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	const bandHeight = 14
	amber := color.RGBA{R: 255, G: 170, A: 255}
	dark := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	y1 := b.Min.Y + bandHeight
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	for y := b.Min.Y; y < y1; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if (x+y)/8%2 == 0 {
				out.Set(x, y, amber)
			} else {
				out.Set(x, y, dark)
			}
		}
	}
	return out
}

func barColor(class vehicle.Class) color.Color {
	switch class {
	case vehicle.Ambulance:
		return color.RGBA{R: 255, A: 255}
	case vehicle.Bus:
		return color.RGBA{G: 150, B: 255, A: 255}
	case vehicle.Truck:
		return color.RGBA{R: 255, G: 165, A: 255}
	case vehicle.Mototaxi:
		return color.RGBA{G: 200, B: 100, A: 255}
	default:
		return color.RGBA{G: 255, A: 255}
	}
}
