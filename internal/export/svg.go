package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/powerchain/internal/powerchain"
	"github.com/san-kum/powerchain/internal/storage"
	"github.com/san-kum/powerchain/internal/viz"
)

// palette cycles through line colours for the parts of a speed chart.
var palette = []string{"#e0a040", "#40a0e0", "#60c060", "#d05050", "#b070d0", "#c0c0c0"}

// CanvasToSVG converts a braille canvas to SVG, one dot per set pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	pw, ph := canvas.PixelSize()
	width := float64(pw) * scale
	height := float64(ph) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#e0a040">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// NetworkToSVG renders the current state of net the way the live view draws
// it.
func NetworkToSVG(net *powerchain.Network, width, height int, scale float64) string {
	c := viz.NewCanvas(width, height)
	viz.Render(net, c)
	return CanvasToSVG(c, scale)
}

// SeriesToSVG draws the speed history of the chosen parts (all of them when
// parts is empty) as one polyline each, with a zero line.
func SeriesToSVG(series *storage.Series, parts []string, width, height int) string {
	if series == nil || len(series.Times) < 2 {
		return ""
	}
	if len(parts) == 0 {
		parts = series.Parts
	}

	var columns [][]float64
	var names []string
	for _, p := range parts {
		if col := series.Column(p); col != nil {
			columns = append(columns, col)
			names = append(names, p)
		}
	}
	if len(columns) == 0 {
		return ""
	}

	minX, maxX := series.Times[0], series.Times[len(series.Times)-1]
	minY, maxY := 0.0, 0.0
	for _, col := range columns {
		for _, v := range col {
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	px := func(t float64) float64 { return (t - minX) / rangeX * float64(width) }
	py := func(v float64) float64 { return float64(height) - (v-minY)/rangeY*float64(height) }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#404040" stroke-width="1"/>
`, width, height, width, height, py(0), width, py(0))

	for i, col := range columns {
		color := palette[i%len(palette)]
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for j, v := range col {
			if j > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", px(series.Times[j]), py(v))
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, "<text x=\"4\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n",
			14*(i+1), color, names[i])
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteFile writes svg to path, or to stdout when path is "-".
func WriteFile(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("nothing to export")
	}
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := io.WriteString(w, svg)
	return err
}
