package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const upperHalf = "▀"

// flagRenderer draws images as truecolor half-block cells, two pixel rows per
// terminal line. The last image is cached; flags only change between guesses.
type flagRenderer struct {
	last image.Image
	out  string
}

func (r *flagRenderer) render(img image.Image) string {
	if img == nil {
		return ""
	}
	if img == r.last {
		return r.out
	}
	r.last, r.out = img, halfBlocks(img)
	return r.out
}

func halfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			st := lipgloss.NewStyle().Foreground(hex(img.At(x, y)))
			if y+1 < b.Max.Y {
				st = st.Background(hex(img.At(x, y+1)))
			}
			sb.WriteString(st.Render(upperHalf))
		}
		if y+2 < b.Max.Y {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hex(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
