package frontend

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/color"
	"image/draw"
	"log"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

// Colors
var (
	Background        = color.RGBA{0x10, 0x10, 0x14, 0xff}
	Text              = color.RGBA{0xe8, 0xe8, 0xe8, 0xff}
	TextSecondary     = color.RGBA{0x9a, 0x9a, 0xa4, 0xff}
	Accent            = color.RGBA{0x4f, 0x8c, 0xd8, 0xff}
	Danger            = color.RGBA{0xd8, 0x50, 0x4f, 0xff}
	Track             = color.RGBA{0x30, 0x30, 0x38, 0xff}
	OverlayBackground = color.RGBA{0x00, 0x00, 0x00, 0xb0}
)

const (
	fontSize      = 20
	largeFontSize = 40
	padding       = 16
)

var (
	fontSource *text.GoTextFaceSource
	faces      = map[float64]*text.GoTextFace{}
)

// loadFontSource loads goregular.TTF once
func loadFontSource() *text.GoTextFaceSource {
	if fontSource == nil {
		source, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
		if err != nil {
			log.Printf("Failed to load font source: %v", err)
			return nil
		}
		fontSource = source
	}
	return fontSource
}

// face returns a cached font face of the given size
func face(size float64) text.Face {
	if f, ok := faces[size]; ok {
		return f
	}
	f := &text.GoTextFace{Source: loadFontSource(), Size: size}
	faces[size] = f
	return f
}

// fitSize returns the largest size with the source aspect ratio that fits
// within maxWidth x maxHeight
func fitSize(srcWidth, srcHeight, maxWidth, maxHeight int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return 1, 1
	}
	scaleX := float64(maxWidth) / float64(srcWidth)
	scaleY := float64(maxHeight) / float64(srcHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	w := int(float64(srcWidth) * scale)
	h := int(float64(srcHeight) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ScaleImage scales an image to fit within maxWidth x maxHeight while
// preserving aspect ratio. Scaling is done on the CPU so only the result
// becomes a GPU texture.
func ScaleImage(src goimage.Image, maxWidth, maxHeight int) *ebiten.Image {
	bounds := src.Bounds()
	w, h := fitSize(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dstRect := goimage.Rect(0, 0, w, h)
	scaled := goimage.NewRGBA(dstRect)
	// Title screens are low resolution pixel art
	xdraw.NearestNeighbor.Scale(scaled, dstRect, src, bounds, draw.Over, nil)
	return ebiten.NewImageFromImage(scaled)
}

// TruncateToWidth truncates s with an ellipsis so it fits maxWidth pixels.
func TruncateToWidth(s string, f text.Face, maxWidth float64) string {
	if w, _ := text.Measure(s, f, 0); w <= maxWidth {
		return s
	}
	const ellipsis = "..."
	lo, hi, best := 0, utf8.RuneCountInString(s), 0
	for lo <= hi {
		mid := (lo + hi) / 2
		cw, _ := text.Measure(truncateRunes(s, mid)+ellipsis, f, 0)
		if cw <= maxWidth {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return truncateRunes(s, best) + ellipsis
}

// truncateRunes returns the first n runes of s
func truncateRunes(s string, n int) string {
	i := 0
	for j := 0; j < n; j++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 {
			break
		}
		i += size
	}
	return s[:i]
}

// FormatBytes renders a byte count for the download overlay
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// drawText draws s centered horizontally at y
func drawText(screen *ebiten.Image, s string, size float64, y float64, clr color.Color) {
	f := face(size)
	s = TruncateToWidth(s, f, float64(screen.Bounds().Dx()-2*padding))
	opts := &text.DrawOptions{}
	opts.GeoM.Translate(float64(screen.Bounds().Dx())/2, y)
	opts.PrimaryAlign = text.AlignCenter
	opts.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, f, opts)
}
