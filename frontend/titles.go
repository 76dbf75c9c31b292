package frontend

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/rtts/ialauncher/game"
)

// titleCache holds the scaled title screen of the entry on display.
// A failed decode is cached too, so it is not retried every frame.
type titleCache struct {
	key string
	img *ebiten.Image
}

// get returns the title screen of e scaled to width x height, or nil when
// the entry has none
func (c *titleCache) get(e *game.Entry, width, height int) *ebiten.Image {
	path, ok := e.TitleScreen()
	if !ok {
		return nil
	}
	key := fmt.Sprintf("%s@%dx%d", path, width, height)
	if key == c.key {
		return c.img
	}

	if c.img != nil {
		c.img.Deallocate()
	}
	c.key, c.img = key, nil

	src, err := decodeImage(path)
	if err != nil {
		slog.Warn("failed to load title screen", "entry", e.Identifier, "path", path, "error", err)
		return nil
	}
	c.img = ScaleImage(src, width, height)
	return c.img
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
