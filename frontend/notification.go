package frontend

import (
	"image"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Notification displays temporary messages on screen
type Notification struct {
	mu        sync.Mutex
	message   string
	isError   bool
	startTime time.Time
	duration  time.Duration

	// Reused between frames
	bg *ebiten.Image
}

// NewNotification creates a new notification
func NewNotification() *Notification {
	return &Notification{}
}

// Show displays a message for the given duration
func (n *Notification) Show(message string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = message
	n.isError = false
	n.startTime = time.Now()
	n.duration = duration
}

// ShowDefault displays a message for 3 seconds
func (n *Notification) ShowDefault(message string) {
	n.Show(message, 3*time.Second)
}

// ShowError displays an error message for 6 seconds
func (n *Notification) ShowError(message string) {
	n.Show(message, 6*time.Second)
	n.mu.Lock()
	n.isError = true
	n.mu.Unlock()
}

// IsVisible returns whether the notification is currently visible
func (n *Notification) IsVisible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message != "" && time.Since(n.startTime) < n.duration
}

// Draw renders the notification in the bottom-right corner
func (n *Notification) Draw(screen *ebiten.Image) {
	n.mu.Lock()
	if n.message == "" || time.Since(n.startTime) >= n.duration {
		n.mu.Unlock()
		return
	}
	message, isError := n.message, n.isError
	n.mu.Unlock()

	bounds := screen.Bounds()
	f := face(fontSize)
	message = TruncateToWidth(message, f, float64(bounds.Dx()-4*padding))
	textWidth, textHeight := text.Measure(message, f, 0)

	bgWidth := int(textWidth) + padding*2
	bgHeight := int(textHeight) + padding*2
	bgX := bounds.Dx() - bgWidth - padding
	bgY := bounds.Dy() - bgHeight - padding

	if n.bg == nil || n.bg.Bounds().Dx() < bgWidth || n.bg.Bounds().Dy() < bgHeight {
		n.bg = ebiten.NewImage(bgWidth, bgHeight)
	}
	n.bg.Clear()
	n.bg.Fill(OverlayBackground)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(bgX), float64(bgY))
	screen.DrawImage(n.bg.SubImage(image.Rect(0, 0, bgWidth, bgHeight)).(*ebiten.Image), opts)

	textOpts := &text.DrawOptions{}
	textOpts.GeoM.Translate(float64(bgX+padding), float64(bgY+padding))
	if isError {
		textOpts.ColorScale.ScaleWithColor(Danger)
	} else {
		textOpts.ColorScale.ScaleWithColor(Text)
	}
	text.Draw(screen, message, f, textOpts)
}
