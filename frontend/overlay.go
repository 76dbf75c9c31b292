package frontend

import (
	"fmt"
	"image/color"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/rtts/ialauncher/game"
)

const (
	progressBarWidth  = 300
	progressBarHeight = 12

	// Failed URIs listed before collapsing into "+N more"
	maxErrorLines = 3
)

// overlayLine is one label of an overlay
type overlayLine struct {
	Text  string
	Color color.Color
	Large bool
}

// overlayView describes what an overlay shows. Equal views render the same,
// so the widget tree is only rebuilt when the view changes.
type overlayView struct {
	FullScreen bool // covers the window instead of a bottom panel
	Lines      []overlayLine
	ShowBar    bool
	Fill       float64 // 0..1
	Footer     []overlayLine
}

func (v overlayView) key() string {
	return fmt.Sprintf("%v", v)
}

// loadingView shows catalog scanning progress
func loadingView(scanned, total int) overlayView {
	v := overlayView{
		FullScreen: true,
		Lines:      []overlayLine{{Text: "Loading catalog", Color: Text, Large: true}},
	}
	if total > 0 {
		v.ShowBar = true
		v.Fill = float64(scanned) / float64(total)
		v.Footer = []overlayLine{{Text: fmt.Sprintf("%d / %d", scanned, total), Color: TextSecondary}}
	}
	return v
}

// downloadView shows the transfer state of the active fetch
func downloadView(title string, p game.FetchProgress) overlayView {
	v := overlayView{
		Lines: []overlayLine{{Text: "Downloading " + title, Color: Text}},
	}
	if p.Total == 0 {
		return v
	}
	status := fmt.Sprintf("File %d of %d: %s", p.Index+1, p.Total, FormatBytes(p.Received))
	if p.Size > 0 {
		status += " of " + FormatBytes(p.Size)
		v.ShowBar = true
		v.Fill = float64(p.Received) / float64(p.Size)
	}
	v.Footer = []overlayLine{{Text: status, Color: TextSecondary}}
	return v
}

// failedView lists why a fetch left the entry without a run directory
func failedView(res *game.FetchResult) overlayView {
	v := overlayView{
		Lines: []overlayLine{{Text: "Download failed", Color: Danger}},
	}
	for i, fe := range res.Errors {
		if i >= maxErrorLines {
			v.Lines = append(v.Lines, overlayLine{
				Text:  fmt.Sprintf("+%d more", len(res.Errors)-maxErrorLines),
				Color: TextSecondary,
			})
			break
		}
		v.Lines = append(v.Lines, overlayLine{Text: fe.Err.Error(), Color: TextSecondary})
	}
	if len(res.Errors) == 0 {
		v.Lines = append(v.Lines, overlayLine{Text: "Nothing was staged for this title", Color: TextSecondary})
	}
	v.Footer = []overlayLine{{Text: "Press Esc to go back", Color: Text}}
	return v
}

// startingView is shown while the emulator is being started
func startingView() overlayView {
	return overlayView{
		Lines: []overlayLine{{Text: "Starting DOSBox", Color: Text}},
	}
}

// uiFaces holds the faces handed to ebitenui, which wants a *text.Face
var uiFaces = map[float64]*text.Face{}

func uiFace(size float64) *text.Face {
	if f, ok := uiFaces[size]; ok {
		return f
	}
	f := face(size)
	uiFaces[size] = &f
	return &f
}

// buildOverlay creates the widget tree for v
func buildOverlay(v overlayView, maxWidth int) *ebitenui.UI {
	rootOpts := []widget.ContainerOpt{
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	}
	if v.FullScreen {
		rootOpts = append(rootOpts, widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(Background)))
	}
	root := widget.NewContainer(rootOpts...)

	layoutData := widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionCenter,
		VerticalPosition:   widget.AnchorLayoutPositionCenter,
	}
	var panelOpts []widget.ContainerOpt
	if !v.FullScreen {
		layoutData = widget.AnchorLayoutData{
			HorizontalPosition: widget.AnchorLayoutPositionCenter,
			VerticalPosition:   widget.AnchorLayoutPositionEnd,
			StretchHorizontal:  true,
		}
		panelOpts = append(panelOpts, widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(OverlayBackground)))
	}
	panelOpts = append(panelOpts,
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Padding(widget.NewInsetsSimple(padding)),
			widget.RowLayoutOpts.Spacing(padding/2),
		)),
		widget.ContainerOpts.WidgetOpts(widget.WidgetOpts.LayoutData(layoutData)),
	)
	panel := widget.NewContainer(panelOpts...)

	textWidth := maxWidth - 2*padding
	for _, l := range v.Lines {
		panel.AddChild(overlayLabel(l, textWidth))
	}

	if v.ShowBar {
		panel.AddChild(progressBar(v.Fill))
	}

	for _, l := range v.Footer {
		panel.AddChild(overlayLabel(l, textWidth))
	}

	root.AddChild(panel)
	return &ebitenui.UI{Container: root}
}

func overlayLabel(l overlayLine, maxWidth int) *widget.Text {
	size := float64(fontSize)
	if l.Large {
		size = largeFontSize
	}
	msg := l.Text
	if maxWidth > 0 {
		msg = TruncateToWidth(msg, face(size), float64(maxWidth))
	}
	return widget.NewText(
		widget.TextOpts.Text(msg, uiFace(size), l.Color),
		widget.TextOpts.Position(widget.TextPositionCenter, widget.TextPositionCenter),
		widget.TextOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}),
		),
	)
}

// progressBar is a track container with a fill container sized to fill
func progressBar(fill float64) *widget.Container {
	bg := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(Track)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(progressBarWidth, progressBarHeight),
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}),
		),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
		)),
	)

	fillWidth := int(float64(progressBarWidth) * clamp01(fill))
	if fillWidth < 1 {
		fillWidth = 1
	}
	bg.AddChild(widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(Accent)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(fillWidth, progressBarHeight),
		),
	))
	return bg
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
