package render

import (
	"bytes"
	"errors"
	"fmt"
	"gitviewer/internal/models"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"text/template"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	FormatSVG = "svg"
	FormatPNG = "png"

	ContentTypeSVG = "image/svg+xml; charset=utf-8"
	ContentTypePNG = "image/png"

	Width  = 400
	Height = 120

	titleSize       = 16
	titleBaseline   = 25
	countBaseline   = 65
	visitBaseline   = 95
	lastVisitLayout = "Jan 2, 2006"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type ImageRendererInterface interface {
	Render(format string, data *models.ViewData, theme models.Theme, username string) ([]byte, string, error)
}

type ImageRenderer struct {
	svg     *template.Template
	printer *message.Printer
}

type labels struct {
	Title     string
	Count     string
	LastVisit string
}

func (ir *ImageRenderer) labels(data *models.ViewData, username string) labels {
	return labels{
		Title:     username + "'s Profile Views",
		Count:     ir.printer.Sprintf("%d views", data.Count),
		LastVisit: "Last visit: " + data.LastVisit.UTC().Format(lastVisitLayout),
	}
}

func (ir *ImageRenderer) Render(format string, data *models.ViewData, theme models.Theme, username string) ([]byte, string, error) {
	if data == nil {
		data = &models.ViewData{}
	}
	if theme.FontSize == nil {
		theme.FontSize = &models.FontSize{ViewCount: defaultViewCountSize, LastVisit: defaultLastVisitSize}
	}

	switch format {
	case "", FormatSVG:
		out, err := ir.renderSVG(data, theme, username)
		return out, ContentTypeSVG, err
	case FormatPNG:
		out, err := ir.renderPNG(data, theme, username)
		return out, ContentTypePNG, err
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img" aria-label="{{html .Labels.Title}}: {{html .Labels.Count}}">
  <title>{{html .Labels.Title}}: {{html .Labels.Count}}</title>
{{- with .Theme.Background.Gradient}}
  <defs>
    <linearGradient id="bg" gradientTransform="rotate({{.Rotation}} 0.5 0.5)">
      <stop offset="0%" stop-color="{{.Color1}}"/>
      <stop offset="100%" stop-color="{{.Color2}}"/>
    </linearGradient>
  </defs>
  <rect width="{{$.Width}}" height="{{$.Height}}" rx="{{$.Theme.BorderRadius}}" ry="{{$.Theme.BorderRadius}}" fill="url(#bg)"/>
{{- else}}
  <rect width="{{.Width}}" height="{{.Height}}" rx="{{.Theme.BorderRadius}}" ry="{{.Theme.BorderRadius}}" fill="{{.Theme.Background.Color}}"/>
{{- end}}
  <g font-family="Arial, Helvetica, sans-serif" text-anchor="middle">
    <text x="{{.CenterX}}" y="{{.TitleY}}" font-size="{{.TitleSize}}" font-weight="bold" fill="{{.Theme.Colors.ViewCountColor}}">{{html .Labels.Title}}</text>
    <text x="{{.CenterX}}" y="{{.CountY}}" font-size="{{.Theme.FontSize.ViewCount}}" font-weight="bold" fill="{{.Theme.Colors.ViewCountColor}}">{{html .Labels.Count}}</text>
    <text x="{{.CenterX}}" y="{{.VisitY}}" font-size="{{.Theme.FontSize.LastVisit}}" fill="{{.Theme.Colors.LastVisitColor}}">{{html .Labels.LastVisit}}</text>
  </g>
</svg>
`

type svgData struct {
	Width     int
	Height    int
	CenterX   int
	TitleY    int
	CountY    int
	VisitY    int
	TitleSize int
	Theme     models.Theme
	Labels    labels
}

// renderSVG expects theme colors to be validated hex values.
func (ir *ImageRenderer) renderSVG(data *models.ViewData, theme models.Theme, username string) ([]byte, error) {
	if theme.Background.Type == BackgroundSolid {
		theme.Background.Gradient = nil
	}
	var buf bytes.Buffer
	err := ir.svg.Execute(&buf, svgData{
		Width:     Width,
		Height:    Height,
		CenterX:   Width / 2,
		TitleY:    titleBaseline,
		CountY:    countBaseline,
		VisitY:    visitBaseline,
		TitleSize: titleSize,
		Theme:     theme,
		Labels:    ir.labels(data, username),
	})
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}

func (ir *ImageRenderer) renderPNG(data *models.ViewData, theme models.Theme, username string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	paintBackground(img, theme.Background)
	roundCorners(img, theme.BorderRadius)

	text := ir.labels(data, username)
	maxWidth := Width - 2*max(theme.Padding, 0)
	countColor := mustColor(theme.Colors.ViewCountColor, color.RGBA{A: 0xff})
	visitColor := mustColor(theme.Colors.LastVisitColor, color.RGBA{A: 0xff})

	drawText(img, text.Title, titleSize, countColor, titleBaseline, maxWidth)
	drawText(img, text.Count, theme.FontSize.ViewCount, countColor, countBaseline, maxWidth)
	drawText(img, text.LastVisit, theme.FontSize.LastVisit, visitColor, visitBaseline, maxWidth)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}

func paintBackground(img *image.RGBA, bg models.Background) {
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if bg.Type != BackgroundGradient || bg.Gradient == nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(mustColor(bg.Color, white)), image.Point{}, draw.Src)
		return
	}

	from := mustColor(bg.Gradient.Color1, white)
	to := mustColor(bg.Gradient.Color2, white)
	angle := bg.Gradient.Rotation * math.Pi / 180
	dx, dy := math.Cos(angle)*Width, math.Sin(angle)*Height
	length := dx*dx + dy*dy

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			t := 0.0
			if length > 1e-9 {
				t = (float64(x)*dx + float64(y)*dy) / length
			}
			img.SetRGBA(x, y, lerpColor(from, to, math.Min(math.Max(t, 0), 1)))
		}
	}
}

// roundCorners clears the pixels outside a rounded rectangle of radius r.
func roundCorners(img *image.RGBA, r int) {
	r = min(r, Height/2)
	if r <= 0 {
		return
	}
	rf := float64(r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			if math.Hypot(rf-(float64(x)+0.5), rf-(float64(y)+0.5)) <= rf {
				continue
			}
			img.SetRGBA(x, y, color.RGBA{})
			img.SetRGBA(Width-1-x, y, color.RGBA{})
			img.SetRGBA(x, Height-1-y, color.RGBA{})
			img.SetRGBA(Width-1-x, Height-1-y, color.RGBA{})
		}
	}
}

// drawText renders s with the fixed 7x13 face, scaled to size pixels and
// centered horizontally with its baseline at baseline.
func drawText(dst *image.RGBA, s string, size int, c color.RGBA, baseline, maxWidth int) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Height
	if w == 0 || size <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	scale := float64(size) / float64(h)
	if maxWidth > 0 && float64(w)*scale > float64(maxWidth) {
		scale = float64(maxWidth) / float64(w)
	}
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	ascent := int(math.Round(float64(face.Ascent) * scale))

	x0 := (Width - sw) / 2
	y0 := baseline - ascent
	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+sw, y0+sh), glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

func NewImageRenderer() ImageRendererInterface {
	return &ImageRenderer{
		svg:     template.Must(template.New("counter").Parse(svgTemplate)),
		printer: message.NewPrinter(language.English),
	}
}
