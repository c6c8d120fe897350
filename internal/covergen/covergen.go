// Package covergen renders placeholder cover images for articles that
// arrive without one. Covers are branded per category and rendered once,
// then served from an in-memory cache.
package covergen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/fogleman/gg"
)

const (
	// Width and Height match the standard social card size.
	Width  = 1200
	Height = 630
)

// categoryColors are the accent colors used on the left bar and label.
var categoryColors = map[string]string{
	"startups":     "#4a9eff",
	"funding":      "#2ecc71",
	"ai":           "#9b59b6",
	"fintech":      "#f39c12",
	"case-studies": "#e74c3c",
	"blockchain":   "#1abc9c",
	"climate-tech": "#27ae60",
}

const defaultAccent = "#4a9eff"

// Generator renders and caches cover PNGs keyed by category.
type Generator struct {
	mu    sync.Mutex
	cache map[string][]byte

	fontPath string
}

// New creates a Generator. fontPath may be empty, in which case gg's
// built-in face is used.
func New(fontPath string) *Generator {
	return &Generator{
		cache:    make(map[string][]byte),
		fontPath: fontPath,
	}
}

// Cover returns the PNG bytes for a category cover, rendering it on
// first use. Unknown categories get the default accent color.
func (g *Generator) Cover(category string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if img, ok := g.cache[category]; ok {
		return img, nil
	}

	img, err := g.render(category)
	if err != nil {
		return nil, fmt.Errorf("render cover for %q: %w", category, err)
	}
	g.cache[category] = img
	return img, nil
}

func (g *Generator) render(category string) ([]byte, error) {
	dc := gg.NewContext(Width, Height)

	drawBackground(dc)

	accent := categoryColors[category]
	if accent == "" {
		accent = defaultAccent
	}

	// Accent bar down the left edge.
	dc.SetColor(hexColor(accent))
	dc.DrawRectangle(0, 0, 10, Height)
	dc.Fill()

	// Brand mark.
	g.loadFont(dc, 36)
	dc.SetColor(hexColor("#8888aa"))
	dc.DrawString("PULSEWIRE", 60, 90)

	// Category label, centred.
	g.loadFont(dc, 72)
	dc.SetColor(color.White)
	label := displayLabel(category)
	dc.DrawStringAnchored(label, Width/2, Height/2, 0.5, 0.5)

	// Underline beneath the label.
	tw, _ := dc.MeasureString(label)
	dc.SetColor(hexColor(accent))
	dc.DrawRectangle(Width/2-tw/2, Height/2+50, tw, 6)
	dc.Fill()

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) loadFont(dc *gg.Context, size float64) {
	if g.fontPath == "" {
		return
	}
	// Best effort; gg falls back to its basic face.
	_ = dc.LoadFontFace(g.fontPath, size)
}

func drawBackground(dc *gg.Context) {
	// Deep vertical gradient.
	for y := 0; y < Height; y++ {
		t := float64(y) / Height
		cr := 10 + t*5
		cg := 10 + t*5
		cb := 26 + t*14
		dc.SetColor(color.RGBA{uint8(cr), uint8(cg), uint8(cb), 255})
		dc.DrawRectangle(0, float64(y), Width, 1)
		dc.Fill()
	}
}

func displayLabel(category string) string {
	if category == "" {
		return "Startup Intelligence"
	}
	words := strings.Split(category, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "ai" {
			words[i] = "AI"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func hexColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	var cr, cg, cb uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &cr, &cg, &cb)
	return color.RGBA{cr, cg, cb, 255}
}
