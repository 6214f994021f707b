// Package figures assembles the rendered chart files into publication
// panels and provides figure-file discovery over the output directory.
package figures

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"
)

// PanelLayout names the four chart files tiled into the combined figure,
// in reading order: top-left, top-right, bottom-left, bottom-right.
type PanelLayout struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
}

// Composite reads the four chart images and tiles them into a single 2x2
// panel written to outPath. Every tile is resized to the dimensions of the
// largest source image so uneven chart sizes still align.
func Composite(layout PanelLayout, outPath string) error {
	paths := []string{layout.TopLeft, layout.TopRight, layout.BottomLeft, layout.BottomRight}

	tiles := make([]image.Image, len(paths))
	tileW, tileH := 0, 0
	for i, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open panel image %s: %w", path, err)
		}
		tiles[i] = img

		bounds := img.Bounds()
		if bounds.Dx() > tileW {
			tileW = bounds.Dx()
		}
		if bounds.Dy() > tileH {
			tileH = bounds.Dy()
		}
	}

	for i, img := range tiles {
		bounds := img.Bounds()
		if bounds.Dx() != tileW || bounds.Dy() != tileH {
			tiles[i] = imaging.Resize(img, tileW, tileH, imaging.Lanczos)
		}
	}

	canvas := imaging.New(2*tileW, 2*tileH, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	offsets := []image.Point{
		{X: 0, Y: 0},
		{X: tileW, Y: 0},
		{X: 0, Y: tileH},
		{X: tileW, Y: tileH},
	}
	for i, img := range tiles {
		canvas = imaging.Paste(canvas, img, offsets[i])
	}

	if err := imaging.Save(canvas, outPath); err != nil {
		return fmt.Errorf("failed to save combined figure: %w", err)
	}

	slog.Info("composited combined figure",
		slog.String("path", outPath),
		slog.Int("tile_width", tileW),
		slog.Int("tile_height", tileH))

	return nil
}
