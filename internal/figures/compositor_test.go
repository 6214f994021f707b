package figures

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTile writes a solid-color PNG of the given size.
func writeTile(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := imaging.New(w, h, c)
	require.NoError(t, imaging.Save(img, path))
}

func TestComposite(t *testing.T) {
	dir := t.TempDir()
	layout := PanelLayout{
		TopLeft:     filepath.Join(dir, "a.png"),
		TopRight:    filepath.Join(dir, "b.png"),
		BottomLeft:  filepath.Join(dir, "c.png"),
		BottomRight: filepath.Join(dir, "d.png"),
	}
	writeTile(t, layout.TopLeft, 40, 30, color.NRGBA{R: 0xff, A: 0xff})
	writeTile(t, layout.TopRight, 40, 30, color.NRGBA{G: 0xff, A: 0xff})
	writeTile(t, layout.BottomLeft, 40, 30, color.NRGBA{B: 0xff, A: 0xff})
	writeTile(t, layout.BottomRight, 40, 30, color.NRGBA{R: 0xff, G: 0xff, A: 0xff})

	outPath := filepath.Join(dir, "combined.png")
	require.NoError(t, Composite(layout, outPath))

	combined, err := imaging.Open(outPath)
	require.NoError(t, err)
	assert.Equal(t, 80, combined.Bounds().Dx())
	assert.Equal(t, 60, combined.Bounds().Dy())

	// Each quadrant keeps its source panel's color.
	quadrants := []struct {
		at   image.Point
		want color.NRGBA
	}{
		{image.Point{X: 10, Y: 10}, color.NRGBA{R: 0xff, A: 0xff}},
		{image.Point{X: 50, Y: 10}, color.NRGBA{G: 0xff, A: 0xff}},
		{image.Point{X: 10, Y: 40}, color.NRGBA{B: 0xff, A: 0xff}},
		{image.Point{X: 50, Y: 40}, color.NRGBA{R: 0xff, G: 0xff, A: 0xff}},
	}
	for _, q := range quadrants {
		r, g, b, _ := combined.At(q.at.X, q.at.Y).RGBA()
		assert.Equal(t, uint32(q.want.R)*0x101, r)
		assert.Equal(t, uint32(q.want.G)*0x101, g)
		assert.Equal(t, uint32(q.want.B)*0x101, b)
	}
}

func TestComposite_ResizesUnevenPanels(t *testing.T) {
	dir := t.TempDir()
	layout := PanelLayout{
		TopLeft:     filepath.Join(dir, "a.png"),
		TopRight:    filepath.Join(dir, "b.png"),
		BottomLeft:  filepath.Join(dir, "c.png"),
		BottomRight: filepath.Join(dir, "d.png"),
	}
	// One oversized panel sets the tile dimensions for all four.
	writeTile(t, layout.TopLeft, 100, 80, color.NRGBA{R: 0xff, A: 0xff})
	writeTile(t, layout.TopRight, 40, 30, color.NRGBA{G: 0xff, A: 0xff})
	writeTile(t, layout.BottomLeft, 40, 30, color.NRGBA{B: 0xff, A: 0xff})
	writeTile(t, layout.BottomRight, 40, 30, color.NRGBA{A: 0xff})

	outPath := filepath.Join(dir, "combined.png")
	require.NoError(t, Composite(layout, outPath))

	combined, err := imaging.Open(outPath)
	require.NoError(t, err)
	assert.Equal(t, 200, combined.Bounds().Dx())
	assert.Equal(t, 160, combined.Bounds().Dy())
}

func TestComposite_MissingPanel(t *testing.T) {
	dir := t.TempDir()
	layout := PanelLayout{
		TopLeft:     filepath.Join(dir, "a.png"),
		TopRight:    filepath.Join(dir, "missing.png"),
		BottomLeft:  filepath.Join(dir, "c.png"),
		BottomRight: filepath.Join(dir, "d.png"),
	}
	writeTile(t, layout.TopLeft, 10, 10, color.NRGBA{A: 0xff})
	writeTile(t, layout.BottomLeft, 10, 10, color.NRGBA{A: 0xff})
	writeTile(t, layout.BottomRight, 10, 10, color.NRGBA{A: 0xff})

	err := Composite(layout, filepath.Join(dir, "combined.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.png")
}

func TestDiscovery_FindPNGFiles(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, filepath.Join(dir, "radar.png"), 8, 8, color.NRGBA{A: 0xff})
	writeTile(t, filepath.Join(dir, "bars.PNG"), 8, 8, color.NRGBA{A: 0xff})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	d := NewDiscovery(dir)
	files, err := d.FindPNGFiles()
	require.NoError(t, err)
	require.Len(t, files, 2, "case-insensitive extension match, non-PNG entries skipped")
	for _, f := range files {
		assert.Positive(t, f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
}

func TestDiscovery_FindPNGFiles_MissingDir(t *testing.T) {
	d := NewDiscovery(filepath.Join(t.TempDir(), "nowhere"))
	_, err := d.FindPNGFiles()
	assert.Error(t, err)
}

func TestDiscovery_RequireFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTile(t, good, 8, 8, color.NRGBA{A: 0xff})
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	d := NewDiscovery(dir)

	t.Run("all present", func(t *testing.T) {
		assert.NoError(t, d.RequireFiles(good))
	})

	t.Run("missing file", func(t *testing.T) {
		err := d.RequireFiles(good, filepath.Join(dir, "gone.png"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("empty file", func(t *testing.T) {
		err := d.RequireFiles(empty)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}

// A run with the default base directory hands Discovery paths that are
// relative to the working directory and already include the figures
// directory. They must be checked as given, not re-rooted onto the
// discovery root.
func TestDiscovery_RelativeBaseDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	figDir := filepath.Join("outputs", "figures")
	require.NoError(t, os.MkdirAll(figDir, 0o755))
	writeTile(t, filepath.Join(figDir, "5XSTS.png"), 8, 8, color.NRGBA{A: 0xff})
	writeTile(t, filepath.Join(figDir, "6mwt.png"), 8, 8, color.NRGBA{A: 0xff})

	d := NewDiscovery(figDir)

	assert.NoError(t, d.RequireFiles(
		filepath.Join(figDir, "5XSTS.png"),
		filepath.Join(figDir, "6mwt.png"),
	))

	files, err := d.FindPNGFiles()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
