package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"icoplanet/core"
	"icoplanet/mesh"
)

func solidMesh(t *testing.T, level int, c core.RGBA) *core.FinalMesh {
	t.Helper()
	base, err := core.NewIcosphereCache(level).BaseMesh(level)
	if err != nil {
		t.Fatal(err)
	}
	colors := make([]core.RGBA, len(base.Vertices))
	for i := range colors {
		colors[i] = c
	}
	m, err := mesh.Assemble(base.Vertices, base.Triangles, colors)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func redFraction(img image.Image) float64 {
	b := img.Bounds()
	red := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > 128 && c.G < 64 && c.B < 64 {
				red++
			}
		}
	}
	return float64(red) / float64(b.Dx()*b.Dy())
}

func TestColorMapCoversMap(t *testing.T) {
	m := solidMesh(t, 2, core.RGBA{R: 1, A: 1})
	opts := DefaultOptions()
	opts.Width, opts.Height = 256, 128

	img, err := ColorMap(m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(256, 128) {
		t.Fatalf("size = %v", got)
	}
	if f := redFraction(img); f < 0.9 {
		t.Errorf("red coverage = %.3f, want >= 0.9", f)
	}
}

func TestHeightMapGrey(t *testing.T) {
	m := solidMesh(t, 1, core.RGBA{A: 1})
	heights := make([]float32, len(m.Positions))
	for i := range heights {
		heights[i] = 0.5
	}
	opts := Options{Width: 64, Height: 32, Background: core.RGBA{A: 1}}

	img, err := HeightMap(m, heights, opts)
	if err != nil {
		t.Fatal(err)
	}
	c := color.NRGBAModel.Convert(img.At(40, 16)).(color.NRGBA)
	if c.R < 60 || c.R > 160 || c.R != c.G || c.G != c.B {
		t.Errorf("pixel = %v, want mid grey", c)
	}
}

func TestRasterErrors(t *testing.T) {
	m := solidMesh(t, 0, core.RGBA{A: 1})
	bad := *m
	bad.Triangles = []core.Triangle{{0, 1, 99}}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"nil mesh", func() error { _, err := ColorMap(nil, DefaultOptions()); return err }, core.ErrMeshIntegrity},
		{"zero size", func() error { _, err := ColorMap(m, Options{}); return err }, core.ErrInvalidParameter},
		{"bad index", func() error { _, err := ColorMap(&bad, DefaultOptions()); return err }, core.ErrMeshIntegrity},
		{"height count", func() error { _, err := HeightMap(m, []float32{1}, DefaultOptions()); return err }, core.ErrMeshIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{1024, 512, 256, 256, 128},
		{300, 600, 100, 50, 100},
		{64, 32, 256, 64, 32},
		{64, 32, 0, 64, 32},
	}
	for _, tt := range tests {
		img := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
		got := Thumbnail(img, tt.limit).Bounds().Size()
		if got != image.Pt(tt.wantW, tt.wantH) {
			t.Errorf("Thumbnail(%dx%d, %d) = %v, want %dx%d", tt.w, tt.h, tt.limit, got, tt.wantW, tt.wantH)
		}
	}
}

func TestEncodeWebP(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := EncodeWebP(&buf, img); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
		t.Errorf("output is not a RIFF/WEBP container")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))

	pngPath := filepath.Join(dir, "out", "planet.png")
	if err := Save(pngPath, img); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("decoded bounds = %v", decoded.Bounds())
	}

	if err := Save(filepath.Join(dir, "planet.webp"), img); err != nil {
		t.Fatal(err)
	}
	tgaPath := filepath.Join(dir, "planet.tga")
	if err := Save(tgaPath, img); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(tgaPath); err != nil || info.Size() <= 18 {
		t.Errorf("tga file missing or header only: %v", err)
	}
	if err := Save(filepath.Join(dir, "planet.bmp"), img); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
