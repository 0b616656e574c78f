package dream

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/mirrorlake/dreamforge/internal/session"
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// checkTile samples the centre of tile n and compares against want with a
// small tolerance for scaling and jpeg loss.
func checkTile(t *testing.T, strip image.Image, n int, want color.RGBA) {
	t.Helper()
	x := n*tileSize + tileSize/2
	r, g, b, _ := strip.At(x, tileSize/2).RGBA()
	got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}

	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			d = -d
		}
		return d
	}
	if diff(got.R, want.R) > 16 || diff(got.G, want.G) > 16 || diff(got.B, want.B) > 16 {
		t.Errorf("tile %d is %v, want about %v", n, got, want)
	}
}

func TestComposeDimensions(t *testing.T) {
	a := testPNG(t)
	strip, err := compose([][]byte{a, a, a})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	bounds := strip.Bounds()
	if bounds.Dx() != 3*tileSize || bounds.Dy() != tileSize {
		t.Errorf("expected %dx%d, got %dx%d", 3*tileSize, tileSize, bounds.Dx(), bounds.Dy())
	}
}

func TestComposeOrdersTilesLeftToRight(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	strip, err := compose([][]byte{solidPNG(t, red), solidPNG(t, blue)})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	checkTile(t, strip, 0, red)
	checkTile(t, strip, 1, blue)
}

func TestComposeRejectsGarbage(t *testing.T) {
	if _, err := compose([][]byte{[]byte("not an image")}); err == nil {
		t.Error("expected decode error")
	}
}

func TestCombineUploadsStrip(t *testing.T) {
	media := &fakeMedia{imageBytes: testPNG(t), uploadURL: "https://cdn/combined.jpg"}
	svc, _, _ := testService(t, media, DefaultConfig())

	images := []session.Image{
		{URL: "https://cdn/a.jpg", FileName: "a.jpg"},
		{URL: "https://cdn/b.jpg", FileName: "b.jpg"},
	}

	url := svc.Combine(context.Background(), images, "sess1")
	if url != "https://cdn/combined.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if len(media.uploadNames) != 1 || media.uploadNames[0] != "COMBINED_DREAM_sess1.jpg" {
		t.Errorf("unexpected upload names %v", media.uploadNames)
	}
}

// tileMedia serves a distinct image per URL and captures the uploaded strip.
type tileMedia struct {
	byURL    map[string][]byte
	uploaded []byte
}

func (m *tileMedia) Generate(ctx context.Context, prompt, size string) (string, error) {
	return "", nil
}

func (m *tileMedia) Download(ctx context.Context, url string) ([]byte, error) {
	return m.byURL[url], nil
}

func (m *tileMedia) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	m.uploaded = data
	return "https://cdn/combined.jpg", nil
}

func TestCombineKeepsInputOrder(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	media := &tileMedia{byURL: map[string][]byte{
		"https://cdn/red.jpg":  solidPNG(t, red),
		"https://cdn/blue.jpg": solidPNG(t, blue),
	}}
	svc := NewService(media, &fakeQueue{}, session.NewStore(), &fakeRenderer{}, DefaultConfig())

	images := []session.Image{
		{URL: session.Placeholder("pending.jpg"), FileName: "pending.jpg"},
		{URL: "https://cdn/red.jpg", FileName: "red.jpg"},
		{URL: "https://cdn/blue.jpg", FileName: "blue.jpg"},
	}
	if url := svc.Combine(context.Background(), images, "sess1"); url == "" {
		t.Fatal("combine failed")
	}

	strip, err := jpeg.Decode(bytes.NewReader(media.uploaded))
	if err != nil {
		t.Fatalf("decode combined strip: %v", err)
	}
	if strip.Bounds().Dx() != 2*tileSize {
		t.Fatalf("expected two tiles, got width %d", strip.Bounds().Dx())
	}
	checkTile(t, strip, 0, red)
	checkTile(t, strip, 1, blue)
}

func TestCombineSkipsPlaceholders(t *testing.T) {
	media := &fakeMedia{imageBytes: testPNG(t), uploadURL: "u"}
	svc, _, _ := testService(t, media, DefaultConfig())

	images := []session.Image{
		{URL: session.Placeholder("a.jpg"), FileName: "a.jpg"},
	}

	if url := svc.Combine(context.Background(), images, "sess1"); url != "" {
		t.Errorf("expected empty url for all-placeholder session, got %q", url)
	}
	if len(media.uploadNames) != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestCombineEmpty(t *testing.T) {
	media := &fakeMedia{imageBytes: testPNG(t), uploadURL: "u"}
	svc, _, _ := testService(t, media, DefaultConfig())

	if url := svc.Combine(context.Background(), nil, "sess1"); url != "" {
		t.Errorf("expected empty url, got %q", url)
	}
}

func TestCombineFailureYieldsEmpty(t *testing.T) {
	media := &fakeMedia{imageBytes: []byte("garbage"), uploadURL: "u"}
	svc, _, _ := testService(t, media, DefaultConfig())

	images := []session.Image{{URL: "https://cdn/a.jpg", FileName: "a.jpg"}}
	if url := svc.Combine(context.Background(), images, "sess1"); url != "" {
		t.Errorf("expected empty url on decode failure, got %q", url)
	}
}

func TestCombinedStripDecodes(t *testing.T) {
	strip, err := compose([][]byte{testPNG(t)})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, strip, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg, got %s", format)
	}
	if cfg.Width != tileSize || cfg.Height != tileSize {
		t.Errorf("unexpected dimensions %dx%d", cfg.Width, cfg.Height)
	}
}
