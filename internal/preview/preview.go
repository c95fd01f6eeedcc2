// Package preview renders step screenshots into a small looping GIF, a
// quick artifact to eyeball before opening the full video.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"sort"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const (
	defaultMaxWidth   = 640
	defaultFrameDelay = 800 * time.Millisecond
	// sampling every pixel buys nothing for palette ranking
	paletteSampleStep = 4
)

// Options configures the preview strip.
type Options struct {
	MaxWidth   uint          // output width; 0 = 640
	FrameDelay time.Duration // per-frame hold; 0 = 800ms
}

// Write renders encoded screenshots (PNG or JPEG) into a looping GIF at
// path, one frame per step. The palette comes from the first frame,
// which holds up well for UI captures where the theme barely changes.
func Write(path string, frames [][]byte, opts Options) error {
	if len(frames) == 0 {
		return fmt.Errorf("preview: no frames")
	}
	imgs := make([]image.Image, 0, len(frames))
	for i, data := range frames {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("preview: decode frame %d: %w", i, err)
		}
		imgs = append(imgs, img)
	}

	g := build(imgs, opts)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, g); err != nil {
		f.Close()
		return fmt.Errorf("preview: encode: %w", err)
	}
	return f.Close()
}

func build(imgs []image.Image, opts Options) *gif.GIF {
	maxWidth := opts.MaxWidth
	if maxWidth == 0 {
		maxWidth = defaultMaxWidth
	}
	delay := opts.FrameDelay
	if delay <= 0 {
		delay = defaultFrameDelay
	}
	// gif delays count hundredths of a second
	hundredths := int(delay / (10 * time.Millisecond))
	if hundredths < 1 {
		hundredths = 1
	}

	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(imgs)),
		Delay:     make([]int, len(imgs)),
		LoopCount: 0, // loop forever
	}
	palette := paletteFor(imgs[0])
	for i, img := range imgs {
		scaled := shrink(img, maxWidth)
		pal := image.NewPaletted(scaled.Bounds(), palette)
		draw.FloydSteinberg.Draw(pal, scaled.Bounds(), scaled, image.Point{})
		out.Image[i] = pal
		out.Delay[i] = hundredths
	}
	return out
}

// shrink caps the frame width, keeping aspect ratio. Frames already small
// enough pass through untouched.
func shrink(img image.Image, maxWidth uint) image.Image {
	b := img.Bounds()
	if uint(b.Dx()) <= maxWidth {
		return img
	}
	h := uint(float64(maxWidth) * float64(b.Dy()) / float64(b.Dx()))
	return resize.Resize(maxWidth, h, img, resize.Lanczos3)
}

// paletteFor ranks sampled colors by frequency and keeps the top 256,
// padding with grayscale when the frame uses fewer.
func paletteFor(img image.Image) color.Palette {
	b := img.Bounds()
	counts := make(map[color.RGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y += paletteSampleStep {
		for x := b.Min.X; x < b.Max.X; x += paletteSampleStep {
			r, g, bl, a := img.At(x, y).RGBA()
			c := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}
			counts[c]++
		}
	}

	type freq struct {
		c color.RGBA
		n int
	}
	ranked := make([]freq, 0, len(counts))
	for c, n := range counts {
		ranked = append(ranked, freq{c, n})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].n > ranked[j].n })

	palette := make(color.Palette, 0, 256)
	for i := 0; i < len(ranked) && len(palette) < 256; i++ {
		palette = append(palette, ranked[i].c)
	}
	for len(palette) < 256 {
		g := uint8(len(palette))
		palette = append(palette, color.RGBA{g, g, g, 255})
	}
	return palette
}
