package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi        = 144.0
	fontsize   = 12.0
	lineheight = 1.2
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = color.Palette{
	color.Gray{255},
	color.Gray{0},
	color.Gray{160},
}

const (
	white = iota
	black
	gray
)

// Encoder renders frames of visible activations as bar charts, one GIF frame
// per data frame: a bar per dimension around a zero baseline, with the frame
// number captioned underneath.
type Encoder struct {
	H, W int
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	padH, padW int
	scale      float32 // activation value mapping to a full half-height bar
	count      int
}

// NewEncoder with height and width in pixels. Values are clamped to ±scale.
func NewEncoder(h, w int, scale float32) *Encoder {
	enc := &Encoder{
		H:    h,
		W:    w,
		padH: 10,
		padW: 10,

		scale: scale,
		out:   &gif.GIF{LoopCount: -1},
	}
	enc.face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	enc.Drawer.Src = image.Black
	enc.Drawer.Face = enc.face
	return enc
}

// Encode one frame of visible activations.
func (enc *Encoder) Encode(frame []float32) error {
	if len(frame) == 0 {
		return fmt.Errorf("empty frame")
	}
	barW := (enc.W - 2*enc.padW) / len(frame)
	if barW < 2 {
		return fmt.Errorf("%d dims do not fit in %d pixels", len(frame), enc.W)
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.ZP, draw.Src)

	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	plotH := enc.H - 2*enc.padH - dy
	mid := enc.padH + plotH/2

	for x := enc.padW; x < enc.W-enc.padW; x++ {
		im.SetColorIndex(x, mid, gray)
	}

	for i, v := range frame {
		h := v / enc.scale
		if h > 1 {
			h = 1
		} else if h < -1 {
			h = -1
		}
		ph := int(h * float32(plotH/2))
		y0, y1 := mid-ph, mid
		if ph < 0 {
			y0, y1 = mid, mid-ph
		}
		x0 := enc.padW + i*barW
		for y := y0; y <= y1; y++ {
			for x := x0 + 1; x < x0+barW-1; x++ {
				im.SetColorIndex(x, y, black)
			}
		}
	}

	enc.Dst = im
	enc.Dot = fixed.P(enc.padW, enc.H-enc.padH)
	enc.DrawString(fmt.Sprintf("Frame %d", enc.count))
	enc.count++

	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, 4)
	return nil
}

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error { return gif.EncodeAll(enc.Writer, enc.out) }
