package output

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/xwincast/xwincast/internal/x11"
)

// ToRGBA interprets a raw captured buffer using the resolved pixel format.
// Formats arrive canonicalized (24/32 bpp always big-endian), but the
// decoder honors whatever order the descriptor declares.
func ToRGBA(data []byte, width, height int, f x11.PixelFormat) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	step := int(f.BitsPerPixel) / 8
	if step == 0 {
		return nil, fmt.Errorf("unsupported bits-per-pixel %d", f.BitsPerPixel)
	}
	// Scanlines may carry pad bytes; derive the stride from the buffer.
	stride := len(data) / height
	if stride < width*step {
		return nil, fmt.Errorf("frame buffer too small: %d bytes for %dx%d at %d bpp",
			len(data), width, height, f.BitsPerPixel)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		for x := 0; x < width; x++ {
			v := pixelValue(row[x*step:], step, f.ByteOrder)
			o := img.PixOffset(x, y)
			img.Pix[o+0] = channel(v, f.RedMask)
			img.Pix[o+1] = channel(v, f.GreenMask)
			img.Pix[o+2] = channel(v, f.BlueMask)
			if f.AlphaMask != 0 {
				img.Pix[o+3] = channel(v, f.AlphaMask)
			} else {
				img.Pix[o+3] = 0xff
			}
		}
	}
	return img, nil
}

func pixelValue(b []byte, step int, order x11.ByteOrder) uint32 {
	var v uint32
	if order == x11.BigEndian {
		for i := 0; i < step; i++ {
			v = v<<8 | uint32(b[i])
		}
	} else {
		for i := step - 1; i >= 0; i-- {
			v = v<<8 | uint32(b[i])
		}
	}
	return v
}

// channel extracts one color component and scales it to 8 bits.
func channel(v, mask uint32) uint8 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	val := (v & mask) >> shift
	max := uint32(1)<<width - 1
	if max == 0 {
		return 0
	}
	return uint8(val * 0xff / max)
}
