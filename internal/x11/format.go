package x11

import (
	"fmt"
	"math/bits"

	"github.com/BurntSushi/xgb/xproto"
)

// ByteOrder is the byte order of pixel values in a captured buffer.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// PixelFormat describes how the bytes of a captured frame should be
// interpreted. It is a pure value derived from display properties and is
// recomputed on every capability query: depth and visual can change when
// geometry does (window reparenting).
type PixelFormat struct {
	Depth        uint8
	BitsPerPixel uint8
	ByteOrder    ByteOrder
	RedMask      uint32
	GreenMask    uint32
	BlueMask     uint32
	AlphaMask    uint32
}

func (f PixelFormat) String() string {
	return fmt.Sprintf("depth=%d bpp=%d order=%s r=%#08x g=%#08x b=%#08x a=%#08x",
		f.Depth, f.BitsPerPixel, f.ByteOrder, f.RedMask, f.GreenMask, f.BlueMask, f.AlphaMask)
}

// ResolveFormat derives the pixel format for the window: depth from a
// geometry query, bits-per-pixel from the display's pixmap formats, channel
// masks from the screen's root visual.
func (s *Session) ResolveFormat(win Window) (PixelFormat, error) {
	geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return PixelFormat{}, fmt.Errorf("failed to get window depth: %w", err)
	}
	return formatForDepth(s.setup, s.screen, geom.Depth)
}

// formatForDepth builds the descriptor from display properties alone.
func formatForDepth(setup *xproto.SetupInfo, screen *xproto.ScreenInfo, depth byte) (PixelFormat, error) {
	var bpp uint8
	found := false
	for _, pf := range setup.PixmapFormats {
		if pf.Depth == depth {
			bpp = pf.BitsPerPixel
			found = true
			break
		}
	}
	if !found {
		return PixelFormat{}, fmt.Errorf("no pixmap format for depth %d", depth)
	}

	var visual *xproto.VisualInfo
	for i := range screen.AllowedDepths {
		for j := range screen.AllowedDepths[i].Visuals {
			if screen.AllowedDepths[i].Visuals[j].VisualId == screen.RootVisual {
				visual = &screen.AllowedDepths[i].Visuals[j]
			}
		}
	}
	if visual == nil {
		return PixelFormat{}, fmt.Errorf("root visual %#x not present on screen", screen.RootVisual)
	}

	order := LittleEndian
	if setup.ImageByteOrder == xproto.ImageOrderMSBFirst {
		order = BigEndian
	}

	f := canonicalize(PixelFormat{
		Depth:        depth,
		BitsPerPixel: bpp,
		ByteOrder:    order,
		RedMask:      visual.RedMask,
		GreenMask:    visual.GreenMask,
		BlueMask:     visual.BlueMask,
	})
	if f.BitsPerPixel == 32 {
		f.AlphaMask = ^(f.RedMask | f.GreenMask | f.BlueMask)
	}
	return f, nil
}

// canonicalize forces 24/32 bpp formats on little-endian displays into
// big-endian byte order so all RGB(A) frames share one canonical layout
// regardless of host endianness. Masks are byte-swapped to match, and at
// 24 bpp additionally shifted down into the 3-byte value range.
func canonicalize(f PixelFormat) PixelFormat {
	if f.ByteOrder != LittleEndian {
		return f
	}
	if f.BitsPerPixel != 24 && f.BitsPerPixel != 32 {
		return f
	}

	f.ByteOrder = BigEndian
	f.RedMask = bits.ReverseBytes32(f.RedMask)
	f.GreenMask = bits.ReverseBytes32(f.GreenMask)
	f.BlueMask = bits.ReverseBytes32(f.BlueMask)
	if f.BitsPerPixel == 24 {
		f.RedMask >>= 8
		f.GreenMask >>= 8
		f.BlueMask >>= 8
	}
	return f
}
