package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestCanonicalize32BppLittleEndian(t *testing.T) {
	f := canonicalize(PixelFormat{
		Depth:        24,
		BitsPerPixel: 32,
		ByteOrder:    LittleEndian,
		RedMask:      0x00ff0000,
		GreenMask:    0x0000ff00,
		BlueMask:     0x000000ff,
	})

	if f.ByteOrder != BigEndian {
		t.Fatalf("byte order = %s, want big-endian", f.ByteOrder)
	}
	if f.RedMask != 0x0000ff00 || f.GreenMask != 0x00ff0000 || f.BlueMask != 0xff000000 {
		t.Fatalf("masks not byte-swapped: r=%#08x g=%#08x b=%#08x", f.RedMask, f.GreenMask, f.BlueMask)
	}
}

func TestCanonicalize24BppShiftsIntoThreeBytes(t *testing.T) {
	f := canonicalize(PixelFormat{
		Depth:        24,
		BitsPerPixel: 24,
		ByteOrder:    LittleEndian,
		RedMask:      0x00ff0000,
		GreenMask:    0x0000ff00,
		BlueMask:     0x000000ff,
	})

	if f.ByteOrder != BigEndian {
		t.Fatalf("byte order = %s, want big-endian", f.ByteOrder)
	}
	if f.RedMask != 0x000000ff || f.GreenMask != 0x0000ff00 || f.BlueMask != 0x00ff0000 {
		t.Fatalf("24 bpp masks wrong: r=%#08x g=%#08x b=%#08x", f.RedMask, f.GreenMask, f.BlueMask)
	}
}

func TestCanonicalizeLeavesBigEndianAlone(t *testing.T) {
	in := PixelFormat{
		Depth:        24,
		BitsPerPixel: 32,
		ByteOrder:    BigEndian,
		RedMask:      0x00ff0000,
		GreenMask:    0x0000ff00,
		BlueMask:     0x000000ff,
	}
	if got := canonicalize(in); got != in {
		t.Fatalf("big-endian format was altered: %+v", got)
	}
}

func TestCanonicalizeLeavesLowDepthsAlone(t *testing.T) {
	in := PixelFormat{
		Depth:        16,
		BitsPerPixel: 16,
		ByteOrder:    LittleEndian,
		RedMask:      0xf800,
		GreenMask:    0x07e0,
		BlueMask:     0x001f,
	}
	if got := canonicalize(in); got != in {
		t.Fatalf("16 bpp format was altered: %+v", got)
	}
}

func testSetup() (*xproto.SetupInfo, *xproto.ScreenInfo) {
	setup := &xproto.SetupInfo{
		ImageByteOrder: xproto.ImageOrderLSBFirst,
		PixmapFormats: []xproto.Format{
			{Depth: 1, BitsPerPixel: 1},
			{Depth: 16, BitsPerPixel: 16},
			{Depth: 24, BitsPerPixel: 32},
		},
	}
	screen := &xproto.ScreenInfo{
		RootVisual: 0x21,
		AllowedDepths: []xproto.DepthInfo{
			{
				Depth: 24,
				Visuals: []xproto.VisualInfo{
					{
						VisualId:  0x21,
						RedMask:   0x00ff0000,
						GreenMask: 0x0000ff00,
						BlueMask:  0x000000ff,
					},
				},
			},
		},
	}
	return setup, screen
}

func TestFormatForDepthResolvesCanonicalDescriptor(t *testing.T) {
	setup, screen := testSetup()

	f, err := formatForDepth(setup, screen, 24)
	if err != nil {
		t.Fatalf("formatForDepth: %v", err)
	}

	if f.Depth != 24 || f.BitsPerPixel != 32 {
		t.Fatalf("depth/bpp = %d/%d, want 24/32", f.Depth, f.BitsPerPixel)
	}
	if f.ByteOrder != BigEndian {
		t.Fatalf("byte order = %s, want big-endian", f.ByteOrder)
	}
	if f.RedMask != 0x0000ff00 || f.GreenMask != 0x00ff0000 || f.BlueMask != 0xff000000 {
		t.Fatalf("masks = r=%#08x g=%#08x b=%#08x", f.RedMask, f.GreenMask, f.BlueMask)
	}
	if f.AlphaMask != 0x000000ff {
		t.Fatalf("alpha mask = %#08x, want the complement of the RGB masks", f.AlphaMask)
	}
}

func TestFormatForDepthUnknownDepth(t *testing.T) {
	setup, screen := testSetup()
	if _, err := formatForDepth(setup, screen, 30); err == nil {
		t.Fatal("expected an error for a depth with no pixmap format")
	}
}

func TestFormatForDepthMissingRootVisual(t *testing.T) {
	setup, screen := testSetup()
	screen.RootVisual = 0x99
	if _, err := formatForDepth(setup, screen, 24); err == nil {
		t.Fatal("expected an error when the root visual is absent")
	}
}

func TestFormatForDepthNoAlphaBelow32Bpp(t *testing.T) {
	setup, screen := testSetup()
	setup.PixmapFormats = append(setup.PixmapFormats, xproto.Format{Depth: 15, BitsPerPixel: 16})
	screen.AllowedDepths[0].Depth = 15

	f, err := formatForDepth(setup, screen, 15)
	if err != nil {
		t.Fatalf("formatForDepth: %v", err)
	}
	if f.AlphaMask != 0 {
		t.Fatalf("alpha mask = %#08x, want 0 below 32 bpp", f.AlphaMask)
	}
}

func TestGeometrySameSize(t *testing.T) {
	a := Geometry{X: 0, Y: 0, Width: 100, Height: 50}
	b := Geometry{X: 30, Y: 40, Width: 100, Height: 50}
	if !a.SameSize(b) {
		t.Fatal("geometries with equal dimensions must compare equal in size")
	}
	b.Width = 101
	if a.SameSize(b) {
		t.Fatal("geometries with different widths must not compare equal in size")
	}
}
