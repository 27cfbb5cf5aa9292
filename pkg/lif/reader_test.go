package lif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"
)

// testImage describes one image to bake into a synthetic LIF file. data
// is the raw memory block: planes back to back in (t, z, c) order with c
// varying fastest.
type testImage struct {
	name     string
	x, y     int
	z, t     int
	channels int
	bitDepth int
	data     []byte
}

func buildLIF(t *testing.T, images []testImage) string {
	t.Helper()

	var x strings.Builder
	x.WriteString(`<LMSDataContainerHeader Version="2"><Element Name="proj"><Children>`)
	for i, im := range images {
		fmt.Fprintf(&x, `<Element Name="%s"><Data><Image><ImageDescription><Channels>`, im.name)
		for c := 0; c < im.channels; c++ {
			fmt.Fprintf(&x, `<ChannelDescription Resolution="%d"/>`, im.bitDepth)
		}
		x.WriteString(`</Channels><Dimensions>`)
		fmt.Fprintf(&x, `<DimensionDescription DimID="1" NumberOfElements="%d"/>`, im.x)
		fmt.Fprintf(&x, `<DimensionDescription DimID="2" NumberOfElements="%d"/>`, im.y)
		fmt.Fprintf(&x, `<DimensionDescription DimID="3" NumberOfElements="%d"/>`, im.z)
		fmt.Fprintf(&x, `<DimensionDescription DimID="4" NumberOfElements="%d"/>`, im.t)
		x.WriteString(`</Dimensions></ImageDescription>`)
		fmt.Fprintf(&x, `<Memory Size="%d" MemoryBlockID="MemBlock_%d"/></Image></Data></Element>`, len(im.data), i)
	}
	x.WriteString(`</Children></Element></LMSDataContainerHeader>`)

	var buf bytes.Buffer
	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeUTF16 := func(s string) {
		for _, u := range utf16.Encode([]rune(s)) {
			binary.Write(&buf, binary.LittleEndian, u)
		}
	}

	xmlChars := len(utf16.Encode([]rune(x.String())))
	writeU32(blockMagic)
	writeU32(uint32(5 + 2*xmlChars))
	buf.WriteByte(testValue)
	writeU32(uint32(xmlChars))
	writeUTF16(x.String())

	for i, im := range images {
		id := fmt.Sprintf("MemBlock_%d", i)
		writeU32(blockMagic)
		writeU32(uint32(14 + 2*len(id)))
		buf.WriteByte(testValue)
		binary.Write(&buf, binary.LittleEndian, uint64(len(im.data)))
		buf.WriteByte(testValue)
		writeU32(uint32(len(id)))
		writeUTF16(id)
		buf.Write(im.data)
	}

	path := filepath.Join(t.TempDir(), "test.lif")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing synthetic lif: %v", err)
	}
	return path
}

// plane8 builds one 8-bit plane filled with base, base+1, ...
func plane8(n int, base byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = base + byte(i)
	}
	return p
}

func TestOpenMetadata(t *testing.T) {
	path := buildLIF(t, []testImage{
		{name: "a", x: 2, y: 2, z: 1, t: 1, channels: 2, bitDepth: 8,
			data: make([]byte, 2*2*2)},
		{name: "b", x: 3, y: 2, z: 4, t: 1, channels: 3, bitDepth: 8,
			data: make([]byte, 3*2*4*3)},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.NumImages() != 2 {
		t.Fatalf("expected 2 images, got %d", p.NumImages())
	}

	if nc, err := p.NumChannels(0); err != nil || nc != 2 {
		t.Errorf("image 0 channels: got %d, %v", nc, err)
	}
	if nc, err := p.NumChannels(1); err != nil || nc != 3 {
		t.Errorf("image 1 channels: got %d, %v", nc, err)
	}
	if nz, err := p.NumZSlices(1); err != nil || nz != 4 {
		t.Errorf("image 1 z slices: got %d, %v", nz, err)
	}

	im, err := p.Image(1)
	if err != nil {
		t.Fatalf("Image(1): %v", err)
	}
	if im.Name != "b" || im.DimX != 3 || im.DimY != 2 {
		t.Errorf("image 1 metadata wrong: %+v", im)
	}

	if _, err := p.Image(2); err == nil {
		t.Error("expected error for image index 2")
	}
}

func TestFrame8Bit(t *testing.T) {
	// 2x2, two channels: plane c0 = 0..3, plane c1 = 10..13
	data := append(plane8(4, 0), plane8(4, 10)...)
	path := buildLIF(t, []testImage{
		{name: "a", x: 2, y: 2, z: 1, t: 1, channels: 2, bitDepth: 8, data: data},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	f, err := p.Frame(0, 0, 0, 1)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.W != 2 || f.H != 2 {
		t.Fatalf("frame shape %dx%d, want 2x2", f.W, f.H)
	}
	if f.At(0, 0) != 10 || f.At(1, 0) != 11 || f.At(0, 1) != 12 || f.At(1, 1) != 13 {
		t.Errorf("channel 1 samples wrong: %v", f.Pix)
	}

	f0, err := p.Frame(0, 0, 0, 0)
	if err != nil {
		t.Fatalf("Frame c0: %v", err)
	}
	if f0.At(1, 1) != 3 {
		t.Errorf("channel 0 sample wrong: %v", f0.Pix)
	}
}

func TestFrameZOrdering(t *testing.T) {
	// 1x1, 3 z slices, 2 channels: plane index is z*nc + c
	data := []byte{0, 1, 10, 11, 20, 21}
	path := buildLIF(t, []testImage{
		{name: "a", x: 1, y: 1, z: 3, t: 1, channels: 2, bitDepth: 8, data: data},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	for z := 0; z < 3; z++ {
		for c := 0; c < 2; c++ {
			f, err := p.Frame(0, z, 0, c)
			if err != nil {
				t.Fatalf("Frame z%d c%d: %v", z, c, err)
			}
			want := uint16(z*10 + c)
			if f.At(0, 0) != want {
				t.Errorf("z%d c%d: got %d, want %d", z, c, f.At(0, 0), want)
			}
		}
	}
}

func TestFrame16Bit(t *testing.T) {
	// 2x1 12-bit samples, little endian: 0x0234, 0x0FFF
	data := []byte{0x34, 0x02, 0xFF, 0x0F}
	path := buildLIF(t, []testImage{
		{name: "a", x: 2, y: 1, z: 1, t: 1, channels: 1, bitDepth: 12, data: data},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	f, err := p.Frame(0, 0, 0, 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.At(0, 0) != 0x0234 || f.At(1, 0) != 0x0FFF {
		t.Errorf("12-bit samples wrong: %v", f.Pix)
	}
	if f.BitDepth != 12 {
		t.Errorf("bit depth %d, want 12", f.BitDepth)
	}
}

func TestFrameMissingChannel(t *testing.T) {
	path := buildLIF(t, []testImage{
		{name: "a", x: 2, y: 2, z: 1, t: 1, channels: 1, bitDepth: 8, data: make([]byte, 4)},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.Frame(0, 0, 0, 1); !errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("expected ErrNoSuchChannel, got %v", err)
	}

	// Out-of-range z is a different failure, not a missing channel
	if _, err := p.Frame(0, 5, 0, 0); err == nil || errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("z out of range should not be ErrNoSuchChannel, got %v", err)
	}
}

func TestFrameTruncatedBlock(t *testing.T) {
	// Metadata claims 3 channels but the block only holds 2 planes - the
	// known LAS X quirk. Channels 0 and 1 read fine, channel 2 is a
	// missing-channel condition.
	data := append(plane8(4, 0), plane8(4, 10)...)
	path := buildLIF(t, []testImage{
		{name: "a", x: 2, y: 2, z: 1, t: 1, channels: 3, bitDepth: 8, data: data},
	})

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if nc, _ := p.NumChannels(0); nc != 3 {
		t.Fatalf("metadata should still report 3 channels, got %d", nc)
	}
	if _, err := p.Frame(0, 0, 0, 1); err != nil {
		t.Errorf("channel 1 should read: %v", err)
	}
	if _, err := p.Frame(0, 0, 0, 2); !errors.Is(err, ErrNoSuchChannel) {
		t.Errorf("expected ErrNoSuchChannel for truncated plane, got %v", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.lif")
	if err := os.WriteFile(path, []byte("this is not a lif file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected an error opening garbage")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.lif")); err == nil {
		t.Error("expected an error opening a missing file")
	}
}

func TestFrameStats(t *testing.T) {
	f := &Frame{W: 2, H: 2, BitDepth: 8, Pix: []uint16{0, 10, 20, 30}}
	s := f.Stats()
	if s.Min != 0 || s.Max != 30 {
		t.Errorf("min/max wrong: %+v", s)
	}
	if s.Mean != 15 {
		t.Errorf("mean %g, want 15", s.Mean)
	}
	if s.P99 < s.Mean || s.P99 > s.Max {
		t.Errorf("p99 %g out of range", s.P99)
	}
}
