// Package lif reads Leica Image File (LIF) projects, the container format
// written by LAS X. A project holds a tree of images; each image is a set
// of intensity planes indexed by (z, t, channel), stored back-to-back in a
// memory block located elsewhere in the file.
package lif

import (
	"bufio"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf16"
)

// ErrNoSuchChannel reports a frame request for a channel the image does
// not actually contain. LAS X sometimes writes channel metadata for more
// channels than it stored planes, so callers treat this as a value-domain
// condition rather than a corrupt file.
var ErrNoSuchChannel = errors.New("channel does not exist")

const (
	blockMagic = 0x70
	testValue  = 0x2A
)

// Image is the decoded metadata for one image in a project.
type Image struct {
	Name     string
	DimX     int
	DimY     int
	DimZ     int
	DimT     int
	DimM     int // mosaic tiles
	Channels int
	BitDepth int

	blockID string
}

type memoryBlock struct {
	offset int64
	size   uint64
}

// Project is an open LIF file. Frame data is read lazily, so the Project
// keeps its file handle until Close.
type Project struct {
	path   string
	f      *os.File
	images []Image
	blocks map[string]memoryBlock
}

// Open reads and validates the project metadata. Pixel data stays on disk
// until requested through Frame.
func Open(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", path, err)
	}

	p := &Project{path: path, f: f, blocks: map[string]memoryBlock{}}
	if err := p.parse(); err != nil {
		f.Close()
		return nil, fmt.Errorf("lif parsing '%s': %v", path, err)
	}
	return p, nil
}

func (p *Project) Close() error { return p.f.Close() }

func (p *Project) NumImages() int { return len(p.images) }

func (p *Project) Image(img int) (Image, error) {
	if img < 0 || img >= len(p.images) {
		return Image{}, fmt.Errorf("project has %d images, no index %d", len(p.images), img)
	}
	return p.images[img], nil
}

func (p *Project) NumChannels(img int) (int, error) {
	im, err := p.Image(img)
	if err != nil {
		return 0, err
	}
	return im.Channels, nil
}

func (p *Project) NumZSlices(img int) (int, error) {
	im, err := p.Image(img)
	if err != nil {
		return 0, err
	}
	return im.DimZ, nil
}

// Frame reads the plane at (z, t, c) for the given image. A channel that
// is out of range, or whose plane falls beyond the image's memory block,
// yields an error wrapping ErrNoSuchChannel.
func (p *Project) Frame(img, z, t, c int) (*Frame, error) {
	im, err := p.Image(img)
	if err != nil {
		return nil, err
	}

	if c < 0 || c >= im.Channels {
		return nil, fmt.Errorf("image %d channel %d: %w", img, c, ErrNoSuchChannel)
	}
	if z < 0 || z >= im.DimZ {
		return nil, fmt.Errorf("image %d: z index %d out of range [0,%d)", img, z, im.DimZ)
	}
	if t < 0 || t >= im.DimT {
		return nil, fmt.Errorf("image %d: t index %d out of range [0,%d)", img, t, im.DimT)
	}

	blk, ok := p.blocks[im.blockID]
	if !ok {
		return nil, fmt.Errorf("image %d: memory block '%s' not present in file", img, im.blockID)
	}

	bytesPerSample := 1
	if im.BitDepth > 8 {
		bytesPerSample = 2
	}
	planeSize := int64(im.DimX) * int64(im.DimY) * int64(bytesPerSample)
	plane := int64((t*im.DimZ+z)*im.Channels + c)
	offset := plane * planeSize

	// Metadata can promise more planes than the block holds.
	if uint64(offset+planeSize) > blk.size {
		return nil, fmt.Errorf("image %d channel %d: plane beyond memory block: %w", img, c, ErrNoSuchChannel)
	}

	buf := make([]byte, planeSize)
	if _, err := p.f.ReadAt(buf, blk.offset+offset); err != nil {
		return nil, fmt.Errorf("image %d read plane at 0x%x: %v", img, blk.offset+offset, err)
	}

	fr := &Frame{W: im.DimX, H: im.DimY, BitDepth: im.BitDepth, Pix: make([]uint16, im.DimX*im.DimY)}
	if bytesPerSample == 1 {
		for i, b := range buf {
			fr.Pix[i] = uint16(b)
		}
	} else {
		for i := range fr.Pix {
			fr.Pix[i] = binary.LittleEndian.Uint16(buf[2*i:])
		}
	}
	return fr, nil
}

// countingReader tracks the absolute file offset while we stream through
// the block structure, so memory block data offsets can be recorded.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}

func (p *Project) parse() error {
	cr := &countingReader{r: bufio.NewReader(p.f)}

	doc, err := readXMLHeader(cr)
	if err != nil {
		return err
	}

	var hdr xmlHeader
	if err := xml.Unmarshal([]byte(doc), &hdr); err != nil {
		return fmt.Errorf("metadata xml: %v", err)
	}

	// The root element names the project, not an image group; walk from
	// its children so image names don't all carry the project name.
	for _, child := range hdr.Element.Children {
		collectImages(child, "", &p.images)
	}

	return p.scanMemoryBlocks(cr, hdr.Version)
}

// readXMLHeader consumes the first block: magic, chunk length, test byte,
// then the UTF-16 metadata document.
func readXMLHeader(r io.Reader) (string, error) {
	var magic, chunkLen, nChars uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return "", fmt.Errorf("header magic: %v", err)
	}
	if magic != blockMagic {
		return "", fmt.Errorf("not a LIF file (magic 0x%x)", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &chunkLen); err != nil {
		return "", fmt.Errorf("header length: %v", err)
	}
	if err := expectTestByte(r); err != nil {
		return "", err
	}
	if err := binary.Read(r, binary.LittleEndian, &nChars); err != nil {
		return "", fmt.Errorf("header text length: %v", err)
	}

	raw := make([]byte, int64(nChars)*2)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("header text: %v", err)
	}
	return decodeUTF16(raw), nil
}

func (p *Project) scanMemoryBlocks(cr *countingReader, version int) error {
	for {
		var magic uint32
		err := binary.Read(cr, binary.LittleEndian, &magic)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("block magic at 0x%x: %v", cr.n, err)
		}
		if magic != blockMagic {
			return fmt.Errorf("bad block magic 0x%x at 0x%x", magic, cr.n)
		}

		var contentLen uint32
		if err := binary.Read(cr, binary.LittleEndian, &contentLen); err != nil {
			return fmt.Errorf("block length: %v", err)
		}
		if err := expectTestByte(cr); err != nil {
			return err
		}

		var memSize uint64
		if version >= 2 {
			if err := binary.Read(cr, binary.LittleEndian, &memSize); err != nil {
				return fmt.Errorf("block memory size: %v", err)
			}
		} else {
			var memSize32 uint32
			if err := binary.Read(cr, binary.LittleEndian, &memSize32); err != nil {
				return fmt.Errorf("block memory size: %v", err)
			}
			memSize = uint64(memSize32)
		}

		if err := expectTestByte(cr); err != nil {
			return err
		}
		var idChars uint32
		if err := binary.Read(cr, binary.LittleEndian, &idChars); err != nil {
			return fmt.Errorf("block id length: %v", err)
		}
		raw := make([]byte, int64(idChars)*2)
		if _, err := io.ReadFull(cr, raw); err != nil {
			return fmt.Errorf("block id: %v", err)
		}
		id := decodeUTF16(raw)

		p.blocks[id] = memoryBlock{offset: cr.n, size: memSize}
		if memSize > 0 {
			if _, err := io.CopyN(io.Discard, cr, int64(memSize)); err != nil {
				return fmt.Errorf("block '%s' data: %v", id, err)
			}
		}
	}
}

func expectTestByte(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return fmt.Errorf("test byte: %v", err)
	}
	if b[0] != testValue {
		return fmt.Errorf("bad test byte 0x%x", b[0])
	}
	return nil
}

func decodeUTF16(b []byte) string {
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u))
}

// collectImages walks the element tree depth-first, flattening every
// image-bearing element into the project's image list. Nested element
// names are joined with '/', skipping the root container name.
func collectImages(el xmlElement, prefix string, out *[]Image) {
	name := el.Name
	if prefix != "" {
		name = prefix + "/" + name
	}

	if el.Image != nil {
		im := Image{
			Name:     name,
			DimX:     1,
			DimY:     1,
			DimZ:     1,
			DimT:     1,
			DimM:     1,
			Channels: len(el.Image.Channels),
			BitDepth: 8,
			blockID:  el.Image.Memory.MemoryBlockID,
		}
		for _, d := range el.Image.Dimensions {
			switch d.DimID {
			case dimX:
				im.DimX = d.NumberOfElements
			case dimY:
				im.DimY = d.NumberOfElements
			case dimZ:
				im.DimZ = d.NumberOfElements
			case dimT:
				im.DimT = d.NumberOfElements
			case dimMosaic:
				im.DimM = d.NumberOfElements
			}
		}
		if len(el.Image.Channels) > 0 {
			im.BitDepth = el.Image.Channels[0].Resolution
		}
		*out = append(*out, im)
	}

	for _, child := range el.Children {
		collectImages(child, name, out)
	}
}
