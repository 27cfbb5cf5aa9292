package compose

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

// writeTinyProject bakes a minimal real LIF file: one 2x2 image with two
// 8-bit channels, so the pipeline can be exercised end to end through the
// actual decoder.
func writeTinyProject(t *testing.T) string {
	t.Helper()

	const meta = `<LMSDataContainerHeader Version="2"><Element Name="proj"><Children>` +
		`<Element Name="img"><Data><Image><ImageDescription>` +
		`<Channels><ChannelDescription Resolution="8"/><ChannelDescription Resolution="8"/></Channels>` +
		`<Dimensions><DimensionDescription DimID="1" NumberOfElements="2"/>` +
		`<DimensionDescription DimID="2" NumberOfElements="2"/></Dimensions>` +
		`</ImageDescription><Memory Size="8" MemoryBlockID="MemBlock_0"/></Image></Data></Element>` +
		`</Children></Element></LMSDataContainerHeader>`

	var buf bytes.Buffer
	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeUTF16 := func(s string) {
		for _, u := range utf16.Encode([]rune(s)) {
			binary.Write(&buf, binary.LittleEndian, u)
		}
	}

	nChars := len(utf16.Encode([]rune(meta)))
	writeU32(0x70)
	writeU32(uint32(5 + 2*nChars))
	buf.WriteByte(0x2A)
	writeU32(uint32(nChars))
	writeUTF16(meta)

	// Two 2x2 planes: channel 0 then channel 1
	data := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	id := "MemBlock_0"
	writeU32(0x70)
	writeU32(uint32(14 + 2*len(id)))
	buf.WriteByte(0x2A)
	binary.Write(&buf, binary.LittleEndian, uint64(len(data)))
	buf.WriteByte(0x2A)
	writeU32(uint32(len(id)))
	writeUTF16(id)
	buf.Write(data)

	path := filepath.Join(t.TempDir(), "tiny.lif")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}
