package lif

// The LIF metadata is a single UTF-16 XML document at the front of the
// file. We only decode the parts the compositor needs: the element tree,
// per-image channel/dimension descriptions, and the memory block ids that
// tie an image to its pixel data.

type xmlHeader struct {
	Version int        `xml:"Version,attr"`
	Element xmlElement `xml:"Element"`
}

type xmlElement struct {
	Name     string       `xml:"Name,attr"`
	Children []xmlElement `xml:"Children>Element"`
	Image    *xmlImage    `xml:"Data>Image"`
}

type xmlImage struct {
	Channels   []xmlChannel   `xml:"ImageDescription>Channels>ChannelDescription"`
	Dimensions []xmlDimension `xml:"ImageDescription>Dimensions>DimensionDescription"`
	Memory     xmlMemory      `xml:"Memory"`
}

type xmlChannel struct {
	Resolution int `xml:"Resolution,attr"`
}

// Dimension ids used by LAS X. Anything else (rotation, phase...) is
// irrelevant here and ignored.
const (
	dimX      = 1
	dimY      = 2
	dimZ      = 3
	dimT      = 4
	dimMosaic = 10
)

type xmlDimension struct {
	DimID            int `xml:"DimID,attr"`
	NumberOfElements int `xml:"NumberOfElements,attr"`
}

type xmlMemory struct {
	Size          uint64 `xml:"Size,attr"`
	MemoryBlockID string `xml:"MemoryBlockID,attr"`
}
