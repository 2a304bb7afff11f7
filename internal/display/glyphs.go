package display

// glyphSet holds the characters used to draw tree structure and detail
// bullets. The ASCII set keeps every column the same width as its UTF-8
// counterpart so layouts match across encodings.
type glyphSet struct {
	Edge      string // branch with siblings below
	Corner    string // last branch
	Line      string // continuation under an open branch
	Blank     string // continuation under a closed branch
	BusStart  string
	Config    string
	Interface string
	EndpointI string // device to host
	EndpointO string // host to device
}

var utf8Glyphs = glyphSet{
	Edge:      "├──",
	Corner:    "└──",
	Line:      "│  ",
	Blank:     "   ",
	BusStart:  "●",
	Config:    "•",
	Interface: "◦",
	EndpointI: "→",
	EndpointO: "←",
}

var asciiGlyphs = glyphSet{
	Edge:      "|__",
	Corner:    "|__",
	Line:      "|  ",
	Blank:     "   ",
	BusStart:  "/:",
	Config:    "o",
	Interface: ".",
	EndpointI: ">",
	EndpointO: "<",
}
