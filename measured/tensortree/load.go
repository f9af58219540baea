package tensortree

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// Component identifies one of the four scattering components, in the
// same disk order Klems uses (§6): FrontReflection, FrontTransmission,
// BackReflection, BackTransmission.
type Component int

const (
	FrontReflection Component = iota
	FrontTransmission
	BackReflection
	BackTransmission
)

// invertDirection applies the same four-way direction-inversion rule
// Klems uses (§4.B: "Same four-way direction-inversion rule as
// Klems").
func invertDirection(direction string) (Component, bool) {
	switch direction {
	case "Transmission Front":
		return BackTransmission, true
	case "Transmission Back":
		return FrontTransmission, true
	case "Scattering Front", "Reflection Front":
		return BackReflection, true
	case "Scattering Back", "Reflection Back":
		return FrontReflection, true
	default:
		return 0, false
	}
}

type xmlDoc struct {
	XMLName xml.Name   `xml:"WindowElement"`
	Optical xmlOptical `xml:"Optical"`
}

type xmlOptical struct {
	Layer xmlLayer `xml:"Layer"`
}

type xmlLayer struct {
	DataDefinition xmlDataDefinition  `xml:"DataDefinition"`
	WavelengthData []xmlWavelengthData `xml:"WavelengthData"`
}

type xmlDataDefinition struct {
	IncidentDataStructure string `xml:"IncidentDataStructure"`
	AngleBasis            string `xml:"AngleBasis"`
}

type xmlWavelengthData struct {
	Wavelength string         `xml:"Wavelength"`
	Block      xmlWLDataBlock `xml:"WavelengthDataBlock"`
}

type xmlWLDataBlock struct {
	Direction      string `xml:"WavelengthDataDirection"`
	ScatteringData string `xml:"ScatteringData"`
}

// Document is the parsed result: the four linearized tree components
// in disk order.
type Document struct {
	Components [4]*Tree
}

// Load parses a Tensor-Tree WindowElement/Optical/Layer document.
func Load(r io.Reader) (*Document, error) {
	var doc xmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, prefix+"decode")
	}
	layer := doc.Optical.Layer

	var fanout int
	switch layer.DataDefinition.IncidentDataStructure {
	case "TensorTree3":
		fanout = 8
	case "TensorTree4":
		fanout = 16
	default:
		return nil, newTreeErr("DataDefinition/IncidentDataStructure must be TensorTree3 or TensorTree4")
	}
	if layer.DataDefinition.AngleBasis != "LBNL/Shirley-Chiu" {
		return nil, newTreeErr("DataDefinition/AngleBasis must be LBNL/Shirley-Chiu")
	}

	var out Document
	for _, wl := range layer.WavelengthData {
		if wl.Wavelength != "Visible" {
			continue
		}
		comp, ok := invertDirection(wl.Block.Direction)
		if !ok {
			return nil, newTreeErr("unrecognized WavelengthDataDirection " + wl.Block.Direction)
		}
		root, err := parseRoot(wl.Block.ScatteringData, fanout)
		if err != nil {
			return nil, err
		}
		out.Components[comp] = build(root, fanout)
	}

	if err := applyMissingComponentRule(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// applyMissingComponentRule mirrors Klems' rule (§9 Open Question 2):
// a missing reflection component becomes an empty (all-zero, single
// compressed leaf) tree; a missing transmission component mirrors the
// other side if present; missing both sides of transmission is fatal.
func applyMissingComponentRule(doc *Document) error {
	if doc.Components[FrontTransmission] == nil && doc.Components[BackTransmission] == nil {
		return newTreeErr("missing transmission data on both sides")
	}
	if doc.Components[FrontTransmission] == nil {
		doc.Components[FrontTransmission] = doc.Components[BackTransmission]
	}
	if doc.Components[BackTransmission] == nil {
		doc.Components[BackTransmission] = doc.Components[FrontTransmission]
	}
	if doc.Components[FrontReflection] == nil {
		doc.Components[FrontReflection] = emptyTree(doc.Components[FrontTransmission].Fanout)
	}
	if doc.Components[BackReflection] == nil {
		doc.Components[BackReflection] = emptyTree(doc.Components[FrontTransmission].Fanout)
	}
	return nil
}

func emptyTree(fanout int) *Tree {
	return build(&rawNode{values: []float32{0}}, fanout)
}
