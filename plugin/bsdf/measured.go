package bsdf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/embervale/photon/internal/warn"
	"github.com/embervale/photon/measured/klems"
	"github.com/embervale/photon/measured/tensortree"
	"github.com/embervale/photon/rescache"
	"github.com/embervale/photon/scene"
	"github.com/embervale/photon/serial"
	"github.com/embervale/photon/shadingtree"
)

// Measured backs the klems/djmeasured/neural aliases: each references
// an external measured-BSDF file. Per §4.D, these are the one BSDF
// family that doesn't emit an inline expression — they call the
// matching loader, export its binary form into the resource cache,
// and emit code that loads the cached buffer by its external-resource
// ID rather than constructing the value in the shader text itself.
type Measured struct{ reg *Registry }

func (m *Measured) Serialize(t *shadingtree.Tree, obj *scene.Object) (int, error) {
	resourceID, err := m.export(t, obj)
	if err != nil {
		t.Warn("bsdf", obj.Name, "measured BSDF %q: %v", obj.Name, err)
		return emitErrorBSDF(t, obj, fmt.Sprintf("%s: %v", obj.Name, err))
	}

	id := t.BeginClosure(obj)
	sym := t.Symbol("bsdf")
	body := fmt.Sprintf(
		"BSDFShader %s() { return measured_bsdf(load_external_resource(\"%s\")); }",
		sym, resourceID,
	)
	return finalizeClosure(t, id, sym, body)
}

// export produces the cached binary file for obj's measured data and
// returns the external-resource ID a shader can use to fetch it.
func (m *Measured) export(t *shadingtree.Tree, obj *scene.Object) (string, error) {
	if m.reg == nil || m.reg.cache == nil {
		return "", fmt.Errorf("no resource cache configured")
	}
	path := obj.GetString("filename", "")
	if path == "" {
		return "", fmt.Errorf("missing filename property")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	category := obj.GetString("type", "measured")
	var payload []byte
	switch category {
	case "klems":
		payload, err = exportKlems(raw, m.reg.warner, obj.Name)
	case "djmeasured":
		payload, err = exportTensorTree(raw)
	default:
		// Neural networks and any other opaque measured format are
		// stored verbatim: there is no loader to reinterpret them.
		payload = raw
	}
	if err != nil {
		return "", err
	}

	fp := rescache.Fingerprint(payload)
	logicalID := rescache.LogicalID(category, fp)
	if entry, ok := m.reg.cache.Lookup(logicalID); ok {
		return entry.LogicalID, nil
	}
	entry, err := m.reg.cache.Store(logicalID, payload)
	if err != nil {
		return "", err
	}
	return entry.LogicalID, nil
}

func exportKlems(raw []byte, warner *warn.Tracker, sourceName string) ([]byte, error) {
	doc, err := klems.Load(bytes.NewReader(raw), warner, sourceName)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	klems.Export(w, doc)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportTensorTree(raw []byte) ([]byte, error) {
	doc, err := tensortree.Load(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := serial.NewWriter(&buf)
	tensortree.Export(w, doc)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
