package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/embervale/photon/jit"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/runtime"
)

func TestReadRays(t *testing.T) {
	in := strings.NewReader("0 1 0 0 -1 0 0.001 1000\n\n1 2 3 0 0 -1 0 100\n")
	rays, err := readRays(in)
	if err != nil {
		t.Fatalf("readRays: %v", err)
	}
	if len(rays) != 2 {
		t.Fatalf("len(rays) = %d, want 2", len(rays))
	}
	if rays[0].Origin != (linear.V3{0, 1, 0}) || rays[0].TMax != 1000 {
		t.Errorf("rays[0] = %+v", rays[0])
	}
	if rays[1].Dir != (linear.V3{0, 0, -1}) {
		t.Errorf("rays[1].Dir = %+v", rays[1].Dir)
	}
}

func TestReadRaysBadLine(t *testing.T) {
	in := strings.NewReader("0 0 0 1 1\n")
	if _, err := readRays(in); err == nil {
		t.Fatal("expected an error for a short ray line")
	}
}

func TestResolveTargetGPUWithoutExplicitTargetErrors(t *testing.T) {
	if _, err := resolveTarget(flags{useGPU: true}); err == nil {
		t.Fatal("expected --gpu without -t to fail")
	}
}

func TestResolveTargetExplicit(t *testing.T) {
	tgt, err := resolveTarget(flags{targetName: "avx2", device: 3})
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if tgt.ISA.String() != "avx2" || tgt.DeviceIndex != 3 {
		t.Errorf("tgt = %+v", tgt)
	}
}

func TestResolveTargetUnknown(t *testing.T) {
	if _, err := resolveTarget(flags{targetName: "bogus"}); err == nil {
		t.Fatal("expected an error for an unknown target name")
	}
}

func TestColorizeError(t *testing.T) {
	if got := colorizeError("boom", true); got != "boom" {
		t.Errorf("colorizeError(disabled) = %q", got)
	}
	if got := colorizeError("boom", false); !strings.Contains(got, "boom") || got == "boom" {
		t.Errorf("colorizeError(enabled) = %q", got)
	}
}

type stubCompiler struct{ entries []jit.EntryPoint }

func (c *stubCompiler) Name() string { return "stub" }
func (c *stubCompiler) Compile(groupID, source string, entries []jit.EntryPoint) (jit.Program, error) {
	c.entries = entries
	return &stubProgram{entries: entries}, nil
}
func (c *stubCompiler) Close() error { return nil }

type stubProgram struct{ entries []jit.EntryPoint }

func (p *stubProgram) Lookup(name string) (jit.FuncPtr, bool) {
	for _, e := range p.entries {
		if e.Name == name {
			return func(payload []byte) {}, true
		}
	}
	return nil, false
}
func (p *stubProgram) GroupID() string { return "stub-group" }
func (p *stubProgram) Destroy()        {}

func TestTraceAndWriteOneLinePerRay(t *testing.T) {
	const scene = `{
		"camera": {"type": "perspective"},
		"technique": {"type": "ao"},
		"film": {"size": [1, 1]},
		"bsdfs": [], "shapes": [], "entities": [], "lights": []
	}`
	rt, err := runtime.New(runtime.DefaultOptions(), &stubCompiler{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	defer rt.Close()
	if err := rt.LoadFromString(scene, "."); err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}

	rays := []runtime.Ray{{Origin: linear.V3{0, 1, 0}, Dir: linear.V3{0, -1, 0}, TMax: 100}}
	var buf bytes.Buffer
	if err := traceAndWrite(rt, rays, 4, &buf); err != nil {
		t.Fatalf("traceAndWrite: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one output line per ray, got %d", len(lines))
	}
}
