package jit

import "testing"

type fakeProgram struct {
	groupID string
	funcs   map[string]FuncPtr
}

func (p *fakeProgram) Lookup(name string) (FuncPtr, bool) { f, ok := p.funcs[name]; return f, ok }
func (p *fakeProgram) GroupID() string                    { return p.groupID }
func (p *fakeProgram) Destroy()                           {}

type fakeCompiler struct {
	closed bool
	calls  int
}

func (c *fakeCompiler) Name() string { return "fake" }

func (c *fakeCompiler) Compile(groupID, source string, entries []EntryPoint) (Program, error) {
	if c.closed {
		return nil, ErrClosed
	}
	c.calls++
	funcs := make(map[string]FuncPtr, len(entries))
	for _, e := range entries {
		role := e.Role
		funcs[e.Name] = func(payload []byte) { _ = role }
	}
	return &fakeProgram{groupID: groupID, funcs: funcs}, nil
}

func (c *fakeCompiler) Close() error {
	c.closed = true
	return nil
}

func TestCompilerRoundTrip(t *testing.T) {
	var c fakeCompiler
	var _ Compiler = &c

	p, err := c.Compile("grp1", "kernel source", []EntryPoint{
		{Name: "miss", Role: RoleMiss},
		{Name: "hit", Role: RoleHit},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if p.GroupID() != "grp1" {
		t.Errorf("GroupID = %q", p.GroupID())
	}
	fn, ok := p.Lookup("miss")
	if !ok {
		t.Fatal("expected miss entry point")
	}
	fn(nil)

	if _, ok := p.Lookup("raygen"); ok {
		t.Fatal("unexpected raygen entry point")
	}
	p.Destroy()
}

func TestCompilerClosed(t *testing.T) {
	var c fakeCompiler
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Compile("g", "s", nil); err != ErrClosed {
		t.Fatalf("Compile after Close = %v, want ErrClosed", err)
	}
}

func TestRoleString(t *testing.T) {
	cases := map[Role]string{
		RoleRayGen:         "raygen",
		RoleMiss:           "miss",
		RoleHit:            "hit",
		RoleAdvancedShadow: "advancedShadow",
		RoleCallback:       "callback",
	}
	for role, want := range cases {
		if got := role.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(role), got, want)
		}
	}
}

func TestRegisterAndOpen(t *testing.T) {
	Register("test-cpu-fake", func() (Compiler, error) { return &fakeCompiler{}, nil })
	Register("test-gpu-fake", func() (Compiler, error) { return &fakeCompiler{}, nil })

	found := false
	for _, name := range Backends() {
		if name == "test-cpu-fake" {
			found = true
		}
	}
	if !found {
		t.Fatal("Backends() did not include a just-registered backend")
	}

	c, err := Open("cpu-fake")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Name() != "fake" {
		t.Errorf("Open returned compiler named %q", c.Name())
	}

	if _, err := Open("no-such-backend-xyz"); err != ErrNoBackend {
		t.Fatalf("Open(unknown) = %v, want ErrNoBackend", err)
	}
}
