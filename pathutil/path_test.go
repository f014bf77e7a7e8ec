package pathutil

import "testing"

func TestNormalizeIsIdempotent(t *testing.T) {
	svc := NewPathService(Unix, nil)
	p, err := svc.Parse("/a/../../b/./c")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	once := p.Normalize()
	twice := once.Normalize()
	if !once.Equal(twice) {
		t.Fatalf("normalize not idempotent: %v vs %v", once, twice)
	}
}

func TestRelativizeRoundTrips(t *testing.T) {
	svc := NewPathService(Unix, nil)
	a, _ := svc.Parse("/a/b")
	b, _ := svc.Parse("/a/b/c/d")

	rel, err := a.Relativize(b)
	if err != nil {
		t.Fatalf("Relativize: %v", err)
	}

	got := a.Resolve(rel).Normalize()
	want := b.Normalize()
	if !got.Equal(want) {
		t.Fatalf("a.Resolve(a.Relativize(b)).Normalize() = %v, want %v", got, want)
	}
}

func TestRelativizeWithAscent(t *testing.T) {
	svc := NewPathService(Unix, nil)
	a, _ := svc.Parse("/a/b/c")
	b, _ := svc.Parse("/a/x")

	rel, err := a.Relativize(b)
	if err != nil {
		t.Fatalf("Relativize: %v", err)
	}
	if got := rel.Format(); got != "../../x" {
		t.Fatalf("rel = %q, want ../../x", got)
	}

	got := a.Resolve(rel).Normalize()
	want := b.Normalize()
	if !got.Equal(want) {
		t.Fatalf("round trip failed: %v vs %v", got, want)
	}
}

func TestRelativizeRequiresSameAbsoluteness(t *testing.T) {
	svc := NewPathService(Unix, nil)
	a, _ := svc.Parse("/a/b")
	b, _ := svc.Parse("rel/path")

	if _, err := a.Relativize(b); err == nil {
		t.Fatalf("expected error relativizing absolute against relative")
	}
}

func TestStartsWithEndsWithComponentWise(t *testing.T) {
	svc := NewPathService(Unix, nil)
	p, _ := svc.Parse("/foo/bar/baz")
	prefix, _ := svc.Parse("/foo/bar")
	notPrefix, _ := svc.Parse("/foo/ba")

	if !p.StartsWith(prefix) {
		t.Fatalf("expected StartsWith to be true for /foo/bar")
	}
	if p.StartsWith(notPrefix) {
		t.Fatalf("expected StartsWith to be false for /foo/ba (component-wise, not string prefix)")
	}

	suffix, _ := svc.Parse("bar/baz")
	if !p.EndsWith(suffix) {
		t.Fatalf("expected EndsWith to be true for bar/baz")
	}
}

func TestGetParentAndFileName(t *testing.T) {
	svc := NewPathService(Unix, nil)
	p, _ := svc.Parse("/a/b/c")

	parent, ok := p.GetParent()
	if !ok || parent.Format() != "/a/b" {
		t.Fatalf("GetParent() = %v, ok=%v", parent, ok)
	}

	fn, ok := p.GetFileName()
	if !ok || fn.String() != "c" {
		t.Fatalf("GetFileName() = %v, ok=%v", fn, ok)
	}
}
