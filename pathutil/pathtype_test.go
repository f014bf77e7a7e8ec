package pathutil

import "testing"

func TestUnixParseAndNormalize(t *testing.T) {
	svc := NewPathService(Unix, nil)

	p, err := svc.Parse("/a//b/./c/../d")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := p.Normalize().Format()
	if got != "/a/b/d" {
		t.Fatalf("Normalize().Format() = %q, want %q", got, "/a/b/d")
	}
}

func TestWindowsParseForwardSlashes(t *testing.T) {
	svc := NewPathService(Windows, nil)

	p, err := svc.Parse(`C:/foo\bar`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	root, ok := p.Root()
	if !ok || root.String() != `C:\` {
		t.Fatalf("root = %v, ok=%v", root, ok)
	}
	if p.NameCount() != 2 || p.GetName(0).String() != "foo" || p.GetName(1).String() != "bar" {
		t.Fatalf("names = %v", p)
	}
	if got := p.Format(); got != `C:\foo\bar` {
		t.Fatalf("Format() = %q", got)
	}
}

func TestWindowsRelativeDriveRejected(t *testing.T) {
	svc := NewPathService(Windows, nil)

	if _, err := svc.Parse("C:relative"); err == nil {
		t.Fatalf("expected INVALID_PATH parsing C:relative")
	}
}

func TestWindowsReservedCharactersRejected(t *testing.T) {
	svc := NewPathService(Windows, nil)
	if _, err := svc.Parse(`C:\foo<bar`); err == nil {
		t.Fatalf("expected INVALID_PATH for reserved character")
	}
}

func TestWindowsUNCRoot(t *testing.T) {
	svc := NewPathService(Windows, nil)
	p, err := svc.Parse(`\\host\share\dir`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root, ok := p.Root()
	if !ok || root.String() != `\\host\share\` {
		t.Fatalf("root = %v", root)
	}
}

func TestCaseFoldASCIINameEquality(t *testing.T) {
	foo := NewName("Foo", CaseFoldASCII)
	bar := NewName("foo", CaseFoldASCII)
	if !foo.Equal(bar) {
		t.Fatalf("expected Foo == foo under CASE_FOLD_ASCII")
	}

	fooNoFold := NewName("Foo", nil)
	barNoFold := NewName("foo", nil)
	if fooNoFold.Equal(barNoFold) {
		t.Fatalf("expected Foo != foo with no normalization")
	}
}

func TestDotAndDotDotAreSingletonsRegardlessOfNormalization(t *testing.T) {
	d1 := NewName(".", CaseFoldASCII)
	d2 := NewName(".", nil)
	if d1 != d2 {
		t.Fatalf("expected \".\" to always be the same singleton Name")
	}
	if !d1.IsDot() {
		t.Fatalf("expected IsDot() true")
	}
}
