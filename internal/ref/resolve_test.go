package ref

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare", in: "e12", want: "e12"},
		{name: "prefixed", in: "@e12", want: "e12"},
		{name: "explicit", in: "ref=e12", want: "e12"},
		{name: "whitespace", in: "  e3 ", want: "e3"},
		{name: "empty", in: "", wantErr: true},
		{name: "no number", in: "e", wantErr: true},
		{name: "wrong letter", in: "f1", wantErr: true},
		{name: "double prefix", in: "@@e1", wantErr: true},
		{name: "trailing junk", in: "e1x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseRef(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRefFormsEquivalent(t *testing.T) {
	for _, form := range []string{"e7", "@e7", "ref=e7"} {
		got, err := ParseRef(form)
		if err != nil {
			t.Fatalf("ParseRef(%q) error = %v", form, err)
		}
		if got != "e7" {
			t.Errorf("ParseRef(%q) = %q, want e7", form, got)
		}
	}
}

func TestResolveRoundTrip(t *testing.T) {
	snap := Build(page(), Options{}, 4)

	for _, want := range snap.Entries() {
		got, err := snap.Resolve(want.Ref, 4)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", want.Ref, err)
		}
		if got.BackendID != want.BackendID {
			t.Errorf("Resolve(%s) backend = %d, want %d", want.Ref, got.BackendID, want.BackendID)
		}
	}
}

func TestResolveAcceptsAllForms(t *testing.T) {
	snap := Build(page(), Options{}, 1)

	for _, form := range []string{"e1", "@e1", "ref=e1"} {
		if _, err := snap.Resolve(form, 1); err != nil {
			t.Errorf("Resolve(%q) error = %v", form, err)
		}
	}
}

func TestResolveStaleGeneration(t *testing.T) {
	snap := Build(page(), Options{}, 2)

	_, err := snap.Resolve("e1", 3)
	var stale *StaleRefError
	if !errors.As(err, &stale) {
		t.Fatalf("Resolve() error = %v, want StaleRefError", err)
	}
	if stale.Generation != 2 || stale.Current != 3 {
		t.Errorf("stale error generations = %d/%d, want 2/3", stale.Generation, stale.Current)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	snap := Build(page(), Options{}, 1)

	_, err := snap.Resolve("e99", 1)
	var stale *StaleRefError
	if !errors.As(err, &stale) {
		t.Fatalf("Resolve(e99) error = %v, want StaleRefError", err)
	}
}

func TestResolveAfterTreeChange(t *testing.T) {
	// Generation 1 addresses a button; the rebuilt page no longer has
	// it. The old snapshot must fail distinctly, not match e1 of the
	// new tree.
	old := Build(page(), Options{}, 1)
	target, err := old.Resolve("e2", 1)
	if err != nil {
		t.Fatalf("Resolve(e2) error = %v", err)
	}

	changed := &Node{Role: "RootWebArea", BackendID: 1, Children: []*Node{
		{Role: "link", Name: "Elsewhere", BackendID: 99},
	}}
	fresh := Build(changed, Options{}, 2)

	if _, err := old.Resolve("e2", 2); err == nil {
		t.Fatal("old snapshot resolved against new generation")
	}
	got, err := fresh.Resolve("e1", 2)
	if err != nil {
		t.Fatalf("Resolve(e1) on fresh snapshot error = %v", err)
	}
	if got.BackendID == target.BackendID {
		t.Error("fresh snapshot silently matched the old element")
	}
}
