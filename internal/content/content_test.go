package content

import (
	"testing"

	"cryptkit/internal/errors"
)

func TestAppendAndGroupNavigation(t *testing.T) {
	l := New()
	g1 := l.Append()
	g2 := l.Append()
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	c := NewCursor(l)
	if err := c.FirstGroup(); err != nil {
		t.Fatalf("FirstGroup: %v", err)
	}
	if c.CurrentGroup() != g1 {
		t.Fatal("FirstGroup did not select the first appended group")
	}
	if err := c.NextGroup(); err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if c.CurrentGroup() != g2 {
		t.Fatal("NextGroup did not select the second group")
	}
	if err := c.NextGroup(); !errors.Is(err, errors.ErrUnderflow) {
		t.Fatalf("NextGroup past end error = %v, want ErrUnderflow", err)
	}
	if err := c.PrevGroup(); err != nil {
		t.Fatalf("PrevGroup: %v", err)
	}
	if c.CurrentGroup() != g1 {
		t.Fatal("PrevGroup did not move back to the first group")
	}
}

func TestAttributeCursorSkipsAbsent(t *testing.T) {
	l := New()
	g := l.Append()
	g.Set(AttrResult, "verified")
	g.Set(AttrTimestamp, 1700000000)
	// AttrSignerKey and AttrExtraData are absent.

	c := NewCursor(l)
	c.FirstGroup()

	attr, err := c.NextAttribute()
	if err != nil || attr != AttrResult {
		t.Fatalf("first attribute = %v, %v; want AttrResult, nil", attr, err)
	}
	attr, err = c.NextAttribute()
	if err != nil || attr != AttrTimestamp {
		t.Fatalf("second attribute = %v, %v; want AttrTimestamp, nil", attr, err)
	}
	if _, err := c.NextAttribute(); !errors.Is(err, errors.ErrUnderflow) {
		t.Fatalf("NextAttribute past end error = %v, want ErrUnderflow", err)
	}
}

func TestResolveAttributeCachesResult(t *testing.T) {
	g := NewGroup()
	calls := 0
	resolver := func(g *Group, attr Attribute) (any, error) {
		calls++
		return "resolved-cert-chain", nil
	}

	v, err := ResolveAttribute(g, AttrSignerKey, resolver)
	if err != nil {
		t.Fatalf("ResolveAttribute: %v", err)
	}
	if v != "resolved-cert-chain" {
		t.Fatalf("value = %v", v)
	}
	if !g.Resolved[AttrSignerKey] {
		t.Fatal("Resolved flag not set")
	}

	// Second call must not invoke the resolver again.
	if _, err := ResolveAttribute(g, AttrSignerKey, resolver); err != nil {
		t.Fatalf("second ResolveAttribute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("resolver called %d times, want 1", calls)
	}
}

func TestResolveAttributePropagatesError(t *testing.T) {
	g := NewGroup()
	wantErr := errors.Wrap(errors.ErrResourceRequired, "content: no keyset bound")
	resolver := func(g *Group, attr Attribute) (any, error) {
		return nil, wantErr
	}
	if _, err := ResolveAttribute(g, AttrSignerKey, resolver); err == nil {
		t.Fatal("expected error from resolver to propagate")
	}
	if g.Has(AttrSignerKey) {
		t.Fatal("attribute should not be set when resolution fails")
	}
}
