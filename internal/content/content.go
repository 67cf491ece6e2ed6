// Package content implements the envelope's content list: a
// doubly-linked sequence of groups (one per info object — a signature,
// a recipient, a certificate) traversed by an external cursor that
// moves between groups and, within the selected group, across a fixed
// set of virtual attributes.
package content

import (
	"cryptkit/internal/errors"
)

// Attribute identifies one of a group's virtual attributes. Not every
// group populates every attribute; the cursor skips absent ones.
type Attribute int

const (
	AttrResult Attribute = iota
	AttrSignerKey
	AttrExtraData
	AttrTimestamp

	numAttributes
)

// attributeOrder is the fixed traversal order within a group: result,
// signer key, extra data, timestamp.
var attributeOrder = [...]Attribute{AttrResult, AttrSignerKey, AttrExtraData, AttrTimestamp}

// Group is one info object: the envelope-level record of a single
// signature, recipient, or certificate, plus whatever of its virtual
// attributes have been populated.
type Group struct {
	next, prev *Group

	// Values holds whatever attributes this group has populated; a
	// missing key means the attribute is absent for this item and the
	// cursor skips over it.
	Values map[Attribute]any

	// Resolved caches an automatically-resolved resource so a second
	// request for the same attribute doesn't redo the resolution.
	Resolved map[Attribute]bool
}

// NewGroup returns an empty group ready to have attributes set on it.
func NewGroup() *Group {
	return &Group{Values: make(map[Attribute]any), Resolved: make(map[Attribute]bool)}
}

// Set stores a value for one of the group's virtual attributes.
func (g *Group) Set(attr Attribute, value any) {
	g.Values[attr] = value
}

// Has reports whether attr is populated on this group.
func (g *Group) Has(attr Attribute) bool {
	_, ok := g.Values[attr]
	return ok
}

// Get returns the value for attr and whether it was present.
func (g *Group) Get(attr Attribute) (any, bool) {
	v, ok := g.Values[attr]
	return v, ok
}

// List is the envelope's doubly-linked content list.
type List struct {
	head, tail *Group
	count      int
}

// New returns an empty content list.
func New() *List {
	return &List{}
}

// Append adds a new group at the tail of the list and returns it.
func (l *List) Append() *Group {
	g := NewGroup()
	if l.tail == nil {
		l.head, l.tail = g, g
	} else {
		g.prev = l.tail
		l.tail.next = g
		l.tail = g
	}
	l.count++
	return g
}

// Len returns the number of groups in the list.
func (l *List) Len() int { return l.count }

// Cursor is the content list's external traversal cursor: it tracks
// the currently selected group (group axis) and the currently
// selected virtual attribute within it (attribute axis).
type Cursor struct {
	list    *List
	group   *Group
	attrIdx int
}

// NewCursor returns a cursor positioned before the first group.
func NewCursor(l *List) *Cursor {
	return &Cursor{list: l}
}

// FirstGroup moves the cursor to the list's first group.
func (c *Cursor) FirstGroup() error {
	if c.list.head == nil {
		return errors.Wrap(errors.ErrNotInitialised, "content: list is empty")
	}
	c.group = c.list.head
	c.attrIdx = -1
	return nil
}

// NextGroup advances the cursor to the next group along the group
// axis, resetting the attribute axis.
func (c *Cursor) NextGroup() error {
	if c.group == nil {
		return c.FirstGroup()
	}
	if c.group.next == nil {
		return errors.Wrap(errors.ErrUnderflow, "content: no further groups")
	}
	c.group = c.group.next
	c.attrIdx = -1
	return nil
}

// PrevGroup moves the cursor to the previous group.
func (c *Cursor) PrevGroup() error {
	if c.group == nil || c.group.prev == nil {
		return errors.Wrap(errors.ErrUnderflow, "content: no previous group")
	}
	c.group = c.group.prev
	c.attrIdx = -1
	return nil
}

// CurrentGroup returns the group the cursor currently sits on, or nil
// if the cursor hasn't been positioned yet.
func (c *Cursor) CurrentGroup() *Group { return c.group }

// NextAttribute advances the attribute axis to the next populated
// virtual attribute within the current group, skipping any that are
// absent, per the fixed order result → signer-key → extra-data →
// timestamp.
func (c *Cursor) NextAttribute() (Attribute, error) {
	if c.group == nil {
		return 0, errors.Wrap(errors.ErrWrongState, "content: no group selected")
	}
	for i := c.attrIdx + 1; i < len(attributeOrder); i++ {
		attr := attributeOrder[i]
		if c.group.Has(attr) {
			c.attrIdx = i
			return attr, nil
		}
	}
	return 0, errors.Wrap(errors.ErrUnderflow, "content: no further populated attributes")
}

// CurrentAttribute returns the attribute the cursor currently sits on
// within its group.
func (c *Cursor) CurrentAttribute() Attribute {
	if c.attrIdx < 0 || c.attrIdx >= len(attributeOrder) {
		return AttrResult
	}
	return attributeOrder[c.attrIdx]
}

// Resolver attempts to derive a missing attribute's value from
// envelope-level state (a cert chain attached to a signature group, a
// sig-check keyset bound to the envelope). ResolveAttribute caches the
// resolved value in the group and marks it in Group.Resolved; no
// separate set of still-required resources is kept.
type Resolver func(g *Group, attr Attribute) (any, error)

// ResolveAttribute returns g's value for attr, invoking resolve and
// caching the result if the attribute isn't already populated.
func ResolveAttribute(g *Group, attr Attribute, resolve Resolver) (any, error) {
	if v, ok := g.Get(attr); ok {
		return v, nil
	}
	v, err := resolve(g, attr)
	if err != nil {
		return nil, err
	}
	g.Set(attr, v)
	g.Resolved[attr] = true
	return v, nil
}
