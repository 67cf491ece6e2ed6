// Package action implements the envelope's action list: an
// append-only, kind-sorted list of the cryptographic operations bound
// to one envelope (hash, MAC, encrypt, sign, key-exchange), with
// duplicate detection and pruning rules.
package action

import (
	"cryptkit/internal/crypto"
	"cryptkit/internal/errors"
)

// Kind identifies the category of an action. The list keeps actions
// sorted by Kind so a linear scan finds the first entry of a kind and
// iterates until the kind changes.
type Kind int

// Keyex kinds sort before hash/mac/encrypt/sign: a keyex establishes
// the session key its controlled actions then use, so it must run
// (and be found by a first-match scan) ahead of them.
const (
	KindKeyexPKC          Kind = iota // public-key (RSA) key exchange
	KindKeyexConventional             // password/PSK-derived key exchange
	KindHash
	KindMAC
	KindEncrypt
	KindSign
)

// Item is one entry in the action list.
type Item struct {
	Kind Kind
	Ctx  *crypto.Context

	// KeyID identifies the key used by a PKC keyex or sign action, for
	// duplicate detection. Unused (left empty) for other kinds.
	KeyID string

	// Algorithm names the algorithm used by a hash/mac/encrypt action,
	// for duplicate detection. Unused for keyex/sign actions.
	Algorithm string

	// AddedAutomatically marks an action the envelope engine inserted
	// on the caller's behalf (e.g. a hash action added alongside a
	// signature). Subject to delete_unused() pruning, and to being
	// silently promoted to a caller-owned action if the caller adds an
	// equivalent one explicitly afterward.
	AddedAutomatically bool

	// NeedsController marks a subject action (typically a hash) that
	// exists only to support a controller action (a signature) and
	// should be pruned if the controller goes away.
	NeedsController bool
}

// List is the envelope's action list: append-only, sorted by Kind,
// with add/find/delete/delete-unused operations.
type List struct {
	items []*Item
}

// New returns an empty action list.
func New() *List {
	return &List{}
}

// isDuplicate reports whether existing and candidate are duplicates:
// PKC keyex/sign actions match by key ID, hash/mac/encrypt actions
// match by algorithm, conventional keyex actions never match.
func isDuplicate(existing, candidate *Item) bool {
	if existing.Kind != candidate.Kind {
		return false
	}
	switch existing.Kind {
	case KindKeyexPKC, KindSign:
		return existing.KeyID == candidate.KeyID
	case KindHash, KindMAC, KindEncrypt:
		return existing.Algorithm == candidate.Algorithm
	case KindKeyexConventional:
		return false
	default:
		return false
	}
}

// Add inserts item into the list in kind-sorted position. If an
// existing entry duplicates it (per isDuplicate), Add fails with
// ErrAlreadySet unless the existing entry was AddedAutomatically, in
// which case the flag is cleared (the caller's explicit add now owns
// the slot) and Add reports success without inserting a second entry.
func (l *List) Add(item *Item) error {
	for _, existing := range l.items {
		if isDuplicate(existing, item) {
			if existing.AddedAutomatically {
				existing.AddedAutomatically = false
				return nil
			}
			return errors.Wrap(errors.ErrAlreadySet, "action: duplicate action")
		}
	}

	pos := len(l.items)
	for i, existing := range l.items {
		if existing.Kind > item.Kind {
			pos = i
			break
		}
	}
	l.items = append(l.items, nil)
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = item
	return nil
}

// Find returns the first item of the given kind, or nil if none.
func (l *List) Find(kind Kind) *Item {
	for _, item := range l.items {
		if item.Kind == kind {
			return item
		}
	}
	return nil
}

// FindAll returns every item of the given kind, in list order.
func (l *List) FindAll(kind Kind) []*Item {
	var out []*Item
	for _, item := range l.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// Delete removes item from the list. It is a no-op if item isn't
// present.
func (l *List) Delete(item *Item) {
	for i, existing := range l.items {
		if existing == item {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// DeleteUnused drops every subject action whose NeedsController flag is
// still set: hashes the envelope engine added automatically alongside
// a signature action that the caller subsequently overrode, leaving
// the auto-added hash orphaned.
func (l *List) DeleteUnused() {
	kept := l.items[:0]
	for _, item := range l.items {
		if item.NeedsController && item.AddedAutomatically {
			continue
		}
		kept = append(kept, item)
	}
	l.items = kept
}

// Len returns the number of actions in the list.
func (l *List) Len() int { return len(l.items) }

// All returns every item in the list, in kind-sorted order.
func (l *List) All() []*Item {
	return l.items
}
