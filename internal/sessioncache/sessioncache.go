// Package sessioncache implements TLS/SSL session resumption storage:
// a mutex-protected table of cached sessions keyed by session ID, with
// a one-hour expiry and checksum-based integrity matching so a client
// offering a stale or corrupted session ID falls back to a full
// handshake instead of resuming it.
package sessioncache

import (
	"crypto/sha1"
	"crypto/subtle"
	"sync"
	"time"

	"cryptkit/internal/errors"
)

// Lifetime is how long a cached session remains resumable.
const Lifetime = time.Hour

// Session is one resumable session's state.
type Session struct {
	ID           []byte
	MasterSecret []byte
	CipherSuite  uint16
	Version      [2]byte
	createdAt    time.Time
	checksum     [20]byte // sha1(ID || MasterSecret), detects corruption independent of the map key
}

// checksumOf computes the integrity checksum stored alongside a session.
func checksumOf(id, masterSecret []byte) [20]byte {
	h := sha1.New()
	h.Write(id)
	h.Write(masterSecret)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Cache is a mutex-protected session table. The zero value is not
// usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextSeq  uint64
}

// New returns an empty session cache.
func New() *Cache {
	return &Cache{sessions: make(map[string]*Session)}
}

// NewSessionID returns a fresh, monotonically unique session identifier:
// an 8-byte big-endian sequence number followed by 24 bytes of the
// hash of the sequence number and a caller-supplied entropy source, so
// IDs are unique across cache restarts without needing persisted state.
func (c *Cache) NewSessionID(entropy []byte) []byte {
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	c.mu.Unlock()

	var seqBytes [8]byte
	v := seq
	for i := 7; i >= 0; i-- {
		seqBytes[i] = byte(v)
		v >>= 8
	}

	h := sha1.New()
	h.Write(seqBytes[:])
	h.Write(entropy)
	// sha1 gives 20 bytes; pad to 24 with a second round keyed by the
	// first so the ID has a stable 32-byte length regardless of input.
	second := sha1.Sum(append(seqBytes[:], h.Sum(nil)...))

	id := make([]byte, 0, 32)
	id = append(id, seqBytes[:]...)
	id = append(id, h.Sum(nil)...)
	id = append(id, second[:4]...)
	return id
}

// Put stores a new session, computing its integrity checksum.
func (c *Cache) Put(id, masterSecret []byte, cipherSuite uint16, version [2]byte) {
	s := &Session{
		ID:           append([]byte(nil), id...),
		MasterSecret: append([]byte(nil), masterSecret...),
		CipherSuite:  cipherSuite,
		Version:      version,
		createdAt:    time.Now(),
	}
	s.checksum = checksumOf(s.ID, s.MasterSecret)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[string(id)] = s
}

// Get looks up a session by ID. It returns an error rather than a
// usable session if the ID is unknown, expired, or its checksum no
// longer matches its content (tamper or map corruption) — all of
// which mean the caller must fall back to a full handshake.
func (c *Cache) Get(id []byte) (*Session, error) {
	c.mu.Lock()
	s, ok := c.sessions[string(id)]
	if ok && time.Since(s.createdAt) > Lifetime {
		delete(c.sessions, string(id))
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return nil, errors.Wrap(errors.ErrNotInitialised, "sessioncache: no session for id")
	}
	want := checksumOf(s.ID, s.MasterSecret)
	if subtle.ConstantTimeCompare(want[:], s.checksum[:]) != 1 {
		return nil, errors.Wrap(errors.ErrBadData, "sessioncache: checksum mismatch")
	}
	return s, nil
}

// Delete removes a session, e.g. after a fatal alert invalidates it.
func (c *Cache) Delete(id []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, string(id))
}

// Sweep removes every expired session. Callers with a long-lived cache
// should call this periodically; Get also self-expires lazily.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, s := range c.sessions {
		if time.Since(s.createdAt) > Lifetime {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions currently cached, including any
// not yet lazily swept past expiry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
