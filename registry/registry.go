// Package registry holds the authoritative, in-memory table of mount
// points and their subscriber sets. It is the single piece of shared
// mutable state in the caster; every other package reaches it only
// through the methods below.
package registry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ntripcaster/caster/codec"
)

// Sentinel errors returned by Registry methods. Callers should compare
// against these with errors.Is rather than matching on message text.
// ErrNoCandidate is not returned by any method here: Nearest reports the
// no-positioned-mount case with ok == false.
var (
	ErrNameInUse   = errors.New("mount name already in use")
	ErrNotFound    = errors.New("mount not found")
	ErrAuth        = errors.New("credentials did not match")
	ErrNoCandidate = errors.New("no mount with a known position")
)

// Credentials is the username/password pair a publisher declares at
// registration and every subscriber must match byte-for-byte.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) equal(o Credentials) bool {
	return c.Username == o.Username && c.Password == o.Password &&
		c.Username != "" && c.Password != ""
}

// Sink is how the registry reaches a live subscriber connection without
// depending on the reactor package. Implementations deliver payload
// without blocking the caller.
type Sink interface {
	Send(payload []byte) bool
}

// MountPoint is the registry's record of one live publisher and its
// subscribers.
type MountPoint struct {
	Name          string
	PublisherID   string
	Credentials   Credentials
	Position      *codec.Position
	Advertisement string

	subscribers map[string]Sink
}

// Registry is the mount-point table. All methods are safe for concurrent
// use; mutation is serialized by a single RWMutex standing in for the
// reactor's "owned exclusively by the reactor" exclusivity invariant.
type Registry struct {
	mu sync.RWMutex

	mounts map[string]*MountPoint
	order  []string // registration order, for stable Nearest tie-breaking

	// subscriberMount maps a subscriber's connection identity straight to
	// its mount name: O(1) detach without scanning every MountPoint's
	// subscriber set.
	subscriberMount map[string]string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		mounts:          map[string]*MountPoint{},
		subscriberMount: map[string]string{},
	}
}

// AddMount registers a new publisher under name. It fails with
// ErrNameInUse if the name is already registered by a live publisher.
func (r *Registry) AddMount(name string, creds Credentials, position *codec.Position, advertisement, publisherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mounts[name]; ok {
		return errors.Wrapf(ErrNameInUse, "mount %q", name)
	}

	r.mounts[name] = &MountPoint{
		Name:          name,
		PublisherID:   publisherID,
		Credentials:   creds,
		Position:      position,
		Advertisement: advertisement,
		subscribers:   map[string]Sink{},
	}
	r.order = append(r.order, name)
	return nil
}

// RemoveMount removes the mount owned by publisherID, if any, and returns
// the identities of every subscriber that was attached to it. The caller
// is responsible for closing those connections; Registry only forgets
// them.
func (r *Registry) RemoveMount(publisherID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, mount := r.findByPublisher(publisherID)
	if mount == nil {
		return nil
	}

	ids := make([]string, 0, len(mount.subscribers))
	for id := range mount.subscribers {
		ids = append(ids, id)
		delete(r.subscriberMount, id)
	}

	delete(r.mounts, name)
	r.order = removeString(r.order, name)
	return ids
}

func (r *Registry) findByPublisher(publisherID string) (string, *MountPoint) {
	for _, name := range r.order {
		if mount := r.mounts[name]; mount.PublisherID == publisherID {
			return name, mount
		}
	}
	return "", nil
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// AttachSubscriber authenticates subscriberID against name's credentials
// and, on success, registers sink to receive forwarded payloads.
func (r *Registry) AttachSubscriber(name string, creds Credentials, subscriberID string, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mount, ok := r.mounts[name]
	if !ok {
		return errors.Wrapf(ErrNotFound, "mount %q", name)
	}
	if !mount.Credentials.equal(creds) {
		return errors.Wrapf(ErrAuth, "mount %q", name)
	}

	mount.subscribers[subscriberID] = sink
	r.subscriberMount[subscriberID] = name
	return nil
}

// DetachSubscriber removes subscriberID from whatever mount it was
// attached to. It is a no-op if the subscriber is unknown.
func (r *Registry) DetachSubscriber(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.subscriberMount[subscriberID]
	if !ok {
		return
	}
	delete(r.subscriberMount, subscriberID)
	if mount, ok := r.mounts[name]; ok {
		delete(mount.subscribers, subscriberID)
	}
}

// Nearest returns the name of the mount with a known position that
// minimizes Haversine distance to pos, breaking ties by first-registered.
// It reports false if no mount has a known position.
func (r *Registry) Nearest(pos codec.Position) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best string
	var bestDist float64
	found := false

	for _, name := range r.order {
		mount := r.mounts[name]
		if mount.Position == nil {
			continue
		}
		d := codec.Haversine(pos, *mount.Position)
		if !found || d < bestDist {
			best, bestDist, found = name, d, true
		}
	}

	if !found {
		return "", false
	}
	return best, true
}

// Credentials returns the credentials registered for name, for callers
// (handshake validation for non-auto mounts) that already hold the name.
func (r *Registry) Credentials(name string) (Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mount, ok := r.mounts[name]
	if !ok {
		return Credentials{}, errors.Wrapf(ErrNotFound, "mount %q", name)
	}
	return mount.Credentials, nil
}

// SourceTableText returns every live mount's verbatim advertisement line,
// in registration order.
func (r *Registry) SourceTableText() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, len(r.order))
	for _, name := range r.order {
		lines = append(lines, r.mounts[name].Advertisement)
	}
	return lines
}

// Subscribers returns a snapshot of the Sinks currently attached to the
// mount owned by publisherID. Used by the fan-out forwarder, which must
// not hold the registry lock while writing to sockets.
func (r *Registry) Subscribers(publisherID string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, mount := r.findByPublisher(publisherID)
	if mount == nil {
		return nil
	}
	sinks := make([]Sink, 0, len(mount.subscribers))
	for _, sink := range mount.subscribers {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Mount returns a copy of the named mount's status for read-only
// reporting (the monitor package). ok is false if the mount does not
// exist.
func (r *Registry) Mount(name string) (status MountStatus, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mount, exists := r.mounts[name]
	if !exists {
		return MountStatus{}, false
	}
	return mountStatus(mount), true
}

// Mounts returns a status snapshot of every live mount, in registration
// order.
func (r *Registry) Mounts() []MountStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MountStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, mountStatus(r.mounts[name]))
	}
	return out
}

// MountStatus is a read-only view of a MountPoint for reporting, stripped
// of credentials and Sink references.
type MountStatus struct {
	Name          string
	PublisherID   string
	Position      *codec.Position
	Advertisement string
	SubscriberIDs []string
}

func mountStatus(mount *MountPoint) MountStatus {
	ids := make([]string, 0, len(mount.subscribers))
	for id := range mount.subscribers {
		ids = append(ids, id)
	}
	return MountStatus{
		Name:          mount.Name,
		PublisherID:   mount.PublisherID,
		Position:      mount.Position,
		Advertisement: mount.Advertisement,
		SubscriberIDs: ids,
	}
}
