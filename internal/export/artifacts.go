package export

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is a rendered report waiting to be downloaded.
type Artifact struct {
	Token     string
	Filename  string
	Body      []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Artifacts owns produced reports until they are downloaded or expire.
//
// An artifact is released by Release once its download completed, or by Sweep
// once its TTL passed. Nothing is released on a timer of its own.
type Artifacts struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]Artifact
}

// NewArtifacts returns an empty store whose artifacts live at most ttl.
func NewArtifacts(ttl time.Duration) *Artifacts {
	return &Artifacts{ttl: ttl, now: time.Now, items: make(map[string]Artifact)}
}

// Put registers a report and returns its artifact.
func (a *Artifacts) Put(filename string, body []byte) Artifact {
	now := a.now()
	art := Artifact{
		Token:     uuid.NewString(),
		Filename:  filename,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}

	a.mu.Lock()
	a.items[art.Token] = art
	a.mu.Unlock()

	return art
}

// Open returns the live artifact for token.
func (a *Artifacts) Open(token string) (Artifact, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	art, ok := a.items[token]
	if !ok || !a.now().Before(art.ExpiresAt) {
		return Artifact{}, false
	}
	return art, true
}

// Release drops the artifact for token. It reports whether one was held.
func (a *Artifacts) Release(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.items[token]
	delete(a.items, token)
	return ok
}

// Sweep drops every expired artifact and returns how many were dropped.
func (a *Artifacts) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	n := 0
	for token, art := range a.items {
		if !now.Before(art.ExpiresAt) {
			delete(a.items, token)
			n++
		}
	}
	return n
}

// Pending returns the number of artifacts currently held.
func (a *Artifacts) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.items)
}
