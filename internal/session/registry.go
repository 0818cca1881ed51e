// Package session implements the session registry (spec.md §4.4): a
// process-local, thread-confined map from an opaque u32 handle to a
// Session record owning one crypto provider.
package session

import (
	"crypto/ed25519"
	"sync"

	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/provider"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// Session is owned exclusively by the Registry entry keyed by its id.
type Session struct {
	Provider          *provider.Provider
	Signer            ed25519.PrivateKey
	Identity          []byte
	SigningPublicKey  []byte
}

// Registry is the process-local `{u32 -> Session}` map plus the
// monotonically increasing id counter, guarded by a single mutex. There
// is no suspension point inside a held lock, so calls against one
// session are totally ordered and calls against different sessions are
// independent (spec.md §5).
type Registry struct {
	mu       sync.Mutex
	sessions map[uint32]*Session
	nextID   uint32
	log      log.Logger
}

// NewRegistry returns an empty Registry. logger may be nil, in which
// case a default component logger is used.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.New("component", "session")
	}
	return &Registry{
		sessions: make(map[uint32]*Session),
		nextID:   1,
		log:      logger,
	}
}

// SetLogger swaps the registry's logger, for callers that configure
// logging after construction (e.g. cmd/mlscored reading config first).
func (r *Registry) SetLogger(logger log.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.log = logger
	}
}

// Logger returns the registry's current logger, threaded explicitly
// into group operations rather than held package-globally by them.
func (r *Registry) Logger() log.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log
}

// New allocates a session id, builds a fresh provider, stores the
// signer in it, and inserts the record. Fails with StorageError only if
// storing the signer fails.
func (r *Registry) New(bundle identity.Bundle) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	signer := bundle.SigningKey()
	prov := provider.New()
	if err := prov.Storage().StoreSigner(signer.Seed(), bundle.SigningPublicKey); err != nil {
		return 0, mlserr.New(mlserr.StorageError, "store signer for new session: %v", err)
	}

	id := r.nextID
	r.nextID++
	r.sessions[id] = &Session{
		Provider:         prov,
		Signer:           signer,
		Identity:         append([]byte(nil), bundle.Identity...),
		SigningPublicKey: append([]byte(nil), bundle.SigningPublicKey...),
	}
	r.log.Info("session created", "session_id", id, "identity", wire.HumanID(bundle.Identity))
	return id, nil
}

// Drop frees a session's provider and all contained group state,
// reporting whether it was present.
func (r *Registry) Drop(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.log.Info("session destroyed", "session_id", id)
	}
	return ok
}

// With is the sole reentry point for group operations: it looks up the
// session and runs fn against it while holding the registry lock. fn
// must not call back into Registry.With (or any other Registry method)
// for the same or a different session — the mutex is not reentrant, so
// doing so deadlocks rather than silently succeeding, matching the
// "must not be supported" rule in spec.md §5.
func (r *Registry) With(id uint32, fn func(*Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return mlserr.New(mlserr.SessionNotFound, "session %d", id)
	}
	return fn(s)
}

// Count reports the number of live sessions, for diagnostics only.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
