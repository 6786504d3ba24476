// Package reconciler keeps the client's in-memory vault document and the
// server copy consistent.
//
// Every local mutation is applied to the document immediately and then
// persisted by re-encrypting the whole document. When persistence cannot
// happen, either because no derivation secret is resident or because the
// upload failed, the mutation stays applied and is marked pending until a
// later Persist or RetryPending succeeds. Each mutation bumps a revision
// counter; a successful upload clears only the pending marks at or below
// the revision it carried, so concurrent edits are never lost.
package reconciler

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/client/client"
	"github.com/dmitrijs2005/zkkeeper/internal/client/models"
	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/dmitrijs2005/zkkeeper/internal/logging"
	"github.com/dmitrijs2005/zkkeeper/internal/vaultx"
	"github.com/google/uuid"
)

var (
	// ErrMissingDerivationSecret means the change is applied locally but the
	// password must be re-entered before it can be persisted.
	ErrMissingDerivationSecret = errors.New("password required to sync vault")
	// ErrSyncDeferred wraps a failed upload. The change is kept as pending.
	ErrSyncDeferred = errors.New("vault sync deferred")
	// ErrNoKey is returned by a KeySource that holds no derivation secret.
	ErrNoKey = errors.New("no derivation secret resident")

	ErrEntryNotFound   = errors.New("entry not found")
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrUnsyncedChanges = errors.New("local changes not yet synced")
	ErrVaultNotLoaded  = errors.New("vault not loaded")
)

// Store is the server side of the vault. client.Client satisfies it.
type Store interface {
	GetVault(ctx context.Context) (*vaultx.Blob, error)
	PutVault(ctx context.Context, b *vaultx.Blob) error
}

// KeySource yields the vault key on demand. It returns ErrNoKey when the
// password is not resident. The caller wipes the returned key.
type KeySource interface {
	VaultKey(ctx context.Context) ([]byte, error)
}

type Reconciler struct {
	store  Store
	keys   KeySource
	logger logging.Logger
	now    func() time.Time

	// persistMu serializes uploads; mu guards the fields below it.
	persistMu sync.Mutex

	mu         sync.Mutex
	doc        *vaultx.Document
	loaded     bool
	revision   uint64
	persisted  uint64
	pending    map[string]uint64
	tombstones map[string]uint64
	digest     [sha256.Size]byte
}

func New(store Store, keys KeySource, logger logging.Logger) *Reconciler {
	r := &Reconciler{store: store, keys: keys, logger: logger, now: time.Now}
	r.reset()
	return r
}

func (r *Reconciler) reset() {
	r.doc = &vaultx.Document{Entries: []vaultx.Entry{}}
	r.loaded = false
	r.revision = 0
	r.persisted = 0
	r.pending = map[string]uint64{}
	r.tombstones = map[string]uint64{}
	r.digest = [sha256.Size]byte{}
}

// Reset drops the document and all pending state, e.g. on logout.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// Load fetches and decrypts the server vault. A vault the server does not
// have yields an empty document. Load refuses to overwrite pending local
// changes.
func (r *Reconciler) Load(ctx context.Context) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	if r.HasPending() {
		return ErrUnsyncedChanges
	}

	key, err := r.vaultKey(ctx)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	doc := &vaultx.Document{Entries: []vaultx.Entry{}}
	blob, err := r.store.GetVault(ctx)
	switch {
	case errors.Is(err, client.ErrVaultNotFound) || (err == nil && blob == nil):
	case err != nil:
		return fmt.Errorf("fetch vault: %w", err)
	default:
		if doc, err = vaultx.Decrypt(blob, key); err != nil {
			return err
		}
	}

	digest, err := digestOf(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	r.doc = doc
	r.loaded = true
	r.digest = digest
	return nil
}

// ApplyLocal applies m to the document and then tries to persist it. The
// returned entry reflects the mutation. A persistence failure is reported
// through the error while the mutation stays applied.
func (r *Reconciler) ApplyLocal(ctx context.Context, m Mutation) (vaultx.Entry, error) {
	e, err := r.apply(m)
	if err != nil {
		return vaultx.Entry{}, err
	}
	return e, r.Persist(ctx)
}

func (r *Reconciler) apply(m Mutation) (vaultx.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return vaultx.Entry{}, ErrVaultNotLoaded
	}
	now := r.now().UTC()

	switch m.Kind {
	case AddEntry:
		e := m.Entry
		if strings.TrimSpace(e.Name) == "" {
			return vaultx.Entry{}, fmt.Errorf("%w: name is required", ErrInvalidMutation)
		}
		if err := e.Validate(); err != nil {
			return vaultx.Entry{}, fmt.Errorf("%w: %w", ErrInvalidMutation, err)
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if r.doc.Find(e.ID) >= 0 {
			return vaultx.Entry{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidMutation, e.ID)
		}
		e.LastModified = now
		e.Strength = models.Strength(e.Password)
		e.Pending = false
		r.doc.Entries = append(r.doc.Entries, e)
		return r.markLocked(e.ID, false), nil

	case UpdateEntry:
		i := r.doc.Find(m.ID)
		if i < 0 {
			return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, m.ID)
		}
		e := m.Entry
		if strings.TrimSpace(e.Name) == "" {
			return vaultx.Entry{}, fmt.Errorf("%w: name is required", ErrInvalidMutation)
		}
		if err := e.Validate(); err != nil {
			return vaultx.Entry{}, fmt.Errorf("%w: %w", ErrInvalidMutation, err)
		}
		e.ID = m.ID
		e.LastModified = now
		e.Strength = models.Strength(e.Password)
		e.Pending = false
		r.doc.Entries[i] = e
		return r.markLocked(e.ID, false), nil

	case DeleteEntry:
		i := r.doc.Find(m.ID)
		if i < 0 {
			return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, m.ID)
		}
		e := r.doc.Entries[i]
		r.doc.Entries = append(r.doc.Entries[:i], r.doc.Entries[i+1:]...)
		r.markLocked(e.ID, true)
		e.Pending = true
		return e, nil

	case ToggleFavorite:
		i := r.doc.Find(m.ID)
		if i < 0 {
			return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, m.ID)
		}
		r.doc.Entries[i].Favorite = !r.doc.Entries[i].Favorite
		r.doc.Entries[i].LastModified = now
		return r.markLocked(m.ID, false), nil

	default:
		return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrInvalidMutation, m.Kind)
	}
}

// markLocked records a mutation of id at a new revision and returns the
// current entry view.
func (r *Reconciler) markLocked(id string, deleted bool) vaultx.Entry {
	r.revision++
	if deleted {
		delete(r.pending, id)
		r.tombstones[id] = r.revision
		return vaultx.Entry{}
	}
	delete(r.tombstones, id)
	r.pending[id] = r.revision

	e := r.doc.Entries[r.doc.Find(id)]
	e.Pending = true
	return e
}

// Persist encrypts the current document and uploads it.
func (r *Reconciler) Persist(ctx context.Context) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if len(r.pending) == 0 && len(r.tombstones) == 0 {
		r.mu.Unlock()
		return nil
	}
	snapshot := r.doc.Clone()
	rev := r.revision
	lastDigest := r.digest
	r.mu.Unlock()

	digest, err := digestOf(snapshot)
	if err != nil {
		return err
	}
	if digest == lastDigest {
		r.logger.Info(ctx, "vault unchanged since last sync", "revision", rev)
		r.settle(rev, digest)
		return nil
	}

	key, err := r.vaultKey(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingDerivationSecret) {
			r.logger.Warn(ctx, "vault changes kept pending", "revision", rev, "reason", "no derivation secret")
		}
		return err
	}
	defer common.WipeByteArray(key)

	blob, err := vaultx.Encrypt(snapshot, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyncDeferred, err)
	}

	if err := r.store.PutVault(ctx, blob); err != nil {
		r.logger.Warn(ctx, "vault upload failed", "revision", rev, "error", err)
		return fmt.Errorf("%w: %w", ErrSyncDeferred, err)
	}

	r.settle(rev, digest)
	r.logger.Info(ctx, "vault synced", "revision", rev)
	return nil
}

// settle clears the pending marks covered by revision rev.
func (r *Reconciler) settle(rev uint64, digest [sha256.Size]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rev > r.persisted {
		r.persisted = rev
	}
	for id, at := range r.pending {
		if at <= rev {
			delete(r.pending, id)
		}
	}
	for id, at := range r.tombstones {
		if at <= rev {
			delete(r.tombstones, id)
		}
	}
	r.digest = digest
}

// RetryPending persists pending changes. It is a no-op when nothing is
// pending and safe to call repeatedly.
func (r *Reconciler) RetryPending(ctx context.Context) error {
	if !r.HasPending() {
		return nil
	}
	return r.Persist(ctx)
}

func (r *Reconciler) vaultKey(ctx context.Context) ([]byte, error) {
	key, err := r.keys.VaultKey(ctx)
	if errors.Is(err, ErrNoKey) {
		return nil, ErrMissingDerivationSecret
	}
	if err != nil {
		return nil, fmt.Errorf("%w: derive vault key: %w", ErrSyncDeferred, err)
	}
	return key, nil
}

func (r *Reconciler) HasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) > 0 || len(r.tombstones) > 0
}

// PendingCount returns the number of entries awaiting sync, deletions
// included.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) + len(r.tombstones)
}

func (r *Reconciler) Revision() (current, persisted uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision, r.persisted
}

func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Entries returns a copy of the document's entries sorted by name, with
// Pending set from local bookkeeping.
func (r *Reconciler) Entries() []vaultx.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]vaultx.Entry, len(r.doc.Entries))
	copy(out, r.doc.Entries)
	for i := range out {
		_, out[i].Pending = r.pending[out[i].ID]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (r *Reconciler) Entry(id string) (vaultx.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.doc.Find(id)
	if i < 0 {
		return vaultx.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	e := r.doc.Entries[i]
	_, e.Pending = r.pending[id]
	return e, nil
}

func digestOf(d *vaultx.Document) ([sha256.Size]byte, error) {
	b, err := vaultx.Encode(d)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	defer common.WipeByteArray(b)
	return sha256.Sum256(b), nil
}
