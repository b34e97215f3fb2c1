package auth

import (
	"context"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// IdentityRepository is the credential store as the orchestrator sees it.
// Create is conditional: it fails with model.ErrIdentityExists rather than
// overwrite.
type IdentityRepository interface {
	Get(ctx context.Context, fc model.FriendCode) (*model.Identity, error)
	Create(ctx context.Context, identity *model.Identity) error
	Update(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error)
	Exists(ctx context.Context, fc model.FriendCode) (bool, error)
}

// Mode names where identities live
type Mode string

const (
	ModeRemote    Mode = "remote"
	ModeLocalOnly Mode = "local-only"
)

// Backend is an IdentityRepository chosen once at startup
type Backend interface {
	IdentityRepository
	Mode() Mode
}

// storeRepository adapts a storage.IdentityStore
type storeRepository struct {
	store storage.IdentityStore
}

func (r storeRepository) Get(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	return r.store.GetIdentity(ctx, fc)
}

func (r storeRepository) Create(ctx context.Context, identity *model.Identity) error {
	return r.store.CreateIdentity(ctx, identity)
}

func (r storeRepository) Update(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error) {
	return r.store.UpdateIdentity(ctx, fc, patch)
}

func (r storeRepository) Exists(ctx context.Context, fc model.FriendCode) (bool, error) {
	return r.store.IdentityExists(ctx, fc)
}

// RemoteBackend keeps identities in the shared hosted store, reached over
// HTTP or directly in Redis
type RemoteBackend struct {
	storeRepository
}

// NewRemoteBackend creates a backend over the hosted store
func NewRemoteBackend(store storage.IdentityStore) *RemoteBackend {
	return &RemoteBackend{storeRepository{store: store}}
}

func (*RemoteBackend) Mode() Mode { return ModeRemote }

// LocalOnlyBackend keeps identities on this device. Accounts made here are
// not visible to anyone else.
type LocalOnlyBackend struct {
	storeRepository
}

// NewLocalOnlyBackend creates a backend over an on-device store
func NewLocalOnlyBackend(store storage.IdentityStore) *LocalOnlyBackend {
	return &LocalOnlyBackend{storeRepository{store: store}}
}

func (*LocalOnlyBackend) Mode() Mode { return ModeLocalOnly }
