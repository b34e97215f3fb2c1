// Package content manages the achievement and article registries. Every item
// ID can be held by at most one player; templates are copied into instances
// so the same badge or guide can be handed out more than once.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/dependencies/random"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
)

const (
	// SuffixLength is the random suffix on a template ID
	SuffixLength = 6
	// InstanceSuffixLength is the random suffix on an instance ID
	InstanceSuffixLength = 9
)

// Item is a registry entry. T is the pointer type itself.
type Item[T any] interface {
	Key() string
	Slot() *model.Assignment
	Group() string
	Label() string
	WithDefaults(id string, now time.Time) T
	Instance(id string, now time.Time) T
}

// Collection binds a registry to its storage
type Collection[T any] struct {
	// Prefix starts every template ID, e.g. "ach"
	Prefix   string
	CacheKey string
	NotFound error

	Get    func(ctx context.Context, id string) (T, error)
	Save   func(ctx context.Context, item T) error
	Delete func(ctx context.Context, id string) error
	List   func(ctx context.Context) ([]T, error)
}

// Stats summarizes a registry
type Stats struct {
	Total      int            `json:"total"`
	Assigned   int            `json:"assigned"`
	Available  int            `json:"available"`
	ByCategory map[string]int `json:"byCategory"`
}

// Registry holds uniquely assignable items
type Registry[T Item[T]] struct {
	coll   Collection[T]
	cache  *cache.Cache
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	// serializes assign and release within this process
	mu sync.Mutex
}

// NewRegistry creates a registry over coll. The cache is optional.
func NewRegistry[T Item[T]](coll Collection[T], c *cache.Cache, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Registry[T] {
	return &Registry[T]{
		coll:   coll,
		cache:  c,
		clock:  clk,
		random: rnd,
		logger: logger,
	}
}

// CreateTemplate stores a new unassigned item with defaults applied
func (r *Registry[T]) CreateTemplate(ctx context.Context, actor *authz.Actor, tmpl T) (T, error) {
	var zero T
	if err := authz.RequireAdmin(actor); err != nil {
		return zero, err
	}

	item := tmpl.WithDefaults(r.newID(tmpl.Label()), r.clock.Now())
	if err := r.coll.Save(ctx, item); err != nil {
		return zero, r.storeError("create_template", err)
	}
	r.invalidate()
	r.logger.Info("template created",
		slog.String("registry", r.coll.Prefix),
		slog.String("id", item.Key()))
	return item, nil
}

// GenerateInstances copies a template n times
func (r *Registry[T]) GenerateInstances(ctx context.Context, actor *authz.Actor, templateID string, n int) ([]T, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, model.NewValidationError("count", "Count must be at least 1")
	}

	tmpl, err := r.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	instances := make([]T, 0, n)
	for range n {
		now := r.clock.Now()
		id := fmt.Sprintf("%s_%d_%s", templateID, now.UnixMilli(), r.random.String(InstanceSuffixLength, random.Alphanumeric))
		inst := tmpl.Instance(id, now)
		if err := r.coll.Save(ctx, inst); err != nil {
			return instances, r.storeError("generate_instances", err)
		}
		instances = append(instances, inst)
	}
	r.invalidate()
	r.logger.Info("instances generated",
		slog.String("registry", r.coll.Prefix),
		slog.String("template", templateID),
		slog.Int("count", n))
	return instances, nil
}

// Create stores a template plus count-1 instances of it
func (r *Registry[T]) Create(ctx context.Context, actor *authz.Actor, tmpl T, count int) ([]T, error) {
	created, err := r.CreateTemplate(ctx, actor, tmpl)
	if err != nil {
		return nil, err
	}
	items := []T{created}
	if count <= 1 {
		return items, nil
	}
	instances, err := r.GenerateInstances(ctx, actor, created.Key(), count-1)
	return append(items, instances...), err
}

// Get returns one item
func (r *Registry[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := r.coll.Get(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, r.coll.NotFound) {
			return zero, err
		}
		return zero, r.storeError("get", err)
	}
	return item, nil
}

// List returns every item, cached
func (r *Registry[T]) List(ctx context.Context) ([]T, error) {
	var (
		items []T
		err   error
	)
	if r.cache != nil {
		items, err = cache.Get(ctx, r.cache, r.coll.CacheKey, 0, r.coll.List)
	} else {
		items, err = r.coll.List(ctx)
	}
	if err != nil {
		return nil, r.storeError("list", err)
	}
	return items, nil
}

// Available returns the unassigned items
func (r *Registry[T]) Available(ctx context.Context) ([]T, error) {
	return r.filter(ctx, func(item T) bool { return !item.Slot().Assigned() })
}

// ForPlayer returns the items held by fc
func (r *Registry[T]) ForPlayer(ctx context.Context, fc model.FriendCode) ([]T, error) {
	fc = model.NormalizeFriendCode(string(fc))
	return r.filter(ctx, func(item T) bool { return item.Slot().AssignedTo == fc })
}

// Assign gives the item to fc. An item held by anyone fails with
// model.ErrAlreadyAssigned. Callers gate access.
func (r *Registry[T]) Assign(ctx context.Context, id string, fc model.FriendCode) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	item, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if item.Slot().Assigned() {
		return zero, oops.
			Code("ALREADY_ASSIGNED").
			With("id", id).
			With("assigned_to", string(item.Slot().AssignedTo)).
			Wrap(model.ErrAlreadyAssigned)
	}

	item.Slot().Assign(model.NormalizeFriendCode(string(fc)), r.clock.Now())
	if err := r.coll.Save(ctx, item); err != nil {
		return zero, r.storeError("assign", err)
	}
	r.invalidate()
	r.logger.Info("item assigned",
		slog.String("registry", r.coll.Prefix),
		slog.String("id", id),
		slog.String("friend_code", string(fc)))
	return item, nil
}

// Release clears the holder of an item
func (r *Registry[T]) Release(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !item.Slot().Assigned() {
		return nil
	}
	item.Slot().Release()
	if err := r.coll.Save(ctx, item); err != nil {
		return r.storeError("release", err)
	}
	r.invalidate()
	r.logger.Info("item released",
		slog.String("registry", r.coll.Prefix),
		slog.String("id", id))
	return nil
}

// Delete removes an item. Admin only.
func (r *Registry[T]) Delete(ctx context.Context, actor *authz.Actor, id string) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if err := r.coll.Delete(ctx, id); err != nil {
		return r.storeError("delete", err)
	}
	r.invalidate()
	return nil
}

// Stats counts items by assignment and category
func (r *Registry[T]) Stats(ctx context.Context) (Stats, error) {
	items, err := r.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(items), ByCategory: make(map[string]int)}
	for _, item := range items {
		if item.Slot().Assigned() {
			stats.Assigned++
		} else {
			stats.Available++
		}
		stats.ByCategory[item.Group()]++
	}
	return stats, nil
}

func (r *Registry[T]) filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(slices.Clone(items), func(item T) bool { return !keep(item) }), nil
}

// newID builds "<prefix>_<slug>_<unixms>_<rand6>"
func (r *Registry[T]) newID(title string) string {
	return r.coll.Prefix + "_" +
		model.Slug(title, "_", 0) + "_" +
		strconv.FormatInt(r.clock.Now().UnixMilli(), 10) + "_" +
		r.random.String(SuffixLength, random.Alphanumeric)
}

func (r *Registry[T]) invalidate() {
	if r.cache != nil {
		r.cache.Clear(r.coll.CacheKey)
	}
}

func (r *Registry[T]) storeError(op string, err error) error {
	return oops.
		Code("TRANSIENT_STORE").
		With("registry", r.coll.Prefix).
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", model.ErrTransientStore, err))
}
