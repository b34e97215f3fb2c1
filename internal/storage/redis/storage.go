package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Each record is a JSON string under bamaco:<collection>:<id>; a SET per
// collection indexes the ids for listing.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Identity operations

func (s *Storage) GetIdentity(ctx context.Context, fc model.FriendCode) (*model.Identity, error) {
	return getRecord[model.Identity](ctx, s.client, identityKey(fc), model.ErrIdentityNotFound)
}

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	return s.create(ctx, model.CollectionIdentities, string(identity.FriendCode), identity, model.ErrIdentityExists)
}

// UpdateIdentity applies the patch inside a WATCH transaction. A concurrent
// write to the same identity aborts the transaction and the patch is retried
// against the fresh record, so patches to different fields all land.
func (s *Storage) UpdateIdentity(ctx context.Context, fc model.FriendCode, patch model.IdentityPatch) (*model.Identity, error) {
	key := identityKey(fc)
	var result *model.Identity

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrIdentityNotFound
		}
		if err != nil {
			return err
		}

		var identity model.Identity
		if err := json.Unmarshal(data, &identity); err != nil {
			return err
		}
		patch.Apply(&identity)

		out, err := json.Marshal(&identity)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			result = &identity
		}
		return err
	}

	backoff := retry.WithMaxRetries(s.cfg.UpdateRetries, retry.NewExponential(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, fc model.FriendCode) error {
	return s.remove(ctx, model.CollectionIdentities, string(fc))
}

func (s *Storage) IdentityExists(ctx context.Context, fc model.FriendCode) (bool, error) {
	exists, err := s.client.Exists(ctx, identityKey(fc)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) ListIdentities(ctx context.Context) ([]*model.Identity, error) {
	return listRecords[model.Identity](ctx, s.client, model.CollectionIdentities)
}

// Guild operations

func (s *Storage) CreateGuild(ctx context.Context, guild *model.Guild) error {
	return s.create(ctx, model.CollectionGuilds, guild.ID, guild, model.ErrGuildExists)
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	return s.save(ctx, model.CollectionGuilds, guild.ID, guild)
}

func (s *Storage) GetGuild(ctx context.Context, id string) (*model.Guild, error) {
	return getRecord[model.Guild](ctx, s.client, recordKey(model.CollectionGuilds, id), model.ErrGuildNotFound)
}

func (s *Storage) DeleteGuild(ctx context.Context, id string) error {
	return s.remove(ctx, model.CollectionGuilds, id)
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	return listRecords[model.Guild](ctx, s.client, model.CollectionGuilds)
}

// Content operations

func (s *Storage) SaveAchievement(ctx context.Context, a *model.Achievement) error {
	return s.save(ctx, model.CollectionAchievements, a.ID, a)
}

func (s *Storage) GetAchievement(ctx context.Context, id string) (*model.Achievement, error) {
	return getRecord[model.Achievement](ctx, s.client, recordKey(model.CollectionAchievements, id), model.ErrAchievementNotFound)
}

func (s *Storage) DeleteAchievement(ctx context.Context, id string) error {
	return s.remove(ctx, model.CollectionAchievements, id)
}

func (s *Storage) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	return listRecords[model.Achievement](ctx, s.client, model.CollectionAchievements)
}

func (s *Storage) SaveArticle(ctx context.Context, a *model.Article) error {
	return s.save(ctx, model.CollectionArticles, a.ID, a)
}

func (s *Storage) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return getRecord[model.Article](ctx, s.client, recordKey(model.CollectionArticles, id), model.ErrArticleNotFound)
}

func (s *Storage) DeleteArticle(ctx context.Context, id string) error {
	return s.remove(ctx, model.CollectionArticles, id)
}

func (s *Storage) ListArticles(ctx context.Context) ([]*model.Article, error) {
	return listRecords[model.Article](ctx, s.client, model.CollectionArticles)
}

// Queue operations

func (s *Storage) SaveQueueRequest(ctx context.Context, r *model.QueueRequest) error {
	return s.save(ctx, model.CollectionQueueRequests, r.ID, r)
}

func (s *Storage) GetQueueRequest(ctx context.Context, id string) (*model.QueueRequest, error) {
	return getRecord[model.QueueRequest](ctx, s.client, recordKey(model.CollectionQueueRequests, id), model.ErrRequestNotFound)
}

func (s *Storage) ListQueueRequests(ctx context.Context) ([]*model.QueueRequest, error) {
	return listRecords[model.QueueRequest](ctx, s.client, model.CollectionQueueRequests)
}

func (s *Storage) AppendQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, queueEntriesKey(), data).Err()
}

func (s *Storage) ListQueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	values, err := s.client.LRange(ctx, queueEntriesKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*model.QueueEntry, 0, len(values))
	for _, val := range values {
		var e model.QueueEntry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			continue // Skip invalid data
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *Storage) SaveNotification(ctx context.Context, n *model.Notification) error {
	return s.save(ctx, model.CollectionNotifications, n.ID, n)
}

func (s *Storage) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	return getRecord[model.Notification](ctx, s.client, recordKey(model.CollectionNotifications, id), model.ErrNotificationNotFound)
}

func (s *Storage) ListNotifications(ctx context.Context) ([]*model.Notification, error) {
	return listRecords[model.Notification](ctx, s.client, model.CollectionNotifications)
}

func (s *Storage) SaveReport(ctx context.Context, r *model.Report) error {
	return s.save(ctx, model.CollectionReports, r.ID, r)
}

func (s *Storage) ListReports(ctx context.Context) ([]*model.Report, error) {
	return listRecords[model.Report](ctx, s.client, model.CollectionReports)
}

// createScript sets the record only if it is absent and indexes it in the
// same step, so a created record is always listed
var createScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`)

// create stores a new record, failing with exists if the id is taken
func (s *Storage) create(ctx context.Context, c model.Collection, id string, v any, exists error) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	created, err := createScript.Run(ctx, s.client, []string{recordKey(c, id), indexKey(c)}, data, id).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return exists
	}
	return nil
}

// save writes the record and indexes its id in one pipeline
func (s *Storage) save(ctx context.Context, c model.Collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(c, id), data, 0)
	pipe.SAdd(ctx, indexKey(c), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) remove(ctx context.Context, c model.Collection, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(c, id))
	pipe.SRem(ctx, indexKey(c), id)
	_, err := pipe.Exec(ctx)
	return err
}

func getRecord[T any](ctx context.Context, client *redis.Client, key string, notFound error) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// listRecords loads every indexed record of a collection, ordered by id
func listRecords[T any](ctx context.Context, client *redis.Client, c model.Collection) ([]*T, error) {
	ids, err := client.SMembers(ctx, indexKey(c)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*T{}, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(c, id)
	}

	// Fetch all records in one round trip using MGET
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*T, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Record deleted since the index was read
		}
		var v T
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			continue // Skip invalid data
		}
		result = append(result, &v)
	}
	return result, nil
}
