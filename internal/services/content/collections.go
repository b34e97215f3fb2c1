package content

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/redskie/bamaco/internal/dependencies/clock"
	"github.com/redskie/bamaco/internal/dependencies/random"
	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/authz"
	"github.com/redskie/bamaco/internal/services/cache"
	"github.com/redskie/bamaco/internal/storage"
)

// Achievements is the achievement registry
type Achievements = Registry[*model.Achievement]

// AchievementCollection binds achievements to store
func AchievementCollection(store storage.ContentStore) Collection[*model.Achievement] {
	return Collection[*model.Achievement]{
		Prefix:   "ach",
		CacheKey: cache.KeyAchievements,
		NotFound: model.ErrAchievementNotFound,
		Get:      store.GetAchievement,
		Save:     store.SaveAchievement,
		Delete:   store.DeleteAchievement,
		List:     store.ListAchievements,
	}
}

// NewAchievements creates the achievement registry
func NewAchievements(store storage.ContentStore, c *cache.Cache, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Achievements {
	return NewRegistry(AchievementCollection(store), c, clk, rnd, logger)
}

// ArticleCollection binds articles to store
func ArticleCollection(store storage.ContentStore) Collection[*model.Article] {
	return Collection[*model.Article]{
		Prefix:   "art",
		CacheKey: cache.KeyArticles,
		NotFound: model.ErrArticleNotFound,
		Get:      store.GetArticle,
		Save:     store.SaveArticle,
		Delete:   store.DeleteArticle,
		List:     store.ListArticles,
	}
}

// Articles is the article registry plus publishing
type Articles struct {
	*Registry[*model.Article]
}

// NewArticles creates the article registry
func NewArticles(store storage.ContentStore, c *cache.Cache, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Articles {
	return &Articles{NewRegistry(ArticleCollection(store), c, clk, rnd, logger)}
}

// Publish marks an article as published. Admin only.
func (a *Articles) Publish(ctx context.Context, actor *authz.Actor, id string) (*model.Article, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	article, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	article.IsPublished = true
	article.PublishedAt = &now
	article.LastModified = now
	if err := a.coll.Save(ctx, article); err != nil {
		return nil, a.storeError("publish", err)
	}
	a.invalidate()
	return article, nil
}

// Published returns published articles, newest first
func (a *Articles) Published(ctx context.Context) ([]*model.Article, error) {
	published, err := a.filter(ctx, func(article *model.Article) bool { return article.IsPublished })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(published, func(x, y *model.Article) int {
		return cmp.Compare(publishedAt(y), publishedAt(x))
	})
	return published, nil
}

func publishedAt(a *model.Article) int64 {
	if a.PublishedAt == nil {
		return a.CreatedAt.UnixNano()
	}
	return a.PublishedAt.UnixNano()
}
