package sqlite

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/redskie/bamaco/internal/model"
)

// recordRow holds one guild, achievement, article, queue request,
// notification or report as JSON
type recordRow struct {
	Collection string `gorm:"primaryKey"`
	ID         string `gorm:"primaryKey"`
	Data       []byte
}

func (recordRow) TableName() string { return "records" }

// queueEntryRow keeps the play queue in insertion order
type queueEntryRow struct {
	Seq  uint `gorm:"primaryKey;autoIncrement"`
	Data []byte
}

func (queueEntryRow) TableName() string { return "queue_entries" }

func encodeRecord(c model.Collection, id string, v any) (*recordRow, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &recordRow{Collection: string(c), ID: id, Data: data}, nil
}

// putRecord inserts or replaces a record
func putRecord(ctx context.Context, db *gorm.DB, c model.Collection, id string, v any) error {
	row, err := encodeRecord(c, id, v)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// createRecord inserts a record, failing with exists if the id is taken
func createRecord(ctx context.Context, db *gorm.DB, c model.Collection, id string, v any, exists error) error {
	row, err := encodeRecord(c, id, v)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return exists
	}
	return nil
}

func getRecord[T any](ctx context.Context, db *gorm.DB, c model.Collection, id string, notFound error) (*T, error) {
	var row recordRow
	err := db.WithContext(ctx).First(&row, "collection = ? AND id = ?", string(c), id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(row.Data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func deleteRecord(ctx context.Context, db *gorm.DB, c model.Collection, id string) error {
	return db.WithContext(ctx).Delete(&recordRow{}, "collection = ? AND id = ?", string(c), id).Error
}

// listRecords returns every record of a collection ordered by id
func listRecords[T any](ctx context.Context, db *gorm.DB, c model.Collection) ([]*T, error) {
	var rows []recordRow
	if err := db.WithContext(ctx).Where("collection = ?", string(c)).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*T, 0, len(rows))
	for i := range rows {
		var v T
		if err := json.Unmarshal(rows[i].Data, &v); err != nil {
			continue // Skip undecodable rows
		}
		result = append(result, &v)
	}
	return result, nil
}

// Guild operations

func (s *Storage) CreateGuild(ctx context.Context, guild *model.Guild) error {
	return createRecord(ctx, s.db, model.CollectionGuilds, guild.ID, guild, model.ErrGuildExists)
}

func (s *Storage) SaveGuild(ctx context.Context, guild *model.Guild) error {
	return putRecord(ctx, s.db, model.CollectionGuilds, guild.ID, guild)
}

func (s *Storage) GetGuild(ctx context.Context, id string) (*model.Guild, error) {
	return getRecord[model.Guild](ctx, s.db, model.CollectionGuilds, id, model.ErrGuildNotFound)
}

func (s *Storage) DeleteGuild(ctx context.Context, id string) error {
	return deleteRecord(ctx, s.db, model.CollectionGuilds, id)
}

func (s *Storage) ListGuilds(ctx context.Context) ([]*model.Guild, error) {
	return listRecords[model.Guild](ctx, s.db, model.CollectionGuilds)
}

// Content operations

func (s *Storage) SaveAchievement(ctx context.Context, a *model.Achievement) error {
	return putRecord(ctx, s.db, model.CollectionAchievements, a.ID, a)
}

func (s *Storage) GetAchievement(ctx context.Context, id string) (*model.Achievement, error) {
	return getRecord[model.Achievement](ctx, s.db, model.CollectionAchievements, id, model.ErrAchievementNotFound)
}

func (s *Storage) DeleteAchievement(ctx context.Context, id string) error {
	return deleteRecord(ctx, s.db, model.CollectionAchievements, id)
}

func (s *Storage) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	return listRecords[model.Achievement](ctx, s.db, model.CollectionAchievements)
}

func (s *Storage) SaveArticle(ctx context.Context, a *model.Article) error {
	return putRecord(ctx, s.db, model.CollectionArticles, a.ID, a)
}

func (s *Storage) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return getRecord[model.Article](ctx, s.db, model.CollectionArticles, id, model.ErrArticleNotFound)
}

func (s *Storage) DeleteArticle(ctx context.Context, id string) error {
	return deleteRecord(ctx, s.db, model.CollectionArticles, id)
}

func (s *Storage) ListArticles(ctx context.Context) ([]*model.Article, error) {
	return listRecords[model.Article](ctx, s.db, model.CollectionArticles)
}

// Queue operations

func (s *Storage) SaveQueueRequest(ctx context.Context, r *model.QueueRequest) error {
	return putRecord(ctx, s.db, model.CollectionQueueRequests, r.ID, r)
}

func (s *Storage) GetQueueRequest(ctx context.Context, id string) (*model.QueueRequest, error) {
	return getRecord[model.QueueRequest](ctx, s.db, model.CollectionQueueRequests, id, model.ErrRequestNotFound)
}

func (s *Storage) ListQueueRequests(ctx context.Context) ([]*model.QueueRequest, error) {
	return listRecords[model.QueueRequest](ctx, s.db, model.CollectionQueueRequests)
}

func (s *Storage) AppendQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&queueEntryRow{Data: data}).Error
}

func (s *Storage) ListQueueEntries(ctx context.Context) ([]*model.QueueEntry, error) {
	var rows []queueEntryRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*model.QueueEntry, 0, len(rows))
	for i := range rows {
		var e model.QueueEntry
		if err := json.Unmarshal(rows[i].Data, &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *Storage) SaveNotification(ctx context.Context, n *model.Notification) error {
	return putRecord(ctx, s.db, model.CollectionNotifications, n.ID, n)
}

func (s *Storage) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	return getRecord[model.Notification](ctx, s.db, model.CollectionNotifications, id, model.ErrNotificationNotFound)
}

func (s *Storage) ListNotifications(ctx context.Context) ([]*model.Notification, error) {
	return listRecords[model.Notification](ctx, s.db, model.CollectionNotifications)
}

func (s *Storage) SaveReport(ctx context.Context, r *model.Report) error {
	return putRecord(ctx, s.db, model.CollectionReports, r.ID, r)
}

func (s *Storage) ListReports(ctx context.Context) ([]*model.Report, error) {
	return listRecords[model.Report](ctx, s.db, model.CollectionReports)
}
