package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/mappers"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/db"
)

type RatingPoolRepository struct {
	db *gorm.DB
}

func NewRatingPoolRepository(db *gorm.DB) *RatingPoolRepository {
	return &RatingPoolRepository{db: db}
}

func (r *RatingPoolRepository) GetByCode(ctx context.Context, code string) (*rating.Pool, error) {
	var model models.RatingPoolModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rating.ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to find pool: %w", err)
	}
	return mappers.PoolToDomain(&model), nil
}

func (r *RatingPoolRepository) List(ctx context.Context) ([]rating.Pool, error) {
	var rows []models.RatingPoolModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	pools := make([]rating.Pool, len(rows))
	for i := range rows {
		pools[i] = *mappers.PoolToDomain(&rows[i])
	}
	return pools, nil
}

// EnsureExists inserts missing pools and leaves existing ones untouched.
func (r *RatingPoolRepository) EnsureExists(ctx context.Context, pools ...rating.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	rows := make([]*models.RatingPoolModel, len(pools))
	for i, p := range pools {
		rows[i] = mappers.PoolToModel(p)
	}
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed pools: %w", err)
	}
	return nil
}

type UserRatingRepository struct {
	db *gorm.DB
}

func NewUserRatingRepository(db *gorm.DB) *UserRatingRepository {
	return &UserRatingRepository{db: db}
}

func (r *UserRatingRepository) Get(ctx context.Context, userID, poolCode string) (*rating.UserRating, error) {
	return r.get(db.GetTxFromContext(ctx, r.db), userID, poolCode)
}

func (r *UserRatingRepository) GetForUpdate(ctx context.Context, userID, poolCode string) (*rating.UserRating, error) {
	return r.get(db.ForUpdate(db.GetTxFromContext(ctx, r.db)), userID, poolCode)
}

func (r *UserRatingRepository) get(tx *gorm.DB, userID, poolCode string) (*rating.UserRating, error) {
	var model models.UserRatingModel
	err := tx.Where("user_id = ? AND pool_code = ?", userID, poolCode).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user rating: %w", err)
	}
	return mappers.UserRatingToDomain(&model), nil
}

func (r *UserRatingRepository) ListByUser(ctx context.Context, userID string) ([]*rating.UserRating, error) {
	var rows []models.UserRatingModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("user_id = ?", userID).Order("pool_code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list user ratings: %w", err)
	}
	return userRatingsToDomain(rows), nil
}

func (r *UserRatingRepository) ListByUsers(ctx context.Context, userIDs []string, poolCode string) ([]*rating.UserRating, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []models.UserRatingModel
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("user_id IN ?", userIDs)
	if poolCode != "" {
		query = query.Where("pool_code = ?", poolCode)
	}
	if err := query.Order("user_id ASC, pool_code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list user ratings: %w", err)
	}
	return userRatingsToDomain(rows), nil
}

func (r *UserRatingRepository) Save(ctx context.Context, u *rating.UserRating) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Save(mappers.UserRatingToModel(u)).Error; err != nil {
		return fmt.Errorf("failed to save user rating: %w", err)
	}
	return nil
}

func userRatingsToDomain(rows []models.UserRatingModel) []*rating.UserRating {
	out := make([]*rating.UserRating, len(rows))
	for i := range rows {
		out[i] = mappers.UserRatingToDomain(&rows[i])
	}
	return out
}

type RatingIngestionRepository struct {
	db *gorm.DB
}

func NewRatingIngestionRepository(db *gorm.DB) *RatingIngestionRepository {
	return &RatingIngestionRepository{db: db}
}

func (r *RatingIngestionRepository) Insert(ctx context.Context, i *rating.Ingestion) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(mappers.IngestionToModel(i)).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return rating.ErrDuplicateIngestion
		}
		return fmt.Errorf("failed to insert ingestion: %w", err)
	}
	return nil
}

func (r *RatingIngestionRepository) Get(ctx context.Context, gameID, poolCode string) (*rating.Ingestion, error) {
	var model models.RatingIngestionModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("game_id = ? AND pool_code = ?", gameID, poolCode).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ingestion: %w", err)
	}
	return mappers.IngestionToDomain(&model), nil
}

func (r *RatingIngestionRepository) Update(ctx context.Context, i *rating.Ingestion) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.RatingIngestionModel{}).
		Where("game_id = ? AND pool_code = ?", i.GameID, i.PoolCode).
		Updates(map[string]any{
			"white_rating_before": i.WhiteRatingBefore,
			"black_rating_before": i.BlackRatingBefore,
			"white_rating_after":  i.WhiteRatingAfter,
			"black_rating_after":  i.BlackRatingAfter,
			"response":            datatypes.JSON(i.Response),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update ingestion: %w", result.Error)
	}
	return nil
}

type RatingEventRepository struct {
	db *gorm.DB
}

func NewRatingEventRepository(db *gorm.DB) *RatingEventRepository {
	return &RatingEventRepository{db: db}
}

func (r *RatingEventRepository) Create(ctx context.Context, e *rating.Event) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(mappers.RatingEventToModel(e)).Error; err != nil {
		return fmt.Errorf("failed to insert rating event: %w", err)
	}
	return nil
}

func (r *RatingEventRepository) ListByUser(ctx context.Context, userID, poolCode string, limit int) ([]*rating.Event, error) {
	var rows []models.RatingEventModel
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("user_id = ?", userID)
	if poolCode != "" {
		query = query.Where("pool_code = ?", poolCode)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rating events: %w", err)
	}
	out := make([]*rating.Event, len(rows))
	for i := range rows {
		out[i] = mappers.RatingEventToDomain(&rows[i])
	}
	return out, nil
}

type EventOutboxRepository struct {
	db *gorm.DB
}

func NewEventOutboxRepository(db *gorm.DB) *EventOutboxRepository {
	return &EventOutboxRepository{db: db}
}

// Create ignores a second row for the same (aggregate, type, key).
func (r *EventOutboxRepository) Create(ctx context.Context, e *rating.OutboxEntry) error {
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "aggregate_id"}, {Name: "event_type"}, {Name: "event_key"}},
		DoNothing: true,
	}).Create(mappers.OutboxToModel(e)).Error
	if err != nil {
		return fmt.Errorf("failed to stage outbox event: %w", err)
	}
	return nil
}

func (r *EventOutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*rating.OutboxEntry, error) {
	var rows []models.EventOutboxModel
	tx := db.ForUpdateSkipLocked(db.GetTxFromContext(ctx, r.db))
	if err := tx.Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch outbox: %w", err)
	}
	out := make([]*rating.OutboxEntry, len(rows))
	for i := range rows {
		out[i] = mappers.OutboxToDomain(&rows[i])
	}
	return out, nil
}

func (r *EventOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Model(&models.EventOutboxModel{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error; err != nil {
		return fmt.Errorf("failed to mark outbox published: %w", err)
	}
	return nil
}

type LeaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) Upsert(ctx context.Context, e rating.LeaderboardEntry) error {
	tx := db.GetTxFromContext(ctx, r.db)
	model := &models.LeaderboardModel{
		PoolCode:  e.PoolCode,
		UserID:    e.UserID,
		RatingInt: e.RatingInt,
		Rank:      e.Rank,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pool_code"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert leaderboard entry: %w", err)
	}
	return nil
}

// RecomputeRanks numbers the pool's entries 1..N by rating, highest first.
func (r *LeaderboardRepository) RecomputeRanks(ctx context.Context, poolCode string) error {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.LeaderboardModel
	if err := tx.Where("pool_code = ?", poolCode).
		Order("rating DESC, user_id ASC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	for i, row := range rows {
		rank := i + 1
		if row.Rank == rank {
			continue
		}
		if err := tx.Model(&models.LeaderboardModel{}).
			Where("pool_code = ? AND user_id = ?", poolCode, row.UserID).
			Update("rank_no", rank).Error; err != nil {
			return fmt.Errorf("failed to update rank: %w", err)
		}
	}
	return nil
}

func (r *LeaderboardRepository) List(ctx context.Context, poolCode string, limit, offset int) ([]rating.LeaderboardEntry, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.LeaderboardModel{}).Where("pool_code = ?", poolCode)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard: %w", err)
	}

	var rows []models.LeaderboardModel
	if err := query.Order("rank_no ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list leaderboard: %w", err)
	}

	out := make([]rating.LeaderboardEntry, len(rows))
	for i, row := range rows {
		out[i] = rating.LeaderboardEntry{
			PoolCode:  row.PoolCode,
			UserID:    row.UserID,
			RatingInt: row.RatingInt,
			Rank:      row.Rank,
		}
	}
	return out, total, nil
}

func (r *LeaderboardRepository) Get(ctx context.Context, poolCode, userID string) (*rating.LeaderboardEntry, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var row models.LeaderboardModel
	err := tx.Where("pool_code = ? AND user_id = ?", poolCode, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rating.ErrNotRanked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard entry: %w", err)
	}
	return &rating.LeaderboardEntry{
		PoolCode:  row.PoolCode,
		UserID:    row.UserID,
		RatingInt: row.RatingInt,
		Rank:      row.Rank,
	}, nil
}

type BackfillJobRepository struct {
	db *gorm.DB
}

func NewBackfillJobRepository(db *gorm.DB) *BackfillJobRepository {
	return &BackfillJobRepository{db: db}
}

func (r *BackfillJobRepository) Create(ctx context.Context, j *rating.BackfillJob) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(mappers.BackfillJobToModel(j)).Error; err != nil {
		return fmt.Errorf("failed to create backfill job: %w", err)
	}
	return nil
}

func (r *BackfillJobRepository) Update(ctx context.Context, j *rating.BackfillJob) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Save(mappers.BackfillJobToModel(j)).Error; err != nil {
		return fmt.Errorf("failed to update backfill job: %w", err)
	}
	return nil
}

func (r *BackfillJobRepository) GetByID(ctx context.Context, jobID string) (*rating.BackfillJob, error) {
	var model models.BackfillJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("id = ?", jobID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rating.ErrBackfillNotFound
		}
		return nil, fmt.Errorf("failed to find backfill job: %w", err)
	}
	return mappers.BackfillJobToDomain(&model), nil
}

func (r *BackfillJobRepository) GetRunning(ctx context.Context) (*rating.BackfillJob, error) {
	var model models.BackfillJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("status = ?", string(rating.BackfillRunning)).Order("started_at DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find running backfill job: %w", err)
	}
	return mappers.BackfillJobToDomain(&model), nil
}
