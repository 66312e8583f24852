package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/mappers"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// TicketRepository stores tickets in match_tickets and their rosters in
// match_ticket_players.
type TicketRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewTicketRepository(db *gorm.DB, logger logger.Interface) *TicketRepository {
	return &TicketRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
		logger: logger,
	}
}

func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		return err
	}
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create ticket", "ticket_id", t.ID(), "error", err)
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	if err := tx.Create(&model.Players).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %v", ticket.ErrAlreadyInQueue, err)
		}
		return fmt.Errorf("failed to create ticket players: %w", err)
	}
	return nil
}

// Update writes the ticket row and each player's status. The roster itself
// never changes after enqueue.
func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		return err
	}
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.TicketModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update ticket", "ticket_id", t.ID(), "error", result.Error)
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ticket.ErrTicketNotFound
	}

	for _, p := range model.Players {
		if err := tx.Model(&models.TicketPlayerModel{}).
			Where("id = ?", p.ID).
			Update("status", p.Status).Error; err != nil {
			return fmt.Errorf("failed to update ticket player %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return r.getOne(db.GetTxFromContext(ctx, r.db), ticketID, false)
}

func (r *TicketRepository) GetForUpdate(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return r.getOne(db.GetTxFromContext(ctx, r.db), ticketID, true)
}

func (r *TicketRepository) FindByPlayers(ctx context.Context, playerIDs []string) ([]*ticket.Ticket, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	tx := db.GetTxFromContext(ctx, r.db)

	var ticketIDs []string
	if err := tx.Model(&models.TicketPlayerModel{}).
		Where("player_id IN ?", playerIDs).
		Distinct().
		Pluck("ticket_id", &ticketIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to find tickets by player: %w", err)
	}
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	return r.find(tx.Where("id IN ?", ticketIDs).Order("created_at ASC"), false)
}

// ListProposable returns a pool's pairable tickets, oldest first.
func (r *TicketRepository) ListProposable(ctx context.Context, poolKey string) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	return r.find(tx.
		Where("pool_key = ? AND status IN ?", poolKey, vo.ProposableStatuses()).
		Order("created_at ASC"), false)
}

func (r *TicketRepository) ListPoolsWithProposable(ctx context.Context, minTickets int) ([]string, error) {
	var pools []string
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.TicketModel{}).
		Where("status IN ?", vo.ProposableStatuses()).
		Group("pool_key").
		Having("COUNT(*) >= ?", minTickets).
		Order("pool_key").
		Pluck("pool_key", &pools).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	return pools, nil
}

// LockForProposal row-locks the given tickets. Callers must check that every
// id came back before proposing.
func (r *TicketRepository) LockForProposal(ctx context.Context, ticketIDs []string) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	return r.find(tx.Where("id IN ?", ticketIDs).Order("created_at ASC"), true)
}

func (r *TicketRepository) ListByProposalForUpdate(ctx context.Context, proposalID string) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	return r.find(tx.Where("proposal_id = ?", proposalID).Order("created_at ASC"), true)
}

func (r *TicketRepository) FindHeartbeatLapsed(ctx context.Context, now time.Time) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	return r.find(tx.
		Where("status IN ?", vo.ActiveStatuses()).
		Where("heartbeat_timeout_at IS NOT NULL AND heartbeat_timeout_at <= ?", now.UTC()), false)
}

func (r *TicketRepository) FindQueuedBefore(ctx context.Context, cutoff time.Time) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	return r.find(tx.
		Where("status IN ?", vo.ProposableStatuses()).
		Where("created_at < ?", cutoff.UTC()), false)
}

func (r *TicketRepository) FindExpiredProposals(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Model(&models.TicketModel{}).
		Where("status = ? AND proposal_id IS NOT NULL", vo.StatusProposing.String()).
		Where("proposal_timeout_at <= ?", now.UTC()).
		Distinct().
		Pluck("proposal_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired proposals: %w", err)
	}
	return ids, nil
}

func (r *TicketRepository) getOne(tx *gorm.DB, ticketID string, lock bool) (*ticket.Ticket, error) {
	tickets, err := r.find(tx.Where("id = ?", ticketID), lock)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ticket.ErrTicketNotFound
	}
	return tickets[0], nil
}

// find runs q against match_tickets and attaches each ticket's players.
// Rows that fail to map are logged and skipped.
func (r *TicketRepository) find(q *gorm.DB, lock bool) ([]*ticket.Ticket, error) {
	if lock {
		q = db.ForUpdate(q)
	}
	var rows []models.TicketModel
	if err := q.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var players []models.TicketPlayerModel
	if err := q.Session(&gorm.Session{NewDB: true}).
		Where("ticket_id IN ?", ids).
		Order("position ASC").
		Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load ticket players: %w", err)
	}
	byTicket := make(map[string][]models.TicketPlayerModel, len(rows))
	for _, p := range players {
		byTicket[p.TicketID] = append(byTicket[p.TicketID], p)
	}

	tickets := make([]*ticket.Ticket, 0, len(rows))
	for i := range rows {
		rows[i].Players = byTicket[rows[i].ID]
		t, err := r.mapper.ToDomain(&rows[i])
		if err != nil {
			r.logger.Warnw("skipping unreadable ticket row", "ticket_id", rows[i].ID, "error", err)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// MatchRecordRepository stores finalized pairings in match_records.
type MatchRecordRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
}

func NewMatchRecordRepository(db *gorm.DB) *MatchRecordRepository {
	return &MatchRecordRepository{db: db, mapper: mappers.NewTicketMapper()}
}

func (r *MatchRecordRepository) Create(ctx context.Context, m *ticket.MatchRecord) error {
	model, err := r.mapper.MatchToModel(m)
	if err != nil {
		return err
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create match record: %w", err)
	}
	return nil
}

func (r *MatchRecordRepository) GetByID(ctx context.Context, matchID string) (*ticket.MatchRecord, error) {
	var model models.MatchRecordModel
	err := db.GetTxFromContext(ctx, r.db).Where("match_id = ?", matchID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ticket.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to find match record: %w", err)
	}
	return r.mapper.MatchToDomain(&model)
}
