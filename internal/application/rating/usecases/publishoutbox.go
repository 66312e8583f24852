package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const outboxBatchSize = 100

// OutboxSink delivers one staged event.
type OutboxSink interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type PublishOutboxResult struct {
	Published int
	Pending   int
}

// PublishOutboxUseCase drains a batch of staged rating.updated events. Rows
// are marked delivered only after the sink accepted them; the first failure
// ends the batch so later events for the same key are not sent ahead of it.
type PublishOutboxUseCase struct {
	outbox rating.OutboxRepository
	sink   OutboxSink
	topic  string
	txMgr  transactor
	logger logger.Interface

	batchSize int
}

func NewPublishOutboxUseCase(outbox rating.OutboxRepository, sink OutboxSink, topic string, txMgr transactor, logger logger.Interface) *PublishOutboxUseCase {
	return &PublishOutboxUseCase{
		outbox:    outbox,
		sink:      sink,
		topic:     topic,
		txMgr:     txMgr,
		logger:    logger,
		batchSize: outboxBatchSize,
	}
}

// WithBatchSize caps how many rows one Execute drains. Non-positive values
// keep the default.
func (uc *PublishOutboxUseCase) WithBatchSize(n int) *PublishOutboxUseCase {
	if n > 0 {
		uc.batchSize = n
	}
	return uc
}

func (uc *PublishOutboxUseCase) Execute(ctx context.Context) (*PublishOutboxResult, error) {
	res := &PublishOutboxResult{}
	err := uc.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		pending, err := uc.outbox.FetchUnpublished(ctx, uc.batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		sent := make([]string, 0, len(pending))
		for _, e := range pending {
			if err := uc.sink.Publish(ctx, uc.topic, e.AggregateID, e.Payload); err != nil {
				uc.logger.Warnw("outbox publish failed, will retry",
					"outbox_id", e.ID,
					"aggregate_id", e.AggregateID,
					"error", err,
				)
				break
			}
			sent = append(sent, e.ID)
		}

		res.Published = len(sent)
		res.Pending = len(pending) - len(sent)
		return uc.outbox.MarkPublished(ctx, sent, biztime.NowUTC())
	})
	if err != nil {
		uc.logger.Errorw("failed to drain outbox", "error", err)
		return nil, err
	}
	if res.Published > 0 {
		uc.logger.Debugw("outbox batch published", "published", res.Published, "pending", res.Pending)
	}
	return res, nil
}
