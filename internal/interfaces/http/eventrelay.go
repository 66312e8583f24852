package http

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	ratingUsecases "github.com/chessforge/gamecore/internal/application/rating/usecases"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

var errNoEventLog = apperrors.NewUnavailableError("backfill requires kafka to be enabled")

// gameEndedConsumer adapts the rating handler to the Kafka consumer. Events
// that can never succeed are skipped so they do not block the partition.
func gameEndedConsumer(h *ratingUsecases.GameEndedHandler, log logger.Interface) messaging.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		_, err := h.Handle(ctx, msg.Value)
		if err == nil {
			return nil
		}
		if ratingUsecases.IsPermanent(err) {
			log.Warnw("skipping game event", "offset", msg.Offset, "partition", msg.Partition, "error", err)
			return messaging.Skip(err)
		}
		return err
	}
}

// localGameEventRelay feeds game events straight into the rating handler
// when no broker is configured. Every message still goes to next.
type localGameEventRelay struct {
	next    messaging.Publisher
	handler *ratingUsecases.GameEndedHandler
	log     logger.Interface
}

func newLocalGameEventRelay(next messaging.Publisher, h *ratingUsecases.GameEndedHandler, log logger.Interface) *localGameEventRelay {
	return &localGameEventRelay{next: next, handler: h, log: log.Named("relay")}
}

func (r *localGameEventRelay) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if topic == messaging.TopicGameEvents {
		// Ignored outcomes cover every event other than game.ended.
		if _, err := r.handler.Handle(ctx, payload); err != nil {
			r.log.Warnw("local rating ingestion failed", "key", key, "error", err)
		}
	}
	return r.next.Publish(ctx, topic, key, payload)
}

func (r *localGameEventRelay) Close() error {
	return r.next.Close()
}

// noReplay backs backfill jobs when there is no event log to read from.
type noReplay struct{}

func (noReplay) Replay(context.Context, time.Time, time.Time, func(context.Context, []byte) error) error {
	return errNoEventLog
}
