package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jvsteiner/orderlib/pkg/errors"
	"github.com/jvsteiner/orderlib/pkg/logger"
	"github.com/jvsteiner/orderlib/pkg/redis"

	snapshotv1 "github.com/jvsteiner/orderlib/internal/domain/snapshot/v1"
)

// Store persists order book snapshots in Redis, one key per pair.
type Store struct {
	pair        string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewSnapshotStore creates a new snapshot store on the given Redis client
// for one trading pair.
func NewSnapshotStore(redisclient redis.Client, pair string, logger *logger.Logger) *Store {
	return &Store{
		pair:        pair,
		redisclient: redisclient,
		logger:      logger,
	}
}

func (s *Store) key() string {
	return "matching:snapshot:" + s.pair
}

// Store stores the snapshot in Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key(), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "store snapshot",
		})
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, fmt.Sprintf("Snapshot stored for pair %s", s.pair), logger.Field{
		Key:   "orderOffset",
		Value: snapshot.OrderOffset,
	}, logger.Field{
		Key:   "orders",
		Value: len(snapshot.OrderBookSnapshot.Orders),
	})
	return nil
}

// LoadStore loads the snapshot from Redis. A missing snapshot is not an
// error; it returns (nil, nil) so a fresh instance starts from an empty book.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key())
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, fmt.Sprintf("No snapshot found for pair %s", s.pair), logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
