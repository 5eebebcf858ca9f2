package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jvsteiner/orderlib/pkg/config"
	"github.com/jvsteiner/orderlib/pkg/errors"
	"github.com/jvsteiner/orderlib/pkg/logger"
	"go.uber.org/zap/zapcore"

	matchpublisherv1 "github.com/jvsteiner/orderlib/internal/domain/match-publisher/v1"
	orderreaderv1 "github.com/jvsteiner/orderlib/internal/domain/order-reader/v1"
	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
	snapshotv1 "github.com/jvsteiner/orderlib/internal/domain/snapshot/v1"
)

// orderMeta carries the feed identity of a resting order so later fills and
// snapshots can name both sides.
type orderMeta struct {
	orderID   string
	userID    string
	remaining int64
}

// Engine is the main engine for processing the order feed and managing the
// order book.
type Engine struct {
	// Core components
	orderbook      orderbookv1.Orderbook
	orderReader    orderreaderv1.OrderReader
	snapshotStore  snapshotv1.Store
	matchPublisher matchpublisherv1.MatchPublisher
	logger         *logger.Logger
	config         *config.Config

	// The book performs no locking of its own. One mutex serializes the
	// order processor and the snapshot manager around it, together with the
	// meta index that shadows its resting orders.
	bookMu sync.Mutex
	meta   map[int64]orderMeta

	// Offset state shared between the two goroutines
	mu                 sync.RWMutex
	orderOffset        int64
	lastSnapshotOffset int64

	// Shutdown coordination
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Configuration
	snapshotInterval    time.Duration
	snapshotOffsetDelta int64

	// Fill statistics
	totalFills int64
	fillsMutex sync.RWMutex
}

// NewEngine creates a new instance of Engine with the provided dependencies.
func NewEngine(
	orderbook orderbookv1.Orderbook,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	matchPublisher matchpublisherv1.MatchPublisher,
	logger *logger.Logger,
	config *config.Config,
) *Engine {
	return NewEngineWithOptions(orderbook, orderReader, snapshotStore, matchPublisher, logger, config, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options
func NewEngineWithOptions(
	orderbook orderbookv1.Orderbook,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	matchPublisher matchpublisherv1.MatchPublisher,
	logger *logger.Logger,
	config *config.Config,
	options *Options,
) *Engine {
	e := &Engine{
		orderbook:      orderbook,
		orderReader:    orderReader,
		snapshotStore:  snapshotStore,
		matchPublisher: matchPublisher,
		logger:         logger,
		config:         config,

		meta: make(map[int64]orderMeta),

		snapshotInterval:    options.SnapshotInterval,
		snapshotOffsetDelta: options.SnapshotOffsetDelta,
		orderOffset:         -1,
	}

	// Load snapshot during initialization
	if err := e.loadSnapshot(context.Background()); err != nil {
		e.logger.GetZap().Fatal("Failed to load snapshot", zapcore.Field{
			Key:       "error",
			Interface: err,
		})
	}

	return e
}

// Start initializes the engine and starts processing routines.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(2)
	go e.runOrderProcessor()
	go e.runSnapshotManager()

	e.logger.Info("Engine started", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	return nil
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// runOrderProcessor combines feed reading and order processing in a single goroutine
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	e.logger.Info("Starting order processor", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	// Resume one past the last processed offset
	currentOffset := e.getOrderOffset()
	if currentOffset > 0 {
		currentOffset++
	}

	if err := e.orderReader.SetOffset(currentOffset); err != nil {
		e.logger.GetZap().Fatal("Failed to set offset for order reader", zapcore.Field{
			Key:       "error",
			Interface: err,
		})
	}

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order processor shutting down")
			e.orderReader.Close()
			return
		default:
			msg, request, err := e.orderReader.ReadMessage(e.ctx)
			if err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "read_order_message",
				})
				// Simple backoff
				time.Sleep(100 * time.Millisecond)
				continue
			}

			if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "commit_order_message",
				})
			}

			if err := e.processOrder(&request); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "process_order",
				})
				continue
			}

			e.setOrderOffset(msg.Offset)
		}
	}
}

// runSnapshotManager handles periodic snapshots
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			if e.shouldCreateSnapshot() {
				e.createAndStoreSnapshot()
			}
		}
	}
}

// processOrder dispatches a single feed request to the book.
func (e *Engine) processOrder(request *orderreaderv1.OrderRequest) error {
	e.logger.Debug("Processing order",
		logger.Field{Key: "orderOffset", Value: request.Offset},
		logger.Field{Key: "orderID", Value: request.OrderID},
		logger.Field{Key: "action", Value: request.Action},
	)

	switch request.Action {
	case orderreaderv1.ActionPlace:
		return e.placeOrder(request)
	case orderreaderv1.ActionCancel:
		e.cancelOrder(request)
		return nil
	case orderreaderv1.ActionReplace:
		return e.replaceOrder(request)
	default:
		return errors.NewTracer("order_rejected_error").Wrap(fmt.Errorf("unknown action %q", request.Action))
	}
}

// placeOrder admits the requested order and publishes its fills.
func (e *Engine) placeOrder(request *orderreaderv1.OrderRequest) error {
	order := orderbookv1.NewOrder(request.Side, request.Type, request.Size, request.Price)

	e.bookMu.Lock()
	sequence, fills, err := e.orderbook.Add(order)
	var events []matchpublisherv1.FillEvent
	if err == nil {
		// Events must be built before the meta index is updated, while the
		// consumed makers are still known.
		events = e.buildFillEvents(fills, request)
		e.applyFills(sequence, request, fills)
	}
	e.bookMu.Unlock()

	if err != nil {
		return errors.NewTracer("order_rejected_error").Wrap(err)
	}

	if len(events) > 0 {
		e.recordFills(len(events))

		// The book already applied the order; replaying the message would
		// double-apply it, so a failed publish only logs.
		if err := e.matchPublisher.PublishFills(e.ctx, events); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.Field{
				Key:   "action",
				Value: "publish_fills",
			})
		}
	}

	return nil
}

// cancelOrder removes the targeted resting order. A missing target is not an
// error: the feed may replay cancels the book has already applied.
func (e *Engine) cancelOrder(request *orderreaderv1.OrderRequest) {
	order := orderbookv1.Order{
		Side:     request.Side,
		Sequence: request.Sequence,
	}

	e.bookMu.Lock()
	removed := e.orderbook.Remove(order)
	if removed {
		delete(e.meta, request.Sequence)
	}
	e.bookMu.Unlock()

	if !removed {
		e.logger.Warn("Cancel target not resting",
			logger.Field{Key: "sequence", Value: request.Sequence},
			logger.Field{Key: "orderID", Value: request.OrderID},
		)
	}
}

// replaceOrder swaps the content of the targeted resting order.
func (e *Engine) replaceOrder(request *orderreaderv1.OrderRequest) error {
	if request.Size <= 0 {
		return errors.NewTracer("order_rejected_error").Wrap(orderbookv1.ErrInvalidSize)
	}
	if request.Price <= 0 {
		return errors.NewTracer("order_rejected_error").Wrap(orderbookv1.ErrInvalidPrice)
	}

	order := orderbookv1.NewOrder(request.Side, request.Type, request.Size, request.Price)
	order.Sequence = request.Sequence
	if order.Type == "" {
		order.Type = orderbookv1.OrderTypeLimit
	}

	e.bookMu.Lock()
	prev, ok := e.orderbook.Replace(order)
	if ok {
		m := e.meta[request.Sequence]
		if request.OrderID != "" {
			m.orderID = request.OrderID
		}
		if request.UserID != "" {
			m.userID = request.UserID
		}
		m.remaining = request.Size
		e.meta[request.Sequence] = m
	}
	e.bookMu.Unlock()

	if !ok {
		e.logger.Warn("Replace target not resting",
			logger.Field{Key: "sequence", Value: request.Sequence},
			logger.Field{Key: "orderID", Value: request.OrderID},
		)
		return nil
	}

	e.logger.Debug("Order replaced",
		logger.Field{Key: "sequence", Value: request.Sequence},
		logger.Field{Key: "prevSize", Value: prev.Size},
		logger.Field{Key: "prevPrice", Value: prev.Price},
		logger.Field{Key: "size", Value: request.Size},
		logger.Field{Key: "price", Value: request.Price},
	)
	return nil
}

// buildFillEvents enriches the book's fills with both sides' feed
// identities. Caller holds bookMu.
func (e *Engine) buildFillEvents(fills []orderbookv1.Fill, request *orderreaderv1.OrderRequest) []matchpublisherv1.FillEvent {
	if len(fills) == 0 {
		return nil
	}

	events := make([]matchpublisherv1.FillEvent, 0, len(fills))
	for _, fill := range fills {
		event := matchpublisherv1.CreateFromFill(fill, e.config.Pair)
		event.TakerOrderID = request.OrderID
		event.TakerUserID = request.UserID
		if m, ok := e.meta[fill.MakerSequence]; ok {
			event.MakerOrderID = m.orderID
			event.MakerUserID = m.userID
		}
		events = append(events, event)
	}
	return events
}

// applyFills updates the meta index after an admission: consumed makers
// shrink or disappear, and a resting remainder is recorded under the taker's
// sequence. Caller holds bookMu.
func (e *Engine) applyFills(sequence int64, request *orderreaderv1.OrderRequest, fills []orderbookv1.Fill) {
	var filled int64
	for _, fill := range fills {
		filled += fill.Size
		m, ok := e.meta[fill.MakerSequence]
		if !ok {
			continue
		}
		m.remaining -= fill.Size
		if m.remaining <= 0 {
			delete(e.meta, fill.MakerSequence)
		} else {
			e.meta[fill.MakerSequence] = m
		}
	}

	rested := request.Size - filled
	if request.Type == orderbookv1.OrderTypeIOC || request.Type == orderbookv1.OrderTypeFOK {
		rested = 0
	}
	if rested > 0 {
		e.meta[sequence] = orderMeta{
			orderID:   request.OrderID,
			userID:    request.UserID,
			remaining: rested,
		}
	}
}

// recordFills updates the fill statistics.
func (e *Engine) recordFills(count int) {
	e.fillsMutex.Lock()
	e.totalFills += int64(count)
	currentTotal := e.totalFills
	e.fillsMutex.Unlock()

	e.logger.Info("Fills executed",
		logger.Field{Key: "fillCount", Value: count},
		logger.Field{Key: "totalFills", Value: currentTotal},
	)
}

// shouldCreateSnapshot checks if a snapshot should be created
func (e *Engine) shouldCreateSnapshot() bool {
	e.mu.RLock()
	currentOffset := e.orderOffset
	lastSnapshotOffset := e.lastSnapshotOffset
	e.mu.RUnlock()

	if currentOffset <= 0 {
		return false
	}

	delta := currentOffset - lastSnapshotOffset
	return delta >= e.snapshotOffsetDelta
}

// createAndStoreSnapshot creates and stores a snapshot
func (e *Engine) createAndStoreSnapshot() {
	currentOffset := e.getOrderOffset()

	e.logger.Info("Creating snapshot", logger.Field{
		Key:   "currentOffset",
		Value: currentOffset,
	})

	e.bookMu.Lock()
	snapshot := e.orderbook.CreateSnapshot()
	for i := range snapshot.OrderBookSnapshot.Orders {
		bo := &snapshot.OrderBookSnapshot.Orders[i]
		if m, ok := e.meta[bo.Sequence]; ok {
			bo.OrderID = m.orderID
			bo.UserID = m.userID
		}
	}
	e.bookMu.Unlock()

	snapshot.OrderOffset = currentOffset

	if err := e.snapshotStore.Store(e.ctx, snapshot); err != nil {
		e.logger.ErrorContext(e.ctx, err, logger.Field{
			Key:   "action",
			Value: "store_snapshot",
		})
	} else {
		e.setLastSnapshotOffset(currentOffset)
		e.logger.Info("Snapshot stored successfully", logger.Field{
			Key:   "pair",
			Value: e.config.Pair,
		}, logger.Field{
			Key:   "offset",
			Value: currentOffset,
		})
	}
}

// Thread-safe getters and setters
func (e *Engine) getOrderOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderOffset
}

func (e *Engine) setOrderOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderOffset = offset
}

func (e *Engine) getLastSnapshotOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSnapshotOffset
}

func (e *Engine) setLastSnapshotOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSnapshotOffset = offset
}

// loadSnapshot loads and restores the orderbook and the meta index from the
// last stored snapshot.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	snapshot, err := e.snapshotStore.LoadStore(ctx)
	if err != nil {
		return err
	}

	if snapshot != nil {
		if err := e.orderbook.RestoreOrderbook(snapshot); err != nil {
			return err
		}

		meta := make(map[int64]orderMeta, len(snapshot.OrderBookSnapshot.Orders))
		for _, bo := range snapshot.OrderBookSnapshot.Orders {
			meta[bo.Sequence] = orderMeta{
				orderID:   bo.OrderID,
				userID:    bo.UserID,
				remaining: bo.Size,
			}
		}
		e.meta = meta

		e.mu.Lock()
		e.orderOffset = snapshot.OrderOffset
		e.lastSnapshotOffset = snapshot.OrderOffset
		e.mu.Unlock()

		e.logger.Info("Orderbook restored from snapshot", logger.Field{
			Key:   "orderOffset",
			Value: snapshot.OrderOffset,
		}, logger.Field{
			Key:   "restingOrders",
			Value: len(snapshot.OrderBookSnapshot.Orders),
		})
	}

	return nil
}

// GetOrderOffset returns the current order offset
func (e *Engine) GetOrderOffset() int64 {
	return e.getOrderOffset()
}

// GetLastSnapshotOffset returns the last snapshot offset
func (e *Engine) GetLastSnapshotOffset() int64 {
	return e.getLastSnapshotOffset()
}

// GetTotalFills returns the total number of fills processed
func (e *Engine) GetTotalFills() int64 {
	e.fillsMutex.RLock()
	defer e.fillsMutex.RUnlock()
	return e.totalFills
}
