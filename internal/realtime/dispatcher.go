package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/metrics"
)

const (
	// relayTimeout bounds a single relay publish
	relayTimeout = 5 * time.Second
	// relayQueueSize bounds the events waiting for the relay publisher
	relayQueueSize = 256
)

// Relay carries encoded events between server instances
type Relay interface {
	Publish(ctx context.Context, msg []byte) error
	// Subscribe blocks, calling deliver for every message, until ctx is done
	Subscribe(ctx context.Context, deliver func(msg []byte)) error
}

// Observer is notified of every event published by this instance
type Observer func(Event)

type outbound struct {
	ctx context.Context
	ev  Event
	msg []byte
}

// Dispatcher publishes events to wishlist channels. Publishing never blocks
// on delivery and never fails the caller. Relay publishes go through a
// single FIFO queue so every instance sees events in publish order.
type Dispatcher struct {
	hub     *Hub
	relay   Relay
	logger  *logrus.Logger
	metrics *metrics.Metrics
	queue   chan outbound

	mu        sync.RWMutex
	observers []Observer
}

// NewDispatcher creates a dispatcher delivering to hub. relay may be nil, in
// which case events only reach sessions of this instance.
func NewDispatcher(hub *Hub, relay Relay, logger *logrus.Logger, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{hub: hub, relay: relay, logger: logger, metrics: m}
	if relay != nil {
		d.queue = make(chan outbound, relayQueueSize)
	}
	return d
}

// Observe registers fn to be called for every published event
func (d *Dispatcher) Observe(fn Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

// Publish builds an event and sends it to the wishlist channel
func (d *Dispatcher) Publish(ctx context.Context, wishlistID int64, eventType EventType, actorID int64, payload any) {
	ev, err := NewEvent(eventType, wishlistID, actorID, payload)
	if err != nil {
		d.logger.WithError(err).WithField("wishlist_id", wishlistID).Error("Failed to build event")
		return
	}
	d.PublishEvent(ctx, ev)
}

// PublishEvent sends a prepared event to its wishlist channel
func (d *Dispatcher) PublishEvent(ctx context.Context, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		d.logger.WithError(err).WithField("type", ev.Type).Error("Failed to encode event")
		return
	}

	d.metrics.EventPublished(string(ev.Type))
	d.notify(ev)

	if d.relay == nil {
		d.deliver(ev, msg)
		return
	}

	// The request context ends with the response; the relay publish must not.
	job := outbound{ctx: context.WithoutCancel(ctx), ev: ev, msg: msg}
	select {
	case d.queue <- job:
	default:
		d.metrics.Dropped()
		d.logger.WithFields(logrus.Fields{
			"type":        ev.Type,
			"wishlist_id": ev.WishlistID,
		}).Warn("Relay queue full, delivering locally")
		d.deliver(ev, msg)
	}
}

// Run publishes queued events to the relay and consumes it until ctx is
// done. Without a relay it returns at once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.relay == nil {
		return nil
	}
	d.logger.Info("Realtime relay subscriber started")
	defer d.logger.Info("Realtime relay subscriber stopped")

	go d.publishQueued(ctx)

	return d.relay.Subscribe(ctx, func(msg []byte) {
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			d.logger.WithError(err).Warn("Discarding malformed relay message")
			return
		}
		d.deliver(ev, msg)
	})
}

func (d *Dispatcher) publishQueued(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.publishRelay(job)
		}
	}
}

func (d *Dispatcher) publishRelay(job outbound) {
	ctx, cancel := context.WithTimeout(job.ctx, relayTimeout)
	defer cancel()

	if err := d.relay.Publish(ctx, job.msg); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"type":        job.ev.Type,
			"wishlist_id": job.ev.WishlistID,
		}).Warn("Relay publish failed, delivering locally")
		d.deliver(job.ev, job.msg)
	}
}

// deliver hands msg to the local hub and applies the channel side effects
// of membership changes
func (d *Dispatcher) deliver(ev Event, msg []byte) {
	n := d.hub.Broadcast(ev.WishlistID, msg, ev.Origin)

	switch ev.Type {
	case EventWishlistDeleted:
		d.hub.CloseChannel(ev.WishlistID)
	case EventMemberRemoved:
		var p MemberRemovedPayload
		if err := ev.Decode(&p); err == nil {
			d.hub.EvictUser(ev.WishlistID, p.UserID)
		}
	}

	d.logger.WithFields(logrus.Fields{
		"type":        ev.Type,
		"wishlist_id": ev.WishlistID,
		"sessions":    n,
	}).Debug("Event delivered")
}

func (d *Dispatcher) notify(ev Event) {
	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()

	for _, fn := range observers {
		fn(ev)
	}
}
