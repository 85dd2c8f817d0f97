// Package mq publishes reservation changes on Redis pub/sub and runs the
// worker that consumes them.
package mq

import (
	"context"
	"encoding/json"
	"time"

	"cafehub/logging"
	"cafehub/reservations"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const ReservationChannel = "reservation-events"

// ReservationEvent is the message carried on ReservationChannel.
type ReservationEvent struct {
	Action        string    `json:"action"`
	ReservationID string    `json:"reservation_id"`
	CafeID        string    `json:"cafe_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"reservation_type"`
	From          string    `json:"from,omitempty"`
	Status        string    `json:"status"`
	OrderID       string    `json:"order_id,omitempty"`
	At            time.Time `json:"at"`
}

func EventFrom(ch reservations.Change) ReservationEvent {
	r := ch.Reservation
	return ReservationEvent{
		Action:        ch.Action,
		ReservationID: r.ID,
		CafeID:        r.CafeID,
		UserID:        r.UserID,
		Type:          r.Type,
		From:          ch.From,
		Status:        r.Status,
		OrderID:       r.OrderID,
		At:            r.UpdatedAt,
	}
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Emitter struct {
	pub publisher
}

func NewEmitter(c *redis.Client) *Emitter {
	return &Emitter{pub: c}
}

// Hook is registered with the reservation service; a failed publish is
// logged by the service and never undoes the change.
func (e *Emitter) Hook(ctx context.Context, ch reservations.Change) error {
	ev := EventFrom(ch)
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := e.pub.Publish(ctx, ReservationChannel, data).Err(); err != nil {
		return err
	}
	logging.For("mq").WithFields(logrus.Fields{
		"reservation_id": ev.ReservationID,
		"action":         ev.Action,
		"status":         ev.Status,
	}).Debug("reservation event published")
	return nil
}

// StartReservationWorker delivers every event on ReservationChannel to handle
// until ctx is cancelled.
func StartReservationWorker(ctx context.Context, c *redis.Client, handle func(ev ReservationEvent, raw []byte)) {
	sub := c.Subscribe(ctx, ReservationChannel)
	defer sub.Close()

	log := logging.For("mq")
	log.WithField("channel", ReservationChannel).Info("listening for reservation events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev ReservationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.WithError(err).Warn("discarding malformed reservation event")
				continue
			}
			handle(ev, []byte(msg.Payload))
		}
	}
}
