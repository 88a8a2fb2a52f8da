package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScheduleChanged announces that bookings for Date changed server-side.
type ScheduleChanged struct {
	Type    string `json:"type"`
	Date    string `json:"date"`
	Subject string `json:"subject,omitempty"`
	TsUnix  int64  `json:"ts_unix"`
}

type SchedulePubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSchedulePubSub(rdb *redis.Client) *SchedulePubSub {
	return &SchedulePubSub{rdb: rdb, channel: ChannelScheduleChanged()}
}

func (p *SchedulePubSub) PublishScheduleChanged(ctx context.Context, date, subject string) error {
	b, err := json.Marshal(ScheduleChanged{
		Type:    "schedule_changed",
		Date:    date,
		Subject: subject,
		TsUnix:  time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every well-formed message, until ctx
// is done or the subscription closes.
func (p *SchedulePubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg ScheduleChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg ScheduleChanged
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.Date != "" {
				handler(ctx, msg)
			}
		}
	}
}
