package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/logger"
)

// ChangeListener relays NOTIFY payloads from ChangeChannel into a publisher.
type ChangeListener struct {
	connStr      string
	pub          events.Publisher
	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

func NewChangeListener(connStr string, pub events.Publisher) *ChangeListener {
	return &ChangeListener{
		connStr:      connStr,
		pub:          pub,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *ChangeListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.connStr, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("change listener connection event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", ChangeChannel, err)
	}
	logger.Info("change listener started", "channel", ChangeChannel)

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; notifications sent while disconnected are lost
			if n == nil {
				logger.Warn("change listener reconnected, events may have been missed")
				continue
			}
			l.dispatch(n.Extra)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logger.Warn("change listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *ChangeListener) dispatch(payload string) {
	ev, err := decodeChange(payload)
	if err != nil {
		logger.Warn("discarding malformed change notification", "payload", payload, "error", err)
		return
	}
	l.pub.Publish(ev)
}

func decodeChange(payload string) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Collection == "" || ev.ID == "" {
		return ev, errors.New("incomplete change event")
	}
	return ev, nil
}
