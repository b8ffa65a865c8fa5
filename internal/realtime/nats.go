package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/search"
)

// NATS is a Broker over core NATS subjects <prefix>.<campus>.
type NATS struct {
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

// ConnectNATS dials url and returns a broker publishing under prefix.
func ConnectNATS(url, prefix string, log *slog.Logger) (*NATS, error) {
	log = log.With("service", "realtime")
	nc, err := nats.Connect(url,
		nats.Name("achados"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATS{nc: nc, prefix: prefix, log: log}, nil
}

// Subject returns the subject items for campus are published on. Campus
// names are normalised into a single token, "Asa Norte" becomes "asa_norte".
func (n *NATS) Subject(campus string) string {
	if campus == "" {
		return n.prefix + ".>"
	}
	return n.prefix + "." + subjectToken(campus)
}

func subjectToken(campus string) string {
	tok := strings.ReplaceAll(search.Normalize(campus), " ", "_")
	if tok == "" {
		return "_"
	}
	return tok
}

func (n *NATS) Publish(_ context.Context, item model.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	subject := n.prefix + "." + subjectToken(item.Campus)
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) Subscribe(campus string, fn func(model.Item)) (*Subscription, error) {
	subject := n.Subject(campus)
	sub, err := n.nc.Subscribe(subject, func(msg *nats.Msg) {
		var item model.Item
		if err := json.Unmarshal(msg.Data, &item); err != nil {
			n.log.Warn("dropping malformed item event", "subject", msg.Subject, "error", err)
			return
		}
		fn(item)
	})
	if err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return newSubscription(campus, sub.Unsubscribe), nil
}

// Flush waits until the server has processed everything published so far.
func (n *NATS) Flush() error {
	return n.nc.Flush()
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	if n.nc.IsClosed() {
		return nil
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return fmt.Errorf("draining nats: %w", err)
	}
	return nil
}
