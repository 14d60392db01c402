// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/ShopForge/internal/logger"
	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
)

const (
	streamName = "SHOPFORGE"

	headerRequestID  = "X-Request-ID"
	headerRetryCount = "Retry-Count"

	// maxRetries is how many failed deliveries a message gets before it is
	// parked on <subject>.dlq.
	maxRetries = 3

	dlqSuffix = ".dlq"
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.Name("shopforge"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"seo.>"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// JetStream exposes the JetStream context, e.g. for key-value buckets.
func (q *Queue) JetStream() jetstream.JetStream {
	return q.js
}

// Publish sends data to subject, carrying the request ID from ctx as a header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe creates an ephemeral consumer for subject, so every process
// sees every message published from now on. Messages failing schema
// validation go straight to the DLQ; handler failures are retried up to
// maxRetries deliveries first.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject:     subject,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		MaxDeliver:        maxRetries + 1,
		InactiveThreshold: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handle(msg jetstream.Msg, handler messagequeue.Handler) {
	ctx := context.Background()
	if id := msg.Headers().Get(headerRequestID); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}
	log := logger.From(ctx).With("subject", msg.Subject())

	if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
		log.Warn("invalid message", "error", err)
		q.moveToDLQ(ctx, msg)
		return
	}

	if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
		if deliveries(msg) >= maxRetries {
			log.Error("message handler failed, retries exhausted", "error", err)
			q.moveToDLQ(ctx, msg)
			return
		}
		log.Warn("message handler failed, will retry", "error", err)
		if nakErr := msg.NakWithDelay(time.Second); nakErr != nil {
			log.Error("nats nak failed", "error", nakErr)
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		log.Error("nats ack failed", "error", ackErr)
	}
}

// deliveries returns how often msg has been attempted, from JetStream
// metadata or the Retry-Count header, whichever is higher.
func deliveries(msg jetstream.Msg) int {
	n := 0
	if md, err := msg.Metadata(); err == nil {
		n = int(md.NumDelivered)
	}
	if h, err := strconv.Atoi(msg.Headers().Get(headerRetryCount)); err == nil && h > n {
		n = h
	}
	return n
}

func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlq := &nats.Msg{Subject: msg.Subject() + dlqSuffix, Data: msg.Data(), Header: nats.Header{}}
	for k, v := range msg.Headers() {
		dlq.Header[k] = v
	}
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlq.Subject, "error", err)
		_ = msg.Nak()
		return
	}
	if err := msg.Term(); err != nil {
		slog.Error("nats term failed", "subject", msg.Subject(), "error", err)
	}
}

// KeyValue creates or updates a key-value bucket with the given entry lifetime.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket, TTL: ttl})
	if err != nil {
		return nil, fmt.Errorf("nats kv %s: %w", bucket, err)
	}
	return kv, nil
}

// IsConnected reports whether the underlying connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (q *Queue) Close() error {
	if err := q.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		q.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
