package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// SyncQueue is a durable, at-least-once FIFO queue for sheet-sync tasks,
// backed by a NATS JetStream work-queue stream. A task is only removed from
// the stream once the consumer explicitly acks it; a nak (or a lost
// connection before ack) causes JetStream to redeliver it.
type SyncQueue struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	stream   string
	subject  string
	consumer jetstream.Consumer
}

func Connect(url, streamName, subject string) (*SyncQueue, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring stream %s: %w", streamName, err)
	}

	return &SyncQueue{nc: nc, js: js, stream: streamName, subject: subject}, nil
}

// Enqueue publishes a task onto the queue. Used both for the first scheduling
// of a sync and for re-queueing on retryable failure.
func (q *SyncQueue) Enqueue(ctx context.Context, task SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshalling sync task: %w", err)
	}
	_, err = q.js.Publish(ctx, q.subject, data)
	if err != nil {
		return fmt.Errorf("publishing sync task: %w", err)
	}
	return nil
}

// ackNaker is the narrow slice of jetstream.Msg a Delivery needs, declared
// here so a Delivery can be built around a fake in worker tests.
type ackNaker interface {
	Ack() error
	Nak() error
}

// Delivery wraps a dequeued task with its explicit ack/nak handle.
type Delivery struct {
	Task SyncTask
	msg  ackNaker
}

func (d *Delivery) Ack() error { return d.msg.Ack() }
func (d *Delivery) Nak() error { return d.msg.Nak() }

// Dequeue blocks up to timeout for a single task from the durable consumer.
// Returns (nil, nil) if no task was available within the timeout.
func (q *SyncQueue) Dequeue(ctx context.Context, durableName string, timeout time.Duration) (*Delivery, error) {
	if q.consumer == nil {
		consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, jetstream.ConsumerConfig{
			Durable:       durableName,
			FilterSubject: q.subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("creating consumer %s: %w", durableName, err)
		}
		q.consumer = consumer
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(timeout))
	if err != nil {
		return nil, fmt.Errorf("fetching from consumer: %w", err)
	}

	for msg := range msgs.Messages() {
		var task SyncTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			msg.Nak()
			continue
		}
		return &Delivery{Task: task, msg: msg}, nil
	}
	if err := msgs.Error(); err != nil && fetchCtx.Err() == nil {
		return nil, fmt.Errorf("consumer fetch error: %w", err)
	}
	return nil, nil
}

func (q *SyncQueue) Close() {
	if q.nc != nil {
		q.nc.Close()
	}
}
