// Package brokerport is a RabbitMQ job broker: a durable work queue plus an RPC-style reply queue.
package brokerport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/pending"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const (
	contentType = "application/json"
	claimTTL    = 10 * time.Minute
)

var _ secondary.JobBroker = (*Broker)(nil)

type Broker struct {
	conn       *amqp.Connection
	pubCh      *amqp.Channel
	consCh     *amqp.Channel
	pubMu      sync.Mutex
	queue      string
	replyQueue string
	deliveries <-chan amqp.Delivery
	hub        *pending.Hub
	logger     primary.Logger

	claimMu sync.Mutex
	claims  map[uuid.UUID]time.Time
}

// Dial connects, declares the work queue and an exclusive reply queue, and starts consuming.
// prefetch bounds unacked deliveries per node and should match the slot count.
func Dial(url, queue string, prefetch int, logger primary.Logger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}
	b := &Broker{
		conn:   conn,
		queue:  queue,
		hub:    pending.NewHub(),
		logger: logger,
		claims: make(map[uuid.UUID]time.Time),
	}
	if err := b.setup(prefetch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Broker) setup(prefetch int) error {
	var err error
	if b.pubCh, err = b.conn.Channel(); err != nil {
		return fmt.Errorf("failed to open publish channel: %w", err)
	}
	if _, err = b.pubCh.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
	}

	reply, err := b.pubCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare reply queue: %w", err)
	}
	b.replyQueue = reply.Name
	replies, err := b.pubCh.Consume(b.replyQueue, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume replies: %w", err)
	}
	go b.resolveReplies(replies)

	if b.consCh, err = b.conn.Channel(); err != nil {
		return fmt.Errorf("failed to open consume channel: %w", err)
	}
	if err = b.consCh.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	if b.deliveries, err = b.consCh.Consume(b.queue, "", false, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to consume %s: %w", b.queue, err)
	}
	return nil
}

func (b *Broker) resolveReplies(replies <-chan amqp.Delivery) {
	for d := range replies {
		msg, err := decodeReply(d)
		if err != nil {
			b.logger.Error("Dropping malformed reply", "correlationId", d.CorrelationId, "error", err)
			continue
		}
		if !b.hub.Resolve(msg) {
			b.logger.Debug("Reply for job nobody awaits", "jobId", msg.JobID)
		}
	}
}

func (b *Broker) Enqueue(ctx context.Context, job *domain.Job) error {
	msg, err := jobPublishing(job, b.replyQueue, time.Now())
	if err != nil {
		return err
	}
	b.hub.Register(job.ID)
	if err := b.publish(ctx, b.queue, msg); err != nil {
		b.hub.Forget(job.ID)
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (b *Broker) Dequeue(ctx context.Context) (*domain.Delivery, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-b.deliveries:
			if !ok {
				return nil, errs.ErrBrokerClosed
			}
			var job domain.Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				b.logger.Error("Rejecting malformed job", "messageId", d.MessageId, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			return &domain.Delivery{Job: &job, Redelivered: d.Redelivered, Receipt: d}, nil
		}
	}
}

// Claim is node-local; across nodes the single unacked delivery plus the redelivered flag
// keep a job from running twice
func (b *Broker) Claim(ctx context.Context, jobID uuid.UUID, slotID string) (bool, error) {
	b.claimMu.Lock()
	defer b.claimMu.Unlock()
	now := time.Now()
	for id, at := range b.claims {
		if now.Sub(at) > claimTTL {
			delete(b.claims, id)
		}
	}
	if _, ok := b.claims[jobID]; ok {
		return false, nil
	}
	b.claims[jobID] = now
	b.logger.Debug("Job claimed", "jobId", jobID, "slot", slotID)
	return true, nil
}

func (b *Broker) Done(ctx context.Context, delivery *domain.Delivery, result *domain.SubmissionResult) error {
	return b.settle(ctx, delivery, &domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   true,
		Result:    result,
		Timestamp: time.Now(),
	})
}

func (b *Broker) Fail(ctx context.Context, delivery *domain.Delivery, cause error) error {
	return b.settle(ctx, delivery, &domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   false,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	})
}

func (b *Broker) Discard(ctx context.Context, delivery *domain.Delivery) error {
	d, ok := delivery.Receipt.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("delivery %s has no amqp receipt", delivery.Job.ID)
	}
	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// settle replies first and acks second; a lost ack redelivers with the flag set and the
// slot then fails it instead of running it again
func (b *Broker) settle(ctx context.Context, delivery *domain.Delivery, msg *domain.JobResultMessage) error {
	d, ok := delivery.Receipt.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("delivery %s has no amqp receipt", delivery.Job.ID)
	}
	if d.ReplyTo != "" {
		reply, err := replyPublishing(msg, d.CorrelationId)
		if err != nil {
			return err
		}
		if err := b.publish(ctx, d.ReplyTo, reply); err != nil {
			return fmt.Errorf("failed to publish reply: %w", err)
		}
	}
	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func (b *Broker) Await(ctx context.Context, jobID uuid.UUID) (*domain.JobResultMessage, error) {
	return b.hub.Wait(ctx, jobID)
}

func (b *Broker) Close() error {
	if b.consCh != nil {
		_ = b.consCh.Close()
	}
	if b.pubCh != nil {
		_ = b.pubCh.Close()
	}
	return b.conn.Close()
}

func (b *Broker) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pubCh.PublishWithContext(ctx, "", key, false, false, msg)
}

// jobPublishing builds a persistent message that expires with the job's deadline
func jobPublishing(job *domain.Job, replyTo string, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:   contentType,
		DeliveryMode:  amqp.Persistent,
		CorrelationId: job.ID.String(),
		MessageId:     job.ID.String(),
		ReplyTo:       replyTo,
		Timestamp:     now,
		Body:          body,
	}
	if !job.Deadline.IsZero() {
		ttl := job.Deadline.Sub(now).Milliseconds()
		if ttl < 1 {
			ttl = 1
		}
		msg.Expiration = strconv.FormatInt(ttl, 10)
	}
	return msg, nil
}

func replyPublishing(result *domain.JobResultMessage, correlationID string) (amqp.Publishing, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal reply: %w", err)
	}
	return amqp.Publishing{
		ContentType:   contentType,
		CorrelationId: correlationID,
		Timestamp:     result.Timestamp,
		Body:          body,
	}, nil
}

func decodeReply(d amqp.Delivery) (*domain.JobResultMessage, error) {
	var msg domain.JobResultMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	if id, err := uuid.Parse(d.CorrelationId); err == nil && msg.JobID == uuid.Nil {
		msg.JobID = id
	}
	return &msg, nil
}
