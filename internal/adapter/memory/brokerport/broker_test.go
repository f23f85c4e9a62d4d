package brokerport

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

func newJob() *domain.Job {
	return domain.NewJob(domain.NewSubmission("python", "print(1)", nil), time.Minute)
}

func TestBrokerRoundTrip(t *testing.T) {
	b := NewBroker(4)
	ctx := context.Background()
	job := newJob()

	if err := b.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	d, err := b.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if d.Job.ID != job.ID {
		t.Fatalf("Dequeue() job = %s, want %s", d.Job.ID, job.ID)
	}

	ok, _ := b.Claim(ctx, job.ID, "slot-1")
	if !ok {
		t.Fatal("first Claim() = false")
	}
	if ok, _ := b.Claim(ctx, job.ID, "slot-2"); ok {
		t.Fatal("second Claim() = true, job would run twice")
	}

	result := &domain.SubmissionResult{SubmissionID: job.ID, Status: domain.StatusSuccess}
	if err := b.Done(ctx, d, result); err != nil {
		t.Fatalf("Done() error = %v", err)
	}

	msg, err := b.Await(ctx, job.ID)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !msg.Success || msg.Result.Status != domain.StatusSuccess {
		t.Errorf("Await() = %+v", msg)
	}
}

func TestBrokerFail(t *testing.T) {
	b := NewBroker(1)
	ctx := context.Background()
	job := newJob()

	_ = b.Enqueue(ctx, job)
	d, _ := b.Dequeue(ctx)
	_ = b.Fail(ctx, d, errs.ErrJobExpired)

	msg, err := b.Await(ctx, job.ID)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if msg.Success || msg.Error != errs.ErrJobExpired.Error() {
		t.Errorf("Await() = %+v, want failure message", msg)
	}
}

func TestBrokerFIFO(t *testing.T) {
	b := NewBroker(3)
	ctx := context.Background()
	jobs := []*domain.Job{newJob(), newJob(), newJob()}
	for _, j := range jobs {
		_ = b.Enqueue(ctx, j)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	for i, want := range jobs {
		d, _ := b.Dequeue(ctx)
		if d.Job.ID != want.ID {
			t.Errorf("Dequeue() #%d = %s, want %s", i, d.Job.ID, want.ID)
		}
	}
}

func TestBrokerEnqueueBlocksWhenFull(t *testing.T) {
	b := NewBroker(1)
	_ = b.Enqueue(context.Background(), newJob())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := b.Enqueue(ctx, newJob()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() error = %v, want deadline exceeded", err)
	}
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(1)
	_ = b.Close()
	_ = b.Close()

	if _, err := b.Dequeue(context.Background()); !errors.Is(err, errs.ErrBrokerClosed) {
		t.Errorf("Dequeue() error = %v, want ErrBrokerClosed", err)
	}
	if err := b.Enqueue(context.Background(), newJob()); !errors.Is(err, errs.ErrBrokerClosed) {
		t.Errorf("Enqueue() error = %v, want ErrBrokerClosed", err)
	}
}
