package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewComputeMessage(ComputeJob{Date: "2024-03-15", Branch: "Mirpur"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	select {
	case got := <-messages:
		if got.Type != "calculate" {
			t.Errorf("type = %q, want calculate", got.Type)
		}
		job, err := DecodeComputeJob(got)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if job.Date != "2024-03-15" || job.Branch != "Mirpur" {
			t.Errorf("job = %+v", job)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestDecodeComputeJobRejectsGarbage(t *testing.T) {
	if _, err := DecodeComputeJob(Message{Type: "calculate", Body: []byte("not json")}); err == nil {
		t.Error("expected decode error")
	}
}
