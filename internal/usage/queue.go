package usage

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher sends one message body to the usage queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueRecorder hands records to a broker; cmd/worker persists them.
type QueueRecorder struct {
	pub Publisher
}

func NewQueueRecorder(pub Publisher) *QueueRecorder {
	return &QueueRecorder{pub: pub}
}

func (q *QueueRecorder) Record(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return q.pub.Publish(ctx, body)
}

// Decode parses a queued record.
func Decode(body []byte) (Record, error) {
	var rec Record
	err := json.Unmarshal(body, &rec)
	return rec, err
}
