package testutil

import (
	"context"
	"sync"

	"github.com/recorrente/recorrente/internal/notification"
)

// RecordingNotifier captures sent messages for assertions
type RecordingNotifier struct {
	mu       sync.Mutex
	Messages []*notification.Message
	// SendErr fails Send when set
	SendErr error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Messages: make([]*notification.Message, 0)}
}

func (n *RecordingNotifier) Send(ctx context.Context, msg *notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.SendErr != nil {
		return n.SendErr
	}
	n.Messages = append(n.Messages, msg)
	return nil
}
