package messaging

import "context"

// SentMessage records one delivery through a MockSender.
type SentMessage struct {
	To   string
	Body string
}

// MockSender is a Sender for tests that records instead of delivering.
type MockSender struct {
	SentMessages []SentMessage
	// SendErr, when set, is returned by every SendMessage call.
	SendErr error
}

// NewMockSender creates an empty mock sender.
func NewMockSender() *MockSender {
	return &MockSender{SentMessages: []SentMessage{}}
}

// ValidateAndCanonicalizeRecipient implements Sender.
func (m *MockSender) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizeRecipient(recipient)
}

// SendMessage records the message.
func (m *MockSender) SendMessage(_ context.Context, to string, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}
