package instance

import (
	"sync"

	"github.com/relab/qbft"
)

// Sender delivers the messages emitted by an instance.
// An error from Send means that nothing the instance emits can be observed any more.
type Sender interface {
	Send(msg qbft.OutMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msg qbft.OutMessage) error

// Send calls f(msg).
func (f SenderFunc) Send(msg qbft.OutMessage) error {
	return f(msg)
}

// Outbox is a channel-backed Sender.
// The consumer reads from Messages and calls Close when it goes away;
// any Send after that fails with qbft.ErrChannelClosed.
type Outbox struct {
	messages chan qbft.OutMessage
	closed   chan struct{}
	once     sync.Once
}

// NewOutbox returns an outbox whose channel has the given capacity.
func NewOutbox(size int) *Outbox {
	return &Outbox{
		messages: make(chan qbft.OutMessage, size),
		closed:   make(chan struct{}),
	}
}

// Send delivers msg, blocking while the channel is full.
func (o *Outbox) Send(msg qbft.OutMessage) error {
	select {
	case <-o.closed:
		return qbft.ErrChannelClosed
	default:
	}
	select {
	case o.messages <- msg:
		return nil
	case <-o.closed:
		return qbft.ErrChannelClosed
	}
}

// Messages returns the channel of emitted messages.
func (o *Outbox) Messages() <-chan qbft.OutMessage {
	return o.messages
}

// Close signals that the consumer is gone.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.closed) })
}

// Closed returns a channel that is closed once Close has been called.
func (o *Outbox) Closed() <-chan struct{} {
	return o.closed
}

var _ Sender = (*Outbox)(nil)
