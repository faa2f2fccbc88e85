package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/agentweave/agentweave/core"
	"github.com/agentweave/agentweave/logging"
)

// Receiver is implemented by agents that consume inbound messages. Agents
// without it are still valid recipients; the message is emitted and logged
// but not handed to the agent.
type Receiver interface {
	ReceiveMessage(ctx context.Context, msg core.AgentMessage) error
}

// Options configures a MessageBus.
type Options struct {
	// Emitter receives message:{sent,received} events. Nil disables emission.
	Emitter *core.Emitter
	// Logger receives bus instrumentation. Nil means no logging.
	Logger logging.Logger
}

// MessageBus routes messages between agents registered in a shared registry.
// Delivery is synchronous and in-process. All methods are safe for
// concurrent use.
type MessageBus struct {
	registry *core.Registry
	emitter  *core.Emitter
	logger   logging.Logger
}

// New creates a message bus resolving recipients from registry.
func New(registry *core.Registry, optFns ...func(o *Options)) *MessageBus {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &MessageBus{
		registry: registry,
		emitter:  opts.Emitter,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// SendMessage delivers msg to its recipient. A message addressed to the
// broadcast recipient fans out to every registered agent. Sending to an
// unregistered recipient or sending an expired message is an error.
func (b *MessageBus) SendMessage(ctx context.Context, msg core.AgentMessage) error {
	if msg.To == "" {
		return fmt.Errorf("message %q has no recipient", msg.ID)
	}
	if msg.IsExpired(time.Now().UTC()) {
		return fmt.Errorf("message %q from %q expired before delivery", msg.ID, msg.From)
	}

	if msg.IsBroadcast() {
		return b.broadcast(ctx, msg)
	}

	recipient, ok := b.registry.Get(msg.To)
	if !ok {
		return fmt.Errorf("message %q addresses unknown agent %q", msg.ID, msg.To)
	}

	ev := core.NewEvent(core.EventMessageSent)
	ev.AgentID = msg.From
	ev.Payload = map[string]any{"message_id": msg.ID, "to": msg.To, "type": msg.Type}
	b.emitter.Emit(ev)

	if err := b.deliver(ctx, recipient, msg); err != nil {
		return err
	}

	b.logger.Debug("bus.message.sent", "message_id", msg.ID, "from", msg.From, "to", msg.To, "type", msg.Type)
	return nil
}

// Broadcast constructs a broadcast message from sender and delivers a copy
// to every registered agent, the sender included.
func (b *MessageBus) Broadcast(ctx context.Context, from, msgType, content string) error {
	return b.SendMessage(ctx, core.NewAgentMessage(from, core.BroadcastRecipient, msgType, content))
}

func (b *MessageBus) broadcast(ctx context.Context, msg core.AgentMessage) error {
	ev := core.NewEvent(core.EventMessageSent)
	ev.AgentID = msg.From
	ev.Payload = map[string]any{"message_id": msg.ID, "to": core.BroadcastRecipient, "type": msg.Type}
	b.emitter.Emit(ev)

	var firstErr error
	delivered := 0
	for _, id := range b.registry.IDs() {
		recipient, ok := b.registry.Get(id)
		if !ok { // unregistered between IDs() and Get()
			continue
		}

		copyMsg := msg
		copyMsg.To = id
		if err := b.deliver(ctx, recipient, copyMsg); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("broadcast %q to %q: %w", msg.ID, id, err)
			}
			continue
		}
		delivered++
	}

	b.logger.Debug("bus.message.broadcast", "message_id", msg.ID, "from", msg.From, "delivered", delivered)
	return firstErr
}

// deliver hands the message to the recipient and emits message:received.
func (b *MessageBus) deliver(ctx context.Context, recipient core.Agent, msg core.AgentMessage) error {
	if r, ok := recipient.(Receiver); ok {
		if err := r.ReceiveMessage(ctx, msg); err != nil {
			return fmt.Errorf("agent %q rejected message %q: %w", recipient.ID(), msg.ID, err)
		}
	}

	ev := core.NewEvent(core.EventMessageReceived)
	ev.AgentID = recipient.ID()
	ev.Payload = map[string]any{"message_id": msg.ID, "from": msg.From, "type": msg.Type}
	b.emitter.Emit(ev)
	return nil
}
