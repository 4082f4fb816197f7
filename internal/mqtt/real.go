package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	// BufferSize is the number of messages kept while disconnected.
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	eventsTopic string
	systemTopic string

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// The connection is retried in the background; publishing before it is up
// buffers the message.
func NewRealPublisher(opts Options) *RealPublisher {
	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	p := &RealPublisher{
		eventsTopic: EventsTopic(prefix),
		systemTopic: SystemTopic(prefix),
		buffer:      newRingBuffer(opts.BufferSize),
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.systemTopic, string(WillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", opts.Broker).Msg("mqtt connected")
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	return p
}

// Publish sends a clock event to the MQTT broker.
func (p *RealPublisher) Publish(event ClockEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: clock events drive automations downstream
	return p.send(bufferedMsg{topic: p.eventsTopic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages. Called from the paho connect handler.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Info().Int("count", len(msgs)).Msg("mqtt replaying buffered messages")
	for _, m := range msgs {
		// publish asynchronously; waiting inside the handler blocks paho
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close publishes nothing further and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
