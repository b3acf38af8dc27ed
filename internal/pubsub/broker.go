package pubsub

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ActivityTopic carries every mutation made through the admin.
const ActivityTopic = "activity"

// Broker a simple in-memory pub/sub system with a bounded replay cache per topic.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	cache       map[string][][]byte      // topic -> most recent messages
	cacheLimit  int
}

// Activity describes one admin mutation.
type Activity struct {
	Admin    string    `json:"admin"`
	Action   string    `json:"action"`
	ObjectID string    `json:"object_id,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Count    int64     `json:"count,omitempty"`
	Time     time.Time `json:"time"`
}

func NewBroker(cacheLimit int) *Broker {
	return &Broker{
		subscribers: make(map[string][]chan []byte),
		cache:       make(map[string][][]byte),
		cacheLimit:  cacheLimit,
	}
}

// Subscribe subscribes to a topic. It first sends all cached messages to the new
// subscriber, then adds the subscriber to receive live messages.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	ch := make(chan []byte, 128)

	history := append([][]byte(nil), b.cache[topic]...)
	go func() {
		for _, msg := range history {
			ch <- msg
		}
	}()

	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, sub := range subscribers {
				if sub == ch {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s, sending %d cached messages", topic, len(history))
	return ch, unsubscribe
}

// Publish publishes a message to all subscribers of a topic and caches it.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cached := append(b.cache[topic], msg)
	if b.cacheLimit > 0 && len(cached) > b.cacheLimit {
		cached = cached[len(cached)-b.cacheLimit:]
	}
	b.cache[topic] = cached

	// Broadcast to live subscribers (non-blocking).
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// A slow subscriber misses the message rather than blocking the publisher.
		}
	}
}

// PublishActivity stamps and publishes a on ActivityTopic.
func (b *Broker) PublishActivity(a Activity) {
	if a.Time.IsZero() {
		a.Time = time.Now().UTC()
	}
	data, err := json.Marshal(a)
	if err != nil {
		zap.S().Warnf("failed to encode activity: %v", err)
		return
	}
	b.Publish(ActivityTopic, data)
}
