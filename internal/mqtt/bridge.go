package mqtt

import (
	"sync"
	"time"

	"light_control/internal/logger"
	"light_control/internal/models"
)

// queueSize bounds messages waiting for the broker. Overflow is dropped.
const queueSize = 64

// Bridge is a service.View that forwards notifications to MQTT. Relay
// snapshots and schedule lists are retained; status messages are not. Board
// clock updates are not forwarded. Publishing happens on the bridge's own
// goroutine so view callbacks never wait on the network.
type Bridge struct {
	pub    Publisher
	prefix string
	log    *logger.Logger
	now    func() time.Time

	queue chan Message
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu         sync.Mutex // guards lastRelays and hasRelays; held across the enqueue
	lastRelays models.RelaySnapshot
	hasRelays  bool
}

// NewBridge starts a bridge publishing under prefix.
func NewBridge(pub Publisher, prefix string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	b := &Bridge{
		pub:    pub,
		prefix: prefix,
		log:    log,
		now:    time.Now,
		queue:  make(chan Message, queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// OnRelaySnapshotChanged publishes s unless it equals the last one queued.
// Every successful poll reports a snapshot, so most are repeats. A snapshot
// dropped on a full queue is retried on the next report.
func (b *Bridge) OnRelaySnapshotChanged(s models.RelaySnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasRelays && b.lastRelays == s {
		return
	}

	payload, err := FormatRelays(b.now(), s)
	if err != nil {
		b.log.Errorw("mqtt_format_failed", "topic", TopicRelays, "err", err)
		return
	}
	if b.enqueue(Message{Topic: Topic(b.prefix, TopicRelays), Retained: true, Payload: payload}) {
		b.lastRelays, b.hasRelays = s, true
	}
}

func (b *Bridge) OnScheduleListChanged(entries []models.ScheduleEntry) {
	payload, err := FormatSchedules(b.now(), entries)
	if err != nil {
		b.log.Errorw("mqtt_format_failed", "topic", TopicSchedules, "err", err)
		return
	}
	b.enqueue(Message{Topic: Topic(b.prefix, TopicSchedules), Retained: true, Payload: payload})
}

func (b *Bridge) OnStatusMessage(msg string) {
	payload, err := FormatStatus(b.now(), msg)
	if err != nil {
		b.log.Errorw("mqtt_format_failed", "topic", TopicStatus, "err", err)
		return
	}
	b.enqueue(Message{Topic: Topic(b.prefix, TopicStatus), Payload: payload})
}

func (b *Bridge) OnTimeUpdated(string) {}

// enqueue reports whether m was queued for publishing.
func (b *Bridge) enqueue(m Message) bool {
	select {
	case <-b.stop:
		return false
	default:
	}
	select {
	case b.queue <- m:
		return true
	default:
		b.log.Warnw("mqtt_queue_full", "topic", m.Topic)
		return false
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		select {
		case m := <-b.queue:
			b.publish(m)
		case <-b.stop:
			// Flush what is already queued.
			for {
				select {
				case m := <-b.queue:
					b.publish(m)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(m Message) {
	if err := b.pub.Publish(m.Topic, m.Retained, m.Payload); err != nil {
		b.log.Warnw("mqtt_publish_failed", "topic", m.Topic, "err", err)
	}
}

// Close flushes queued messages and disconnects the publisher. Notifications
// after Close are dropped.
func (b *Bridge) Close() error {
	b.once.Do(func() { close(b.stop) })
	<-b.done
	return b.pub.Close()
}
