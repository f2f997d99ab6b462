package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Kind enumerates the supported gameplay event payloads carried by the stream.
type Kind string

const (
	KindCombat      Kind = "combat"
	KindLifecycle   Kind = "lifecycle"
	KindHUD         Kind = "hud"
	KindProjectiles Kind = "projectiles"
)

// Envelope carries the protobuf payload together with sequencing metadata.
type Envelope struct {
	Sequence uint64
	Kind     Kind
	Payload  *structpb.Struct
}

// Clone duplicates the underlying payload so subscribers can mutate their copy safely.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Payload != nil {
		if msg, ok := proto.Clone(e.Payload).(*structpb.Struct); ok {
			clone.Payload = msg
		}
	}
	return &clone
}

// MarshalJSON renders the envelope as the protojson text frame sent to spectators.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	payload := e.Payload
	if payload == nil {
		payload = &structpb.Struct{}
	}
	//1.- Wrap the payload in a struct so sequence and kind travel with it.
	wrapper := &structpb.Struct{Fields: map[string]*structpb.Value{
		"sequence": structpb.NewNumberValue(float64(e.Sequence)),
		"kind":     structpb.NewStringValue(string(e.Kind)),
		"payload":  structpb.NewStructValue(payload),
	}}
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(wrapper)
}

// Config controls the retention policy for the stream log and subscriber buffers.
type Config struct {
	Retain int
}

// Default retention keeps the last 512 events if no explicit value is provided.
const defaultRetention = 512

// Stream coordinates ordered event delivery with at-least-once semantics per subscriber.
type Stream struct {
	mu          sync.Mutex
	nextSeq     uint64
	retention   int
	logOrder    []uint64
	logPayloads map[uint64]*Envelope
	subscribers map[string]*subscriberState
}

// subscriberState persists acknowledgement state between transient connections.
type subscriberState struct {
	id      string
	pending []uint64
	lastAck uint64
	ch      chan *Envelope
	done    chan struct{}
	active  bool
	// sent is the newest sequence handed to ch on the current connection.
	sent uint64
	// lagging routes delivery through catchUp until the connection has seen the whole log.
	lagging bool
	wake    chan struct{}
}

// Subscription exposes the event channel and acknowledgement helpers for a subscriber.
type Subscription struct {
	id     string
	stream *Stream
	events <-chan *Envelope
	done   chan struct{}
	once   sync.Once
}

// ErrOutOfOrderAck signals that a subscriber attempted to acknowledge future sequences.
var ErrOutOfOrderAck = errors.New("ack sequence must match the next pending event")

// NewStream constructs a stream using the provided configuration.
func NewStream(cfg Config) *Stream {
	retention := cfg.Retain
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Stream{
		retention:   retention,
		logPayloads: make(map[uint64]*Envelope),
		subscribers: make(map[string]*subscriberState),
	}
}

// Subscribe attaches the logical subscriber to the stream and replays outstanding events.
func (s *Stream) Subscribe(ctx context.Context, subscriberID string, buffer int) (*Subscription, error) {
	if s == nil {
		return nil, errors.New("nil stream")
	}
	if subscriberID == "" {
		return nil, errors.New("subscriber id must be provided")
	}
	if buffer <= 0 {
		buffer = 32
	}

	s.mu.Lock()
	state := s.ensureSubscriberLocked(subscriberID)
	if state.active && state.done != nil {
		close(state.done)
	}
	replay := s.collectReplayLocked(state)
	ch := make(chan *Envelope, buffer)
	done := make(chan struct{})
	wake := make(chan struct{}, 1)
	state.ch = ch
	state.done = done
	state.wake = wake
	state.active = true
	state.pending = append([]uint64(nil), replay...)
	state.sent = state.lastAck
	//1.- Outstanding events are replayed by catchUp before live delivery resumes.
	state.lagging = len(replay) > 0
	if state.lagging {
		wake <- struct{}{}
	}
	s.mu.Unlock()

	go s.catchUp(ctx, state, ch, done, wake)

	return &Subscription{id: subscriberID, stream: s, events: ch, done: done}, nil
}

// Events exposes the ordered delivery channel for the subscriber.
func (s *Subscription) Events() <-chan *Envelope {
	if s == nil {
		return nil
	}
	return s.events
}

// Done is closed once the subscription is closed or superseded by a resubscribe.
func (s *Subscription) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.done
}

// ID reports the logical subscriber identifier.
func (s *Subscription) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Ack informs the stream that the subscriber processed the given sequence.
func (s *Subscription) Ack(sequence uint64) error {
	if s == nil || s.stream == nil {
		return errors.New("subscription closed")
	}
	return s.stream.ack(s.id, sequence)
}

// Close marks the subscription as inactive while preserving acknowledgement state.
func (s *Subscription) Close() {
	if s == nil || s.stream == nil {
		return
	}
	s.once.Do(func() {
		s.stream.deactivateSubscriber(s.id, s.done)
	})
}

// Forget drops the subscriber and its acknowledgement state so it no longer pins retention.
func (s *Stream) Forget(subscriberID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.subscribers[subscriberID]; ok {
		if state.active && state.done != nil {
			close(state.done)
		}
		delete(s.subscribers, subscriberID)
	}
}

// Subscribers reports how many logical subscribers are currently connected.
func (s *Stream) Subscribers() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, state := range s.subscribers {
		if state.active {
			count++
		}
	}
	return count
}

// LastSequence reports the most recently assigned sequence number.
func (s *Stream) LastSequence() uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

func (s *Stream) ensureSubscriberLocked(subscriberID string) *subscriberState {
	state, ok := s.subscribers[subscriberID]
	if !ok {
		state = &subscriberState{id: subscriberID}
		s.subscribers[subscriberID] = state
	}
	return state
}

func (s *Stream) collectReplayLocked(state *subscriberState) []uint64 {
	//1.- When a subscriber reconnects we must replay any sequence greater than lastAck.
	replay := make([]uint64, 0, len(s.logOrder))
	for _, seq := range s.logOrder {
		if seq <= state.lastAck {
			continue
		}
		replay = append(replay, seq)
	}
	return replay
}

// catchUp feeds a lagging connection from the log in sequence order. Live publishes skip
// the channel while it runs so replayed and fresh events never interleave.
func (s *Stream) catchUp(ctx context.Context, state *subscriberState, ch chan<- *Envelope, done <-chan struct{}, wake <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-wake:
		}
		for {
			s.mu.Lock()
			if state.done != done {
				s.mu.Unlock()
				return
			}
			next := s.nextAfterLocked(state.sent)
			if next == nil {
				//1.- Caught up with the log; publishers may write to the channel directly again.
				state.lagging = false
				s.mu.Unlock()
				break
			}
			s.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case ch <- next:
			}

			s.mu.Lock()
			if state.done == done {
				state.sent = next.Sequence
			}
			s.mu.Unlock()
		}
	}
}

// nextAfterLocked returns a copy of the oldest retained event newer than sequence.
func (s *Stream) nextAfterLocked(sequence uint64) *Envelope {
	idx := sort.Search(len(s.logOrder), func(i int) bool { return s.logOrder[i] > sequence })
	if idx == len(s.logOrder) {
		return nil
	}
	return s.logPayloads[s.logOrder[idx]].Clone()
}

// PublishCombat converts the telemetry and enqueues it for reliable delivery.
func (s *Stream) PublishCombat(telemetry CombatTelemetry) (uint64, error) {
	if s == nil {
		return 0, errors.New("nil stream")
	}
	payload, err := telemetry.ToStruct()
	if err != nil {
		return 0, err
	}
	return s.publishEnvelope(&Envelope{Kind: KindCombat, Payload: payload})
}

// Publish encodes a generic payload for the given kind.
func (s *Stream) Publish(kind Kind, fields map[string]any) (uint64, error) {
	if s == nil {
		return 0, errors.New("nil stream")
	}
	switch kind {
	case KindLifecycle, KindHUD, KindProjectiles:
	case KindCombat:
		return 0, errors.New("combat events must use PublishCombat")
	default:
		return 0, fmt.Errorf("unsupported event kind %q", kind)
	}
	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return s.publishEnvelope(&Envelope{Kind: kind, Payload: payload})
}

func (s *Stream) publishEnvelope(envelope *Envelope) (uint64, error) {
	if envelope == nil {
		return 0, errors.New("envelope required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	seq := s.nextSeq
	envelope.Sequence = seq
	s.logPayloads[seq] = envelope
	s.logOrder = append(s.logOrder, seq)

	for _, state := range s.subscribers {
		state.pending = append(state.pending, seq)
		if !state.active || state.ch == nil {
			continue
		}
		//1.- Never block the publisher; a full buffer hands delivery over to catchUp.
		if !state.lagging {
			select {
			case state.ch <- envelope.Clone():
				state.sent = seq
				continue
			default:
				state.lagging = true
			}
		}
		select {
		case state.wake <- struct{}{}:
		default:
		}
	}
	s.enforceRetentionLocked()
	return seq, nil
}

func (s *Stream) enforceRetentionLocked() {
	//1.- Cap the log at the retention window; lagging subscribers lose the oldest history.
	if len(s.logOrder) <= s.retention {
		return
	}
	pruneBefore := s.logOrder[len(s.logOrder)-s.retention-1]
	idx := sort.Search(len(s.logOrder), func(i int) bool { return s.logOrder[i] > pruneBefore })
	for _, seq := range s.logOrder[:idx] {
		delete(s.logPayloads, seq)
	}
	s.logOrder = append([]uint64(nil), s.logOrder[idx:]...)
	//2.- Pending lists never reference pruned history.
	for _, state := range s.subscribers {
		trim := 0
		for trim < len(state.pending) && state.pending[trim] <= pruneBefore {
			trim++
		}
		state.pending = state.pending[trim:]
	}
}

func (s *Stream) ack(subscriberID string, sequence uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.subscribers[subscriberID]
	if !ok {
		return fmt.Errorf("unknown subscriber %q", subscriberID)
	}
	if len(state.pending) == 0 {
		if sequence <= state.lastAck {
			return nil
		}
		return ErrOutOfOrderAck
	}
	expected := state.pending[0]
	if sequence < expected {
		return nil
	}
	if sequence != expected {
		return ErrOutOfOrderAck
	}
	state.pending = state.pending[1:]
	state.lastAck = sequence
	s.enforceRetentionLocked()
	return nil
}

func (s *Stream) deactivateSubscriber(subscriberID string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.subscribers[subscriberID]
	if !ok || state.done != done {
		return
	}
	//1.- Only the current connection may deactivate; a superseded one already had done closed.
	state.active = false
	state.ch = nil
	state.wake = nil
	state.lagging = false
	if state.done != nil {
		close(state.done)
		state.done = nil
	}
}
