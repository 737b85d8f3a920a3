package slack

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// URLProvider returns a fresh websocket URL for each (re)connect attempt.
// RTM URLs are single use, so the stream cannot cache one.
type URLProvider func(ctx context.Context) (string, error)

type EventCallback func(event *Event)

type StateCallback func(state StreamState)

type eventCallbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Stream maintains the RTM websocket connection: it dials, fans incoming
// events out to registered callbacks, and reconnects with a bounded number of
// attempts when the connection drops.
type Stream struct {
	urlProvider URLProvider
	state       StreamState
	stateMu     sync.RWMutex

	// connMu guards conn and reconnectAttempts, which the connect path,
	// the listener goroutine and Disconnect all touch.
	connMu            sync.Mutex
	conn              *websocket.Conn
	reconnectAttempts int

	eventCallbacks       []eventCallbackEntry
	stateCallbacks       []stateCallbackEntry
	nextCallbackID       int
	callbacksMu          sync.RWMutex
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	logger               *zap.Logger
	stopCh               chan struct{}
	stopOnce             sync.Once
	listenerWg           sync.WaitGroup
}

func NewStream(urlProvider URLProvider, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *Stream {
	return &Stream{
		urlProvider:          urlProvider,
		state:                StreamStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		logger:               logger,
		stopCh:               make(chan struct{}),
		nextCallbackID:       1,
	}
}

func (s *Stream) Connect(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state == StreamStateConnected || s.state == StreamStateConnecting {
		s.stateMu.Unlock()
		s.logger.Warn("RTM stream already connected or connecting")
		return nil
	}
	s.stateMu.Unlock()

	s.setState(StreamStateConnecting)

	wsURL, err := s.urlProvider(ctx)
	if err != nil {
		s.setState(StreamStateFailed)
		s.scheduleReconnect(ctx)
		return err
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		s.logger.Error("Failed to connect RTM websocket", zap.Error(err))
		s.setState(StreamStateFailed)
		s.scheduleReconnect(ctx)
		return err
	}

	s.connMu.Lock()
	s.conn = conn
	s.reconnectAttempts = 0
	s.connMu.Unlock()
	s.setState(StreamStateConnected)

	s.logger.Info("RTM websocket connected")

	s.listenerWg.Add(1)
	go s.listen(ctx, conn)

	return nil
}

func (s *Stream) listen(ctx context.Context, conn *websocket.Conn) {
	defer s.listenerWg.Done()
	defer s.logger.Info("RTM listener stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopCh:
					return
				default:
				}
				s.logger.Error("RTM read error", zap.Error(err))
				s.setState(StreamStateDisconnected)
				s.scheduleReconnect(ctx)
				return
			}

			s.handleEvent(data)
		}
	}
}

func (s *Stream) handleEvent(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		s.logger.Error("Failed to parse RTM event",
			zap.Error(err),
			zap.String("data", preview),
		)
		return
	}

	if event.Type == "" {
		return
	}

	s.callbacksMu.RLock()
	callbacks := make([]eventCallbackEntry, len(s.eventCallbacks))
	copy(callbacks, s.eventCallbacks)
	s.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(&event)
	}
}

func (s *Stream) scheduleReconnect(ctx context.Context) {
	s.connMu.Lock()
	s.reconnectAttempts++
	attempt := s.reconnectAttempts
	s.connMu.Unlock()

	if attempt > s.maxReconnectAttempts {
		s.logger.Error("Max RTM reconnect attempts reached",
			zap.Int("attempts", attempt),
		)
		s.setState(StreamStateFailed)
		return
	}

	s.setState(StreamStateReconnecting)

	s.logger.Info("Scheduling RTM reconnect",
		zap.Int("attempt", attempt),
		zap.Int("max", s.maxReconnectAttempts),
		zap.Duration("delay", s.reconnectDelay),
	)

	go func() {
		select {
		case <-time.After(s.reconnectDelay):
			if err := s.Connect(ctx); err != nil {
				s.logger.Error("RTM reconnect failed", zap.Error(err))
			}
		case <-ctx.Done():
		case <-s.stopCh:
		}
	}()
}

// OnEvent registers an event callback and returns its unsubscribe func.
func (s *Stream) OnEvent(callback EventCallback) func() {
	s.callbacksMu.Lock()
	id := s.nextCallbackID
	s.nextCallbackID++
	s.eventCallbacks = append(s.eventCallbacks, eventCallbackEntry{id: id, callback: callback})
	s.callbacksMu.Unlock()

	return func() {
		s.callbacksMu.Lock()
		defer s.callbacksMu.Unlock()
		for i, entry := range s.eventCallbacks {
			if entry.id == id {
				s.eventCallbacks = append(s.eventCallbacks[:i], s.eventCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (s *Stream) OnStateChange(callback StateCallback) func() {
	s.callbacksMu.Lock()
	id := s.nextCallbackID
	s.nextCallbackID++
	s.stateCallbacks = append(s.stateCallbacks, stateCallbackEntry{id: id, callback: callback})
	s.callbacksMu.Unlock()

	return func() {
		s.callbacksMu.Lock()
		defer s.callbacksMu.Unlock()
		for i, entry := range s.stateCallbacks {
			if entry.id == id {
				s.stateCallbacks = append(s.stateCallbacks[:i], s.stateCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (s *Stream) setState(newState StreamState) {
	s.stateMu.Lock()
	oldState := s.state
	s.state = newState
	s.stateMu.Unlock()

	if oldState == newState {
		return
	}

	s.logger.Info("RTM state changed",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
	)

	s.callbacksMu.RLock()
	callbacks := make([]stateCallbackEntry, len(s.stateCallbacks))
	copy(callbacks, s.stateCallbacks)
	s.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(newState)
	}
}

func (s *Stream) State() StreamState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Stream) IsConnected() bool {
	return s.State() == StreamStateConnected
}

func (s *Stream) Disconnect() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Error("Failed to close RTM websocket", zap.Error(err))
			return err
		}
	}

	s.setState(StreamStateDisconnected)

	done := make(chan struct{})
	go func() {
		s.listenerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("RTM listener stopped cleanly")
	case <-time.After(5 * time.Second):
		s.logger.Warn("Timeout waiting for RTM listener to stop")
	}

	return nil
}
