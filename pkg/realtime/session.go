package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the session lifecycle state.
type State int32

// Session states. The only legal transitions are Connecting→Connected,
// Connected→Closing, Closing→Closed, and Connecting→Closed.
const (
	StateConnecting State = iota
	StateConnected
	StateClosing
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// allowedTransitions is the session state machine.
var allowedTransitions = map[State][]State{
	StateConnecting: {StateConnected, StateClosed},
	StateConnected:  {StateClosing},
	StateClosing:    {StateClosed},
}

// SessionOptions tunes session behavior.
type SessionOptions struct {
	// CloseDeadline bounds the graceful-close handshake. Defaults to
	// 5 seconds.
	CloseDeadline time.Duration

	// EventBuffer is the receive channel capacity. Defaults to 64.
	EventBuffer int

	// Logger receives session events. Defaults to slog.Default.
	Logger *slog.Logger
}

// ValidationFailedError reports a configuration rejected before the
// transport opened.
type ValidationFailedError struct {
	// Result holds the validation errors and warnings.
	Result ValidationResult
}

// Error implements the error interface.
func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("realtime session configuration invalid: %s", strings.Join(e.Result.Errors, "; "))
}

// Session is one realtime conversation over a persistent duplex
// transport. It exclusively owns the transport; sends are serialized
// and received events are delivered in upstream order on Events.
type Session struct {
	translator Translator
	transport  Transport
	cfg        SessionConfig
	opts       SessionOptions
	logger     *slog.Logger

	state  atomic.Int32
	sendMu sync.Mutex

	events    chan Event
	closeOnce sync.Once
	closed    chan struct{}
}

// Connect validates the configuration, opens the transport, sends the
// translator's initialization messages, and starts the receive loop.
// Validation failures return a *ValidationFailedError without opening
// the transport.
func Connect(ctx context.Context, translator Translator, dialer Dialer, cfg SessionConfig, opts SessionOptions) (*Session, error) {
	if result := translator.Validate(cfg); !result.Valid() {
		return nil, &ValidationFailedError{Result: result}
	}

	if opts.CloseDeadline <= 0 {
		opts.CloseDeadline = 5 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Session{
		translator: translator,
		cfg:        cfg,
		opts:       opts,
		logger:     opts.Logger,
		events:     make(chan Event, opts.EventBuffer),
		closed:     make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	transport, err := dialer.Dial(ctx, translator.Target(cfg))
	if err != nil {
		s.transition(StateClosed)
		return nil, fmt.Errorf("realtime connect to %s: %w", translator.Provider(), err)
	}
	s.transport = transport

	inits, err := translator.InitMessages(cfg)
	if err != nil {
		transport.Close()
		s.transition(StateClosed)
		return nil, fmt.Errorf("realtime init for %s: %w", translator.Provider(), err)
	}
	for _, msg := range inits {
		if err := transport.WriteMessage(msg); err != nil {
			transport.Close()
			s.transition(StateClosed)
			return nil, fmt.Errorf("realtime init send to %s: %w", translator.Provider(), err)
		}
	}

	if !s.transition(StateConnected) {
		transport.Close()
		return nil, fmt.Errorf("realtime session closed during connect")
	}
	s.logger.Debug("realtime session connected",
		"provider", translator.Provider(),
		"model", cfg.Model)

	go s.receiveLoop()
	return s, nil
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// transition moves the state machine, returning false when the move is
// not a legal transition.
func (s *Session) transition(to State) bool {
	for {
		from := State(s.state.Load())
		legal := false
		for _, next := range allowedTransitions[from] {
			if next == to {
				legal = true
				break
			}
		}
		if !legal {
			return false
		}
		if s.state.CompareAndSwap(int32(from), int32(to)) {
			return true
		}
	}
}

// Events returns the receive sequence. The channel closes when the
// session reaches Closed.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Send translates and writes one canonical frame. Sends are serialized
// per session and fail once the session is no longer connected.
func (s *Session) Send(f Frame) error {
	if s.State() != StateConnected {
		return fmt.Errorf("realtime send in state %s", s.State())
	}

	data, err := s.translator.EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("realtime encode: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.transport.WriteMessage(data); err != nil {
		return fmt.Errorf("realtime send: %w", err)
	}
	return nil
}

// Close performs a graceful shutdown: Connected→Closing, a bounded
// normal-closure handshake, then Closed. The receive loop and Events
// channel terminate. Close is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.transition(StateClosing)
		err = s.transport.CloseGraceful(time.Now().Add(s.opts.CloseDeadline))
		s.transition(StateClosed)
		close(s.closed)
		s.logger.Debug("realtime session closed", "provider", s.translator.Provider())
	})
	return err
}

// receiveLoop reads wire messages, translates them, and delivers
// events in upstream order. Read failures yield one synthesized error
// event before the session closes; a failure during shutdown is the
// expected close and yields nothing.
func (s *Session) receiveLoop() {
	defer close(s.events)

	for {
		data, err := s.transport.ReadMessage()
		if err != nil {
			if s.State() == StateClosing || s.State() == StateClosed {
				return
			}
			s.deliver(ErrorEvent{
				Code:     "transport_error",
				Message:  err.Error(),
				Severity: "error",
				Terminal: true,
			})
			s.forceClose()
			return
		}

		event, err := s.translator.DecodeEvent(data)
		if err != nil {
			s.deliver(ErrorEvent{
				Code:     "decode_error",
				Message:  err.Error(),
				Severity: "warning",
			})
			continue
		}
		if event == nil {
			continue
		}
		s.deliver(event)
	}
}

// deliver hands an event to the consumer, dropping it only if the
// session has fully closed underneath.
func (s *Session) deliver(event Event) {
	select {
	case s.events <- event:
	case <-s.closed:
	}
}

// forceClose moves the session to Closed after a transport failure.
func (s *Session) forceClose() {
	s.closeOnce.Do(func() {
		s.transition(StateClosing)
		s.transport.Close()
		s.transition(StateClosed)
		close(s.closed)
	})
}
