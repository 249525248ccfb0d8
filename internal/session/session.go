package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/watchroom/server/internal/broadcast"
	"github.com/watchroom/server/internal/service/room"
)

type State int

const (
	StateJoining State = iota
	StateActive
	// StateClosed: the host destroyed the room.
	StateClosed
	// StateRemoved: this member was kicked by the host.
	StateRemoved
	// StateLeft: this member left on its own.
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateRemoved:
		return "removed"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is absorbing: no further commands are
// issued and all subscriptions are released once it is entered.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateRemoved || s == StateLeft
}

// Player is the local playback surface the session corrects. Implemented by
// whatever renders the video on the client.
type Player interface {
	Position() float64
	IsPlaying() bool
	SeekTo(position float64)
	Play()
	Pause()
}

type Config struct {
	RoomID   string
	MemberID string
	IsHost   bool

	Player      Player
	Broadcaster *broadcast.Broadcaster

	// Announce is the fire-and-forget liveness announcement, invoked every
	// AnnounceInterval while the session is active. Errors are logged, never
	// surfaced: a missed announcement just ages the member out of the online
	// view until the next one lands.
	Announce         func(context.Context) error
	AnnounceInterval time.Duration

	DriftThreshold float64
	// LastUpdatedAt seeds the duplicate/reorder guard from the join snapshot.
	LastUpdatedAt int64

	Logger *slog.Logger
}

// Session is the per-client side of the synchronization engine: it consumes
// the room's event stream, reconciles the local player against every fresher
// authoritative playback state, keeps the member view current and drives the
// joining → active → terminal lifecycle.
type Session struct {
	roomID   string
	memberID string
	isHost   bool

	player         Player
	broadcaster    *broadcast.Broadcaster
	announce       func(context.Context) error
	announceEvery  time.Duration
	driftThreshold float64
	logger         *slog.Logger

	mu            sync.RWMutex
	state         State
	members       []room.Member
	lastUpdatedAt int64

	sub        *broadcast.Subscription
	stop       chan struct{}
	finishOnce sync.Once
}

func New(cfg *Config) *Session {
	driftThreshold := cfg.DriftThreshold
	if driftThreshold == 0 {
		driftThreshold = DefaultDriftThreshold
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		roomID:         cfg.RoomID,
		memberID:       cfg.MemberID,
		isHost:         cfg.IsHost,
		player:         cfg.Player,
		broadcaster:    cfg.Broadcaster,
		announce:       cfg.Announce,
		announceEvery:  cfg.AnnounceInterval,
		driftThreshold: driftThreshold,
		logger:         logger,
		state:          StateJoining,
		lastUpdatedAt:  cfg.LastUpdatedAt,
		stop:           make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Session) Members() []room.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]room.Member, len(s.members))
	copy(members, s.members)

	return members
}

// LastUpdatedAt returns the version of the last applied playback state.
func (s *Session) LastUpdatedAt() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastUpdatedAt
}

// Run subscribes to the room's event stream and processes events until a
// terminal state is reached or ctx is cancelled. It returns the state the
// session ended in. A ctx cancellation is an ordinary disconnect: it releases
// the subscription but does not move the session to a terminal state, so a
// reconnect can resume it.
func (s *Session) Run(ctx context.Context) State {
	s.sub = s.broadcaster.Subscribe(s.roomID)

	s.mu.Lock()
	if s.state == StateJoining {
		s.state = StateActive
	}
	s.mu.Unlock()

	if s.announce != nil && s.announceEvery > 0 {
		go s.announceLoop(ctx)
	}

	defer s.sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return s.State()
		case <-s.stop:
			return s.State()
		case event, ok := <-s.sub.C():
			if !ok {
				return s.State()
			}

			if s.handle(ctx, event) {
				return s.State()
			}
		}
	}
}

// Leave moves the session to the voluntary terminal state. The caller is
// expected to have told the server separately.
func (s *Session) Leave() {
	s.terminate(StateLeft)
}

// handle processes one event, returning true when the session reached a
// terminal state.
func (s *Session) handle(ctx context.Context, event broadcast.Event) bool {
	if s.State() != StateActive {
		return true
	}

	switch event.Type {
	case broadcast.EventPlaybackChanged:
		playback, ok := event.Payload.(room.PlaybackState)
		if !ok {
			s.logger.WarnContext(ctx, "unexpected playback payload", "payload", event.Payload)
			return false
		}
		s.applyPlayback(ctx, playback)

	case broadcast.EventMembershipChanged:
		payload, ok := event.Payload.(room.MembershipChangedPayload)
		if !ok {
			s.logger.WarnContext(ctx, "unexpected membership payload", "payload", event.Payload)
			return false
		}

		if payload.KickedMemberID == s.memberID {
			s.terminate(StateRemoved)
			return true
		}

		s.mu.Lock()
		s.members = payload.Members
		s.mu.Unlock()

	case broadcast.EventRoomDestroyed:
		s.terminate(StateClosed)
		return true
	}

	return false
}

// applyPlayback runs one reconciliation pass. States that are not strictly
// newer than the last applied one are discarded, which makes re-delivery and
// reordering harmless.
func (s *Session) applyPlayback(ctx context.Context, playback room.PlaybackState) {
	s.mu.Lock()
	if playback.UpdatedAt <= s.lastUpdatedAt {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding stale playback state",
			"updated_at", playback.UpdatedAt,
			"last_applied", s.lastUpdatedAt,
		)
		return
	}
	s.lastUpdatedAt = playback.UpdatedAt
	s.mu.Unlock()

	// the host's player is the source of the state, never corrected by it
	if s.isHost {
		return
	}

	for _, action := range Reconcile(s.player.Position(), s.player.IsPlaying(), playback, s.driftThreshold) {
		switch action.Kind {
		case ActionSeekTo:
			s.player.SeekTo(action.Position)
		case ActionResume:
			s.player.Play()
		case ActionPause:
			s.player.Pause()
		}
	}
}

func (s *Session) terminate(to State) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.state = to
		s.mu.Unlock()

		close(s.stop)
		if s.sub != nil {
			s.sub.Cancel()
		}
	})
}

func (s *Session) announceLoop(ctx context.Context) {
	ticker := time.NewTicker(s.announceEvery)
	defer ticker.Stop()

	// announce immediately so the member shows up online without waiting a
	// full interval
	if err := s.announce(ctx); err != nil {
		s.logger.DebugContext(ctx, "presence announce failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.announce(ctx); err != nil {
				s.logger.DebugContext(ctx, "presence announce failed", "error", err)
			}
		}
	}
}
