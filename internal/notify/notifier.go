package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Permission is the state of the user-facing notification capability.
type Permission string

const (
	PermissionUndetermined Permission = "UNDETERMINED"
	PermissionGranted      Permission = "GRANTED"
	PermissionDenied       Permission = "DENIED"
)

// PermissionCapability abstracts the platform permission prompt. State
// returns the current answer; Request prompts the user and returns the
// resulting state. Implementations cache the answer, so DENIED stays
// sticky without the Notifier tracking prompt history.
type PermissionCapability interface {
	State() Permission
	Request(ctx context.Context) (Permission, error)
}

// Sink displays a notification. Show returns a dismiss function; the
// Notifier calls it after the display interval elapses.
type Sink interface {
	Show(n Notification) (dismiss func())
}

type Config struct {
	// Enabled is the caller-supplied switch, independent of the permission
	// capability.
	Enabled bool
	// DisplayFor is how long a delivered notification stays up before it
	// self-dismisses.
	DisplayFor time.Duration
}

// Notifier delivers notifications through the sink, gated by the enabled
// flag and the permission capability. Delivery is non-blocking.
type Notifier struct {
	perm   PermissionCapability
	sink   Sink
	logger *slog.Logger
	cfg    Config
}

func NewNotifier(perm PermissionCapability, sink Sink, logger *slog.Logger, cfg Config) *Notifier {
	if cfg.DisplayFor <= 0 {
		cfg.DisplayFor = 8 * time.Second
	}

	if sink == nil {
		sink = &LogSink{Logger: logger}
	}

	return &Notifier{
		perm:   perm,
		sink:   sink,
		logger: logger,
		cfg:    cfg,
	}
}

// Deliver shows the notification if both gates allow it. An UNDETERMINED
// permission triggers a single request; delivery proceeds only when the
// answer is GRANTED. Returns whether the notification was shown.
func (n *Notifier) Deliver(ctx context.Context, note Notification) bool {
	if !n.cfg.Enabled {
		return false
	}

	switch n.perm.State() {
	case PermissionGranted:
	case PermissionDenied:
		return false
	case PermissionUndetermined:
		p, err := n.perm.Request(ctx)
		if err != nil {
			n.logger.Warn("notification permission request failed", "error", err)
			return false
		}
		if p != PermissionGranted {
			return false
		}
	default:
		return false
	}

	dismiss := n.sink.Show(note)
	if dismiss != nil {
		time.AfterFunc(n.cfg.DisplayFor, dismiss)
	}

	return true
}

// LogSink writes notifications to the log. It is the default sink and the
// ops-surface stand-in for a desktop notification.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Show(n Notification) func() {
	s.Logger.Info("notification", "title", n.Title, "body", n.Body)
	return nil
}

// StaticPermission is a capability with a fixed or pre-seeded answer.
// Request resolves an UNDETERMINED state to the configured answer exactly
// once and caches it.
type StaticPermission struct {
	mu      sync.Mutex
	state   Permission
	onGrant Permission
}

// NewStaticPermission starts in UNDETERMINED and resolves to answer on the
// first Request.
func NewStaticPermission(answer Permission) *StaticPermission {
	return &StaticPermission{
		state:   PermissionUndetermined,
		onGrant: answer,
	}
}

// NewGrantedPermission is a capability that is already GRANTED.
func NewGrantedPermission() *StaticPermission {
	return &StaticPermission{state: PermissionGranted, onGrant: PermissionGranted}
}

func (p *StaticPermission) State() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *StaticPermission) Request(ctx context.Context) (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PermissionUndetermined {
		p.state = p.onGrant
	}

	return p.state, nil
}
