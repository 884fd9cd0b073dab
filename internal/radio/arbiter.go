package radio

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/status"
)

// Kind is the purpose a consumer claims the radio for
type Kind int

const (
	KindNone Kind = iota
	KindAdvertisement
	KindGATT
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAdvertisement:
		return "advertisement"
	case KindGATT:
		return "gatt"
	case KindMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Activity marks the edges of a radio event
type Activity int

const (
	ActivityBefore Activity = iota
	ActivityAfter
)

func (a Activity) String() string {
	if a == ActivityBefore {
		return "before"
	}
	return "after"
}

// ActivityHandler observes radio activity edges
type ActivityHandler func(Activity)

// Arbiter hands the shared radio to one consumer at a time and fans radio
// activity out to the registered handler.
type Arbiter struct {
	mu       sync.Mutex
	owner    Kind
	activity ActivityHandler
	logger   *logrus.Logger
}

// NewArbiter returns an arbiter with the radio unclaimed
func NewArbiter(logger *logrus.Logger) *Arbiter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Arbiter{logger: logger}
}

// Init claims the radio for kind. Fails with InvalidState when the radio is
// already claimed, including by the same kind.
func (a *Arbiter) Init(kind Kind) error {
	if kind == KindNone {
		return status.New(status.InvalidParam, "radio_init")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owner != KindNone {
		a.logger.WithFields(logrus.Fields{
			"owner":     a.owner,
			"requested": kind,
		}).Debug("Radio already claimed")
		return status.New(status.InvalidState, "radio_init")
	}

	a.owner = kind
	a.logger.WithField("kind", kind).Debug("Radio claimed")
	return nil
}

// Uninit releases the radio. Fails with InvalidState when kind does not own
// it; the radio stays with its owner in that case.
func (a *Arbiter) Uninit(kind Kind) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owner == KindNone {
		return nil
	}
	if a.owner != kind {
		a.logger.WithFields(logrus.Fields{
			"owner":     a.owner,
			"requested": kind,
		}).Warn("Radio release by non-owner refused")
		return status.New(status.InvalidState, "radio_uninit")
	}

	a.owner = KindNone
	a.activity = nil
	a.logger.WithField("kind", kind).Debug("Radio released")
	return nil
}

// Owner returns the consumer currently holding the radio
func (a *Arbiter) Owner() Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}

// SetActivityHandler installs h as the activity observer, nil removes it
func (a *Arbiter) SetActivityHandler(h ActivityHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activity = h
}

// Notify is called by the stack around every radio event
func (a *Arbiter) Notify(evt Activity) {
	a.mu.Lock()
	h := a.activity
	a.mu.Unlock()
	if h != nil {
		h(evt)
	}
}
