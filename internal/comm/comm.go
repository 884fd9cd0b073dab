// Package comm defines the generic communication channel contract.
//
// A Port is the handle application code holds. A transport (BLE advertising,
// GATT, NFC, ...) binds itself to the port on Init and unbinds on Uninit; the
// application then talks to whichever transport is bound through the port,
// and receives asynchronous events through the port's OnEvent listener.
package comm

import (
	"sync"

	"github.com/srg/bleadv/internal/status"
)

// Event kinds reported to the port listener
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
	EventSent
	EventReceived
	EventTimeout
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventSent:
		return "sent"
	case EventReceived:
		return "received"
	case EventTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// EventHandler receives events from the bound transport. data may be nil.
type EventHandler func(evt Event, data []byte)

// Message is a unit of data exchanged over a channel
type Message struct {
	Data []byte
}

// Channel is implemented by every transport that can be bound to a Port
type Channel interface {
	Init(p *Port) error
	Uninit(p *Port) error
	Send(msg *Message) error
	Read(msg *Message) error
}

// Port is the caller-owned channel handle
type Port struct {
	mu      sync.RWMutex
	channel Channel
	onEvent EventHandler
}

// NewPort returns an unbound port
func NewPort() *Port {
	return &Port{}
}

// Bind installs ch as the transport behind the port. Transports call it from
// their Init.
func (p *Port) Bind(ch Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = ch
}

// Unbind clears the transport and the event listener
func (p *Port) Unbind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = nil
	p.onEvent = nil
}

// Channel returns the bound transport or nil
func (p *Port) Channel() Channel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channel
}

// SetOnEvent installs the event listener, nil removes it
func (p *Port) SetOnEvent(h EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEvent = h
}

// HasListener reports whether an event listener is installed
func (p *Port) HasListener() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onEvent != nil
}

// Dispatch delivers evt to the listener, if any. Returns false when nobody
// was listening.
func (p *Port) Dispatch(evt Event, data []byte) bool {
	p.mu.RLock()
	h := p.onEvent
	p.mu.RUnlock()
	if h == nil {
		return false
	}
	h(evt, data)
	return true
}

// Init initializes ch and binds it to the port
func (p *Port) Init(ch Channel) error {
	if ch == nil {
		return status.New(status.Null, "init")
	}
	return ch.Init(p)
}

// Uninit tears down the bound transport
func (p *Port) Uninit() error {
	ch := p.Channel()
	if ch == nil {
		return nil
	}
	return ch.Uninit(p)
}

// Send forwards msg to the bound transport
func (p *Port) Send(msg *Message) error {
	ch := p.Channel()
	if ch == nil {
		return status.New(status.InvalidState, "send")
	}
	return ch.Send(msg)
}

// Read forwards to the bound transport
func (p *Port) Read(msg *Message) error {
	ch := p.Channel()
	if ch == nil {
		return status.New(status.InvalidState, "read")
	}
	return ch.Read(msg)
}
