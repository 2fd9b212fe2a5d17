package broker

import (
	"MediChat/service/chatsync"
)

// HandlerFunc handles one inbound frame, already parsed into a generic
// map so payloads can be decoded weakly typed.
type HandlerFunc func(c *client, frame map[string]any) error

// Dispatcher maps frame types to handlers.
type Dispatcher struct {
	handlers map[chatsync.FrameType]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[chatsync.FrameType]HandlerFunc)}
}

func (d *Dispatcher) Register(t chatsync.FrameType, h HandlerFunc) {
	d.handlers[t] = h
}

func (d *Dispatcher) Get(t chatsync.FrameType) HandlerFunc {
	return d.handlers[t]
}
