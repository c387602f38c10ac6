package chat

import (
	errs "PChat/tools/errs"
)

type Handler interface {
	Type() string
	Handle(ctx *Context, f *Frame, c *Client) error
}

// Context carries what handlers need. One value per dispatch keeps
// handlers stateless.
type Context struct {
	S *Server
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, f *Frame, c *Client) error {
	h, ok := d.handlers[f.Type]
	if !ok {
		return errs.ErrNotFound.WrapMsg("no handler", "type", f.Type)
	}
	return h.Handle(ctx, f, c)
}
