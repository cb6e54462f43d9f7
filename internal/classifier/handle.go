package classifier

import "sync/atomic"

type predictorBox struct {
	p Predictor
}

// Handle is the atomically swappable reference to the live Predictor.
// A retrained model is published with Swap; a turn that already grabbed
// the old Predictor keeps using it to completion.
type Handle struct {
	current atomic.Pointer[predictorBox]
}

func NewHandle(p Predictor) *Handle {
	h := &Handle{}
	h.current.Store(&predictorBox{p: p})
	return h
}

func (h *Handle) Current() Predictor {
	return h.current.Load().p
}

func (h *Handle) Swap(p Predictor) {
	h.current.Store(&predictorBox{p: p})
}
