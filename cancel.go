package shipyard

import "sync/atomic"

// CancelFlag is a cooperative cancellation token shared by every file in a
// deployment batch. It may be set by the caller at any time; adapters check
// it at each suspension point and stop issuing remote calls once it is set.
// Calls already in flight are not aborted.
type CancelFlag struct {
	flag atomic.Bool
}

func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Cancel sets the flag. It cannot be unset.
func (c *CancelFlag) Cancel() {
	c.flag.Store(true)
}

// Canceled reports whether the flag is set. Safe on a nil flag.
func (c *CancelFlag) Canceled() bool {
	return c != nil && c.flag.Load()
}
