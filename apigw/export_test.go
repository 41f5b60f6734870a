package apigw

import "time"

// SetClock overrides the router clock. Test use only.
func (r *Router) SetClock(clock func() time.Time) {
	r.clock = clock
}
