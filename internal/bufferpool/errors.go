package bufferpool

// exhaustedError signals that no free slot was available within policy.
type exhaustedError struct{ network string }

func (e exhaustedError) Error() string {
	return "no free buffer slot for network " + e.network
}

// IsExhausted reports whether err indicates slot exhaustion, so callers can
// map it to a resource-exhaustion result without invoking the engine.
func IsExhausted(err error) bool {
	_, ok := err.(exhaustedError)
	return ok
}
