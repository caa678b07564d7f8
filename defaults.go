package querysync

// coalesce picks the engine default for an unset option: zero means unset.
func coalesce[T comparable](v, def T) T {
	if v != *new(T) {
		return v
	}
	return def
}
