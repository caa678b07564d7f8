package querysync

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The engine calls them on the fetch and publish paths.
type Hooks interface {
	// A fetch was handed to the fetcher.
	FetchIssued(key string)

	// A fetch was suppressed because one is already outstanding for key.
	FetchDeduplicated(key string)

	// A settled result was discarded.
	// reason ∈ {"token_mismatch", "guard_inactive", "canceled", "closed"}
	ResultSuperseded(key, reason string)

	// The fetcher returned a genuine error; a fail outcome follows.
	FetchFailed(key string, err error)

	// An outcome was delivered to this many subscribers.
	Published(key string, kind Outcome, subscribers int)

	// A store operation failed. op ∈ {"get", "set", "evict", "evict_all"}
	StoreError(op, key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchIssued(string)               {}
func (NopHooks) FetchDeduplicated(string)         {}
func (NopHooks) ResultSuperseded(string, string)  {}
func (NopHooks) FetchFailed(string, error)        {}
func (NopHooks) Published(string, Outcome, int)   {}
func (NopHooks) StoreError(string, string, error) {}
