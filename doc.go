// Package querysync keeps the results of asynchronous reads fresh,
// deduplicated and consistent across any number of consumers that reference
// the same query key.
//
// Components:
//   - Store: key -> (value, writtenAt). store.Memory by default, or
//     store.ProviderStore over a byte provider (Ristretto, BigCache, Redis).
//   - Registry: per-key subscribers (data, invalidate, cancel callbacks) in
//     registration order.
//   - Tracker: at most one in-flight request per key, tagged with a token
//     drawn from a genstore.GenStore.
//   - RaceGuard: a consumer's own "this request still matters" cell.
//   - Publish: writes the store (unless the outcome is Fail), fans the outcome
//     out to every subscriber of the key and clears the in-flight marker
//     (unless the outcome is Mutate).
//   - Query and Pages: typed consumers that gate broadcasts and accumulate
//     pages.
//
// Fetch protocol:
//
//	q, _ := querysync.NewQuery[User](eng, querysync.K("user", 1), fetchUser, querysync.QueryOptions[User]{})
//	// a second consumer of ("user", 1) does not issue another request;
//	// both receive the same broadcast when the first settles.
//	q2, _ := querysync.NewQuery[User](eng, querysync.K("user", 1), fetchUser, querysync.QueryOptions[User]{})
//
// A result is published only if the consumer's guard still names the key and
// its token is still the newest for that key. Failures are always published;
// transport cancellations (ErrCanceled, context.Canceled) never are.
package querysync
