// Package events implements the event dispatch manager: named channels, each
// with an ordered list of subscriber callbacks.
//
// DISPATCH ORDER:
// Subscribers on a channel run in registration order within their tier, and
// the system tier always runs before the extension tier. Dispatch is
// synchronous on the raising goroutine (the tick goroutine in practice).
//
// ISOLATION:
// Every subscriber invocation is wrapped on its own. A returned error or a
// panic is logged with the owning module and never stops later subscribers
// or reaches the caller of Raise.
//
// MUTATION DURING DISPATCH:
// Subscribe/Unsubscribe/SetEnabled are safe from any goroutine at any time,
// including from inside a callback. Raise iterates a snapshot of the
// subscriber list taken when it starts; a subscriber removed or disabled
// mid-dispatch is skipped if it has not run yet, and a subscriber added
// mid-dispatch first runs on the next Raise.
//
// Nested raises of the same channel from inside one of its subscribers are
// permitted and not deduplicated; each proceeds independently.
package events
