// Package supervisor is the single entry point the host calls once per tick
// (OnAdvance) and once per render pass (OnRender).
//
// Each tick runs in a fixed order:
//
//  1. flush deferred log records
//  2. stop if cancellation was signaled
//  3. drive an active host loader to completion, emitting stage changes
//  4. run a pending end-of-day task to completion (raising day_ending)
//  5. while a save is being written, raise saving/save_creating once and
//     suppress everything else except the host's own advance
//  6. otherwise drain console commands, apply watcher additions/removals,
//     update every watcher, sync the lifecycle stage, raise domain events
//     (input, menu/UI, world structure, world content, time, player,
//     extension watchers), reset watchers, then raise update_ticking, call
//     the host's Advance, and raise update_ticked
//  7. count host failures against the advance crash guard
//
// Domain events describe what changed since the previous tick, including
// changes the host's own Advance produced on that tick. World and player
// events are raised only while the stage is Ready; on the tick the stage
// reaches Ready or Unloaded every baseline is re-captured instead, so a
// freshly loaded world does not appear as one large diff.
//
// The render pass is independent and guarded by its own counter.
package supervisor
