// Package group implements the rendezvous between a context that opens a
// sub-flow and the context running it.
//
// # Overview
//
// A sub-flow runs in its own screen group. The opener mints a fresh group
// ID, opens the child with that ID in its URL, and waits for one result:
//
//	opener                                  child
//	  Spawner.Spawn(deeplink)
//	    ↓ NewID() → g
//	    ↓ open <deeplink>?__navgroup__group=g
//	    ↓ subscribe message + pagehide       Current(self, store) → Session{g}
//	    ⋮                                    Session.SetStore / GetStore
//	    ⋮                                    Session.Close(result)
//	    ⋮                ← {"__navgroup__result__g": result}
//	  Pending resolves                       pagehide → store for g evicted
//
// # Settlement
//
// A Pending settles once. Whichever of the matching result message or the
// child's pagehide arrives first wins, and both subscriptions are removed
// before Done is closed. A child that disappears without a result rejects
// the Pending with ErrContextClosed. Messages without the group's result
// key are ignored, so unrelated traffic on the same context is harmless.
//
// # Store lifetime
//
// A child's group store is evicted when the child's own context fires
// pagehide after Close. A Spawner built WithOrphanEviction also evicts the
// store of a child that disappeared without closing.
package group
