// Package topology implements the topology graph store.
//
// Store exclusively owns the nodes and links of one topology view. Every
// mutation is a command method that runs under a single lock, so readers of
// Snapshot never observe a half-applied change and mutations apply in the order
// they are issued.
//
// # Link drawing
//
// Links are created through a two-step port selection:
//
//	idle -> source-selected -> (target-hover) -> idle
//
// BeginLink picks the source port, SelectTargetPort commits the link and
// CancelLink abandons it from any state. A rejected selection leaves the state
// unchanged and reports why through a *SelectionError.
//
// # Change notification
//
// Subscribers registered with Subscribe receive every Change in mutation order.
// They run after the state lock is released and may read the store, but must
// not mutate it.
package topology
