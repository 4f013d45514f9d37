// Package service coordinates the topology store with storage, metrics and
// real-time clients.
//
// # TopologyService
//
// TopologyService wraps a topology.Store. Commands are applied to the store
// first; the service subscribes to the store's change stream and writes each
// change through to the repository, updates the size gauges and publishes an
// Event. A failed write is logged and counted but does not undo the command.
//
// Bulk operations (Import, Reload) validate the incoming topology on a staged
// store and replace storage before swapping the live store, so a failure at
// either step leaves both untouched.
//
// # Event System
//
// EventBus fans events out to subscriber channels. Publishing never blocks;
// a full subscriber channel drops the event. The hub package turns the bus
// into Server-Sent Events and WebSocket streams.
package service
