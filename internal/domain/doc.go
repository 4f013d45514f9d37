// Package domain defines the core value types of the topomap network map.
//
// This package contains the entities that make up a topology view and the pure
// functions derived from them. It has no storage or transport dependencies.
//
// # Core Types
//
// Node is a device placed on the canvas (router, switch, OLT, ONT, access point,
// repeater or client) with a canvas position, optional geo position, a position
// in the parent hierarchy, informational metadata and runtime metrics.
//
// DevicePort is a named, typed attachment point on a node. The port set of a node
// is a pure function of its device type; connection state is derived from the
// link set every time it is needed and never stored on its own.
//
// Link is a cable between two ports. Its LinkType (fiber, utp, wireless) is
// inferred from the port types at both ends; virtual is only reachable by an
// explicit override.
//
// # Geometry
//
// Viewport maps canvas coordinates to screen coordinates (screen = canvas*zoom + pan)
// and back. PreviewGeometry derives the rubber-band line drawn while a link is
// being created.
//
// # Fragments
//
// Fragment is the import/export and hydration shape: plain slices of nodes and
// links.
package domain
