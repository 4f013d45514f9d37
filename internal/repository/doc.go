// Package repository defines the persistence interface for topomap.
//
// The topology store is authoritative at runtime; a Repository only keeps a
// durable copy of it. The service writes every applied change through to the
// repository and hydrates the store from LoadTopology on startup.
//
// # SQLite Implementation
//
// The sqlite subpackage stores nodes and links in two tables. Links reference
// both endpoint nodes with ON DELETE CASCADE, so deleting a node also removes
// its links. A node's parent reference is cleared when the parent is deleted.
// Nested values (metadata, metrics, port overrides, link style) are stored as
// JSON columns.
package repository
