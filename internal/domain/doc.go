// Package domain defines the core types shared by the Square → listmonk sync.
//
// Types in this package are pure value objects with no behavior beyond small
// helpers, no HTTP concerns and no imports from other internal/ packages.
// They are the shared language between the reconciler, the listmonk client
// and the sync orchestrator.
package domain
