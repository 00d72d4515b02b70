// Package host provides the ambient capabilities a sync channel runs on:
// an in-process broadcast bus and a shared key-value store with change
// notifications.
//
// Both are small interfaces so transport selection in pkg/channel stays
// testable with fakes:
//
//   - Broadcaster: topic fanout of structured values within one process.
//   - Store: shared key-value text storage, optionally with change
//     notifications; ReliableWatch reports whether those notifications
//     actually fire across contexts (the basis for the polling fallback).
//
// Backends:
//
//   - membus: in-memory fanout bus (DefaultBus is the process-global one)
//   - file: one file per key in a directory, fsnotify change notifications
//   - sqlite: one row per key, no change notifications (pollers only)
//   - memstore: in-memory store, watch reliability configurable (test fake
//     and single-process store)
package host
