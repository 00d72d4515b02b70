// Package channel mirrors a JSON-serializable value across execution
// contexts on one machine.
//
// A Channel owns one logical key and exactly one transport, picked at
// construction and never re-evaluated:
//
//  1. broadcast — an in-process fanout bus (host.Broadcaster); structured
//     values travel directly, no serialization.
//  2. storage events — a shared store (host.Store) whose change
//     notifications fire reliably across contexts.
//  3. polling — fixed-interval reads of the same store, when its change
//     notifications are unreliable or a watch cannot be established.
//
// A value set on one channel reaches every other channel sharing the key
// (and namespace) on the same transport substrate. Local subscribers of
// the writing channel are notified synchronously inside Set; everyone
// else within the transport's latency bound.
//
// No error ever crosses this package's API: malformed inbound payloads
// are dropped, write failures degrade to local-only delivery, and
// decryption failures fall back to plaintext. The worst symptom of any
// internal failure is a missed cross-context update.
package channel
