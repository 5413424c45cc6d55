// Package cache implements the response cache applied to chat and
// embedding calls.
//
// Entries are keyed by a deterministic fingerprint of the canonical
// request. Expiry, eviction, and capacity are pluggable policies (fixed,
// sliding, adaptive, and time-based TTLs; LRU, LFU, priority, and
// composite eviction; item-count, memory, dynamic, and tiered size
// bounds). Per-model hit, miss, and retrieval-latency metrics are
// tracked on every lookup and can be persisted to SQLite across
// restarts.
package cache
