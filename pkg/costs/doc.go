// Package costs computes charges and refunds for provider usage.
//
// All money math runs on decimal values. Eight pricing models are
// supported, from plain per-token rates with cached-token discounts
// through whole-video rate tables, context-size tiers, inference steps,
// and audio duration or character billing. Refunds reuse the charge
// arithmetic against a refund usage record, clamping any field that
// exceeds the original and flagging the result partial.
package costs
