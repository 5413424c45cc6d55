// Package strategies provides the routing strategies: latency, cost,
// quality, and language-optimized selection. All strategies learn from
// dispatch outcomes via UpdateMetrics and are safe for concurrent use.
package strategies
