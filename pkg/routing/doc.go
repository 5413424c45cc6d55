// Package routing selects a provider deployment for each request.
//
// A Router owns a pool of deployments and a pluggable Strategy. Before
// the strategy ranks candidates, the router filters the pool by
// availability and by the capability the request kind demands. After
// every dispatch the caller reports the outcome, which updates both the
// deployment's live metrics and the strategy's learned state.
package routing
