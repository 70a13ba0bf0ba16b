// Package metric provides Prometheus metrics for kvmesh.
//
// It exposes counters and gauges for connection churn, command rates,
// expiry activity, and snapshot outcomes, plus a collector that reads
// live store statistics on scrape.
package metric
