// Package promobs mirrors observability metrics into Prometheus collectors.
//
// Provider decorates another observability.Provider: spans and logs go to the
// wrapped provider unchanged, while every Counter and Histogram update is
// recorded both by the wrapped provider and by a Prometheus vector held in a
// private registry. The registry can be scraped through Handler or dumped in
// the text exposition format with WriteToTextfile.
//
//	base := slogobs.New()
//	metrics := promobs.New(base)
//	c, _ := client.New(provider, client.WithObserver(metrics))
//	...
//	_ = metrics.WriteToTextfile("undercover.prom")
//
// Metric names have dots replaced by underscores
// ("undercover.client.request.count" becomes
// "undercover_client_request_count"). The label set of a metric is fixed by
// the attribute keys of its first update; later updates missing a label
// report it as "" and extra attributes are dropped.
package promobs
