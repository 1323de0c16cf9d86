// Package routing selects venues for outbound orders over the execution
// engine and market-data handler: best price, lowest latency, best fill
// rate, an even split, or a weighted smart score.
package routing
