// Package report turns driver results into summaries and writes them.
//
// Summarize computes per load, operation and scale the run count, mean, min, max,
// standard deviation and percentiles of the hot runs using rcrowley/go-metrics
// histograms. The writers render the summary as a table (tablewriter) or as CSV, the
// raw samples plus summary as JSON, or the raw hot samples in the tab separated
// log format of MySQL Cluster's CRUND driver.
package report
