// Package util holds helpers shared by the db engines.
//
//   - functions: seeded FNV hashing, random seeds and prefix ranges for scans
//   - statistics: shard balance and value size statistics for DatabaseInfo,
//     computed with rcrowley/go-metrics samples
package util
