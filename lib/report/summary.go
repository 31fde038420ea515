package report

import (
	"github.com/ValentinKolb/crund/lib/bench"
	gometrics "github.com/rcrowley/go-metrics"
	"time"
)

// sampleSize is the reservoir size of the histograms, larger than any sane run count
const sampleSize = 1028

// Row is the summary of all hot runs of one operation at one scale
type Row struct {
	Load      string        `json:"load"`
	Op        string        `json:"op"`
	CountA    int           `json:"count_a"`
	CountB    int           `json:"count_b"`
	Runs      int           `json:"runs"`
	Mean      time.Duration `json:"mean_ns"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
	StdDev    time.Duration `json:"stddev_ns"`
	P50       time.Duration `json:"p50_ns"`
	P95       time.Duration `json:"p95_ns"`
	P99       time.Duration `json:"p99_ns"`
	HeapDelta int64         `json:"mean_heap_delta_bytes"`
}

type rowKey struct {
	load, op       string
	countA, countB int
}

type rowStats struct {
	duration gometrics.Histogram
	heap     gometrics.Histogram
}

// Summarize groups the hot samples by load, operation and scale.
// Rows are ordered by first execution, so by load, then scale, then operation.
func Summarize(res *bench.Results) []Row {
	var keys []rowKey
	stats := make(map[rowKey]*rowStats)

	for _, s := range res.Hot() {
		k := rowKey{load: s.Load, op: s.Op, countA: s.CountA, countB: s.CountB}
		st, ok := stats[k]
		if !ok {
			st = &rowStats{
				duration: gometrics.NewHistogram(gometrics.NewUniformSample(sampleSize)),
				heap:     gometrics.NewHistogram(gometrics.NewUniformSample(sampleSize)),
			}
			stats[k] = st
			keys = append(keys, k)
		}
		st.duration.Update(int64(s.Duration))
		st.heap.Update(s.HeapDelta)
	}

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		d := stats[k].duration.Snapshot()
		ps := d.Percentiles([]float64{0.5, 0.95, 0.99})
		rows = append(rows, Row{
			Load:      k.load,
			Op:        k.op,
			CountA:    k.countA,
			CountB:    k.countB,
			Runs:      int(d.Count()),
			Mean:      time.Duration(d.Mean()),
			Min:       time.Duration(d.Min()),
			Max:       time.Duration(d.Max()),
			StdDev:    time.Duration(d.StdDev()),
			P50:       time.Duration(ps[0]),
			P95:       time.Duration(ps[1]),
			P99:       time.Duration(ps[2]),
			HeapDelta: int64(stats[k].heap.Snapshot().Mean()),
		})
	}
	return rows
}
