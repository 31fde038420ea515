package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"io"
	"strconv"
	"strings"
	"time"
)

// Format selects a writer
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatLog   Format = "log"
)

// Write writes the results in the given format
func Write(w io.Writer, format Format, res *bench.Results) error {
	switch format {
	case FormatTable:
		return WriteTable(w, Summarize(res))
	case FormatCSV:
		return WriteCSV(w, Summarize(res))
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatLog:
		return WriteLog(w, res)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteTable renders the summary as a human readable table
func WriteTable(w io.Writer, rows []Row) error {
	var table = tablewriter.NewWriter(w)
	table.Header([]string{"Load", "Operation", "nA", "nB", "Runs", "Mean", "Min", "Max", "StdDev", "P95", "Heap"})
	for _, r := range rows {
		if err := table.Append([]string{
			r.Load,
			r.Op,
			humanize.Comma(int64(r.CountA)),
			humanize.Comma(int64(r.CountB)),
			strconv.Itoa(r.Runs),
			roundDuration(r.Mean),
			roundDuration(r.Min),
			roundDuration(r.Max),
			roundDuration(r.StdDev),
			roundDuration(r.P95),
			signedBytes(r.HeapDelta),
		}); err != nil {
			return fmt.Errorf("failed to add row for %s/%s: %w", r.Load, r.Op, err)
		}
	}
	return table.Render()
}

// WriteCSV writes one line per summary row with durations in nanoseconds
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Load", "Operation", "CountA", "CountB", "Runs",
		"MeanNs", "MinNs", "MaxNs", "StdDevNs", "P50Ns", "P95Ns", "P99Ns", "MeanHeapDeltaBytes",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		row := []string{
			r.Load,
			r.Op,
			strconv.Itoa(r.CountA),
			strconv.Itoa(r.CountB),
			strconv.Itoa(r.Runs),
			strconv.FormatInt(int64(r.Mean), 10),
			strconv.FormatInt(int64(r.Min), 10),
			strconv.FormatInt(int64(r.Max), 10),
			strconv.FormatInt(int64(r.StdDev), 10),
			strconv.FormatInt(int64(r.P50), 10),
			strconv.FormatInt(int64(r.P95), 10),
			strconv.FormatInt(int64(r.P99), 10),
			strconv.FormatInt(r.HeapDelta, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s/%s: %w", r.Load, r.Op, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the raw results and the summary as one JSON document
func WriteJSON(w io.Writer, res *bench.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*bench.Results
		Summary []Row `json:"summary"`
	}{res, Summarize(res)})
}

// WriteLog writes the tab separated CRUND log: per load a
// [rtime[ms]] section with the real time of every operation and a [musage[KiB]]
// section with the heap delta, one line per hot run and scale.
func WriteLog(w io.Writer, res *bench.Results) error {
	for _, load := range res.Loads {
		ops := res.Ops[load]
		header := "nA\tnB\t" + strings.Join(ops, "\t")

		var rtime, musage strings.Builder
		var lineT, lineM []string
		pos := 0
		for _, s := range res.Hot() {
			if s.Load != load {
				continue
			}
			if pos == 0 {
				lineT = []string{strconv.Itoa(s.CountA), strconv.Itoa(s.CountB)}
				lineM = []string{strconv.Itoa(s.CountA), strconv.Itoa(s.CountB)}
			}
			lineT = append(lineT, strconv.FormatInt(s.Duration.Milliseconds(), 10))
			lineM = append(lineM, strconv.FormatInt(s.HeapDelta/1024, 10))
			if pos++; pos == len(ops) {
				rtime.WriteString(strings.Join(lineT, "\t") + "\n")
				musage.WriteString(strings.Join(lineM, "\t") + "\n")
				pos = 0
			}
		}

		if _, err := fmt.Fprintf(w, "# %s\n[rtime[ms]]\t%s\n%s\n[musage[KiB]]\t%s\n%s\n",
			load, header, rtime.String(), header, musage.String()); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func roundDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
