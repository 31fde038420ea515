package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"github.com/ValentinKolb/crund/lib/bench"
	"strings"
	"testing"
	"time"
)

func testResults() *bench.Results {
	res := &bench.Results{
		Loads: []string{"crud"},
		Ops:   map[string][]string{"crud": {"insA", "getA"}},
	}
	run := func(run int, warmup bool, scale int, ins, get time.Duration) {
		res.Samples = append(res.Samples,
			bench.Sample{Load: "crud", Op: "insA", Run: run, Warmup: warmup, CountA: scale, CountB: 1, Duration: ins, HeapDelta: 2048},
			bench.Sample{Load: "crud", Op: "getA", Run: run, Warmup: warmup, CountA: scale, CountB: 1, Duration: get, HeapDelta: -1024},
		)
	}
	run(0, true, 10, time.Hour, time.Hour) // warmup, must not count
	run(1, false, 10, 10*time.Millisecond, 2*time.Millisecond)
	run(2, false, 10, 30*time.Millisecond, 4*time.Millisecond)
	return res
}

func TestSummarize(t *testing.T) {
	rows := Summarize(testResults())
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	ins := rows[0]
	if ins.Op != "insA" || ins.Runs != 2 {
		t.Errorf("Expected insA with 2 runs, got %+v", ins)
	}
	if ins.Mean != 20*time.Millisecond || ins.Min != 10*time.Millisecond || ins.Max != 30*time.Millisecond {
		t.Errorf("Unexpected statistics %+v", ins)
	}
	if ins.HeapDelta != 2048 {
		t.Errorf("Expected mean heap delta 2048, got %d", ins.HeapDelta)
	}
	if rows[1].HeapDelta != -1024 {
		t.Errorf("Expected negative heap delta to be kept, got %d", rows[1].HeapDelta)
	}
}

func TestWriteLog(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLog(&buf, testResults()); err != nil {
		t.Fatalf("WriteLog failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[rtime[ms]]\tnA\tnB\tinsA\tgetA\n",
		"10\t1\t10\t2\n",
		"10\t1\t30\t4\n",
		"[musage[KiB]]\tnA\tnB\tinsA\tgetA\n",
		"10\t1\t2\t-1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3600000") {
		t.Errorf("Expected warmup samples to be excluded")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Summarize(testResults())); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Reading CSV failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d records", len(records))
	}
	if records[1][1] != "insA" || records[1][5] != "20000000" {
		t.Errorf("Unexpected row %v", records[1])
	}
}

func TestWriteJSONAndTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, testResults()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var doc struct {
		Samples []bench.Sample `json:"samples"`
		Summary []Row          `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(doc.Samples) != 6 || len(doc.Summary) != 2 {
		t.Errorf("Expected 6 samples and 2 summary rows, got %d and %d", len(doc.Samples), len(doc.Summary))
	}

	buf.Reset()
	if err := Write(&buf, FormatTable, testResults()); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	if !strings.Contains(buf.String(), "insA") {
		t.Errorf("Expected table to contain insA, got:\n%s", buf.String())
	}

	if err := Write(&buf, "xml", testResults()); err == nil {
		t.Errorf("Expected error for unknown format")
	}
}
