package util

import (
	"bytes"
	"testing"
)

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("a/"), []byte("a0")},
		{[]byte("ab"), []byte("ac")},
		{[]byte{'a', 0xff}, []byte("b")},
		{[]byte{0xff, 0xff}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := PrefixEnd(tt.prefix)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("PrefixEnd(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestHashStringSeed(t *testing.T) {
	if HashString("key", 1) == HashString("key", 2) {
		t.Errorf("Expected different seeds to produce different hashes")
	}
	if HashString("key", 1) != HashString("key", 1) {
		t.Errorf("Expected hashing to be deterministic")
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.MedianEstimate() != 0 {
		t.Errorf("Expected empty histogram to estimate 0")
	}
	for i := 0; i < 10; i++ {
		h.AddSample(10)
	}
	h.AddSample(2000)

	if h.GetCount() != 11 {
		t.Errorf("Expected 11 samples, got %d", h.GetCount())
	}
	if h.MedianEstimate() != 10 {
		t.Errorf("Expected median 10, got %d", h.MedianEstimate())
	}
	if h.AverageSize() != (10*10+2000)/11 {
		t.Errorf("Unexpected average %d", h.AverageSize())
	}
	_, distribution := h.SizeDistribution()
	if distribution[0] < 90 || distribution[0] > 91 {
		t.Errorf("Expected ~90.9%% in first bucket, got %f", distribution[0])
	}
}

func TestDistributionStats(t *testing.T) {
	even := NewDistributionStats([]int64{10, 10, 10})
	if even.DistributionQuality != 1 {
		t.Errorf("Expected perfect distribution, got %f", even.DistributionQuality)
	}
	skewed := NewDistributionStats([]int64{0, 0, 30})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Expected skewed distribution to score lower")
	}
}
