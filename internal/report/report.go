// Package report computes statistics over raw timing samples and renders
// run reports.
//
// The execution engine deliberately emits unaggregated samples; everything
// here (mean, percentiles, baseline comparison, CSV export) is downstream
// analysis.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/gobench-cli/gobench/internal/record"
)

// Stats summarizes one case's timing samples, in seconds.
type Stats struct {
	Samples int
	Mean    float64
	Min     float64
	Max     float64
	Median  float64
	Std     float64
	P1      float64
	P5      float64
	P95     float64
	P99     float64
}

// ComputeStats calculates statistics from raw samples. Empty input yields
// the zero Stats.
func ComputeStats(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, s := range sorted {
		d := s - mean
		sq += d * d
	}
	std := 0.0
	if len(sorted) > 1 {
		std = math.Sqrt(sq / float64(len(sorted)-1))
	}

	return Stats{
		Samples: len(sorted),
		Mean:    mean,
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Median:  percentile(sorted, 50),
		Std:     std,
		P1:      percentile(sorted, 1),
		P5:      percentile(sorted, 5),
		P95:     percentile(sorted, 95),
		P99:     percentile(sorted, 99),
	}
}

// percentile uses the nearest-rank index into the sorted samples.
func percentile(sorted []float64, p int) float64 {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// WriteCSV exports one row per record with its computed statistics,
// importable into spreadsheets or plotting tools.
func WriteCSV(w io.Writer, records []record.ResultRecord) error {
	cw := csv.NewWriter(w)

	header := []string{
		"case", "function", "args",
		"mean", "min", "max", "median", "std", "p5", "p95", "p1", "p99",
		"repeat", "number", "warmups", "garbage_collection",
		"skipped", "error", "commit", "timestamp",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		st := ComputeStats(rec.Timings)

		args := ""
		if len(rec.Args) > 0 {
			encoded, err := json.Marshal(rec.Args)
			if err != nil {
				return fmt.Errorf("failed to encode args for %s: %w", rec.Label, err)
			}
			args = string(encoded)
		}

		row := []string{
			rec.Label, rec.Function, args,
			fmtFloat(st.Mean), fmtFloat(st.Min), fmtFloat(st.Max),
			fmtFloat(st.Median), fmtFloat(st.Std),
			fmtFloat(st.P5), fmtFloat(st.P95), fmtFloat(st.P1), fmtFloat(st.P99),
			strconv.FormatUint(uint64(rec.Config.Repeat), 10),
			strconv.FormatUint(uint64(rec.Config.Number), 10),
			strconv.FormatUint(uint64(rec.Config.Warmups), 10),
			strconv.FormatBool(rec.Config.GarbageCollection),
			strconv.FormatBool(rec.Skipped),
			rec.Error,
			rec.Meta.Commit,
			rec.Meta.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", rec.Label, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Comparison is the per-case delta between a baseline and a candidate.
type Comparison struct {
	Label    string
	Function string
	Baseline Stats
	Current  Stats

	// MeanDeltaPct is the relative mean change in percent; negative
	// means the current run is faster.
	MeanDeltaPct float64
}

// Faster reports whether the current run improved on the baseline mean.
func (c Comparison) Faster() bool {
	return c.MeanDeltaPct < 0
}

// timed is the minimal shape Compare needs from either live records or
// history entries.
type timed struct {
	label    string
	function string
	timings  []float64
}

// Compare matches cases by label and computes mean deltas. Cases present in
// only one side are omitted: a comparison is only meaningful for labels both
// runs produced.
func Compare(baseline, current []record.ResultRecord) []Comparison {
	return compare(toTimed(baseline), toTimed(current))
}

// CompareTimings matches pre-extracted label→samples maps, used for history
// entries. Labels iterate in the order given by labels.
func CompareTimings(labels []string, baseline, current map[string][]float64, functions map[string]string) []Comparison {
	var comps []Comparison
	for _, label := range labels {
		b, okB := baseline[label]
		c, okC := current[label]
		if !okB || !okC || len(b) == 0 || len(c) == 0 {
			continue
		}
		comps = append(comps, newComparison(label, functions[label], b, c))
	}
	return comps
}

func toTimed(records []record.ResultRecord) []timed {
	out := make([]timed, 0, len(records))
	for _, rec := range records {
		if rec.Skipped || rec.Error != "" {
			continue
		}
		out = append(out, timed{label: rec.Label, function: rec.Function, timings: rec.Timings})
	}
	return out
}

func compare(baseline, current []timed) []Comparison {
	base := make(map[string]timed, len(baseline))
	for _, t := range baseline {
		base[t.label] = t
	}

	var comps []Comparison
	for _, cur := range current {
		b, ok := base[cur.label]
		if !ok || len(b.timings) == 0 || len(cur.timings) == 0 {
			continue
		}
		comps = append(comps, newComparison(cur.label, cur.function, b.timings, cur.timings))
	}
	return comps
}

func newComparison(label, function string, baseline, current []float64) Comparison {
	bs := ComputeStats(baseline)
	cs := ComputeStats(current)

	delta := 0.0
	if bs.Mean != 0 {
		delta = (cs.Mean - bs.Mean) / bs.Mean * 100
	}

	return Comparison{
		Label:        label,
		Function:     function,
		Baseline:     bs,
		Current:      cs,
		MeanDeltaPct: delta,
	}
}
