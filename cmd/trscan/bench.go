package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
)

// benchSample is repeated to build benchmark inputs. It mixes ASCII,
// Turkish letters, other scripts and separators.
const benchSample = "Çağrı İstanbul'da şöyle dedi: \"Güzel günler göreceğiz, ıhlamur ağacının altında!\" Ωmega ✓ 日本 "

// benchSummary aggregates the timings of a benchmark run.
type benchSummary struct {
	Runs      int
	InputSize int
	MeanMs    float64
	StdDevMs  float64
	MedianMs  float64
	P95Ms     float64
	MeanMBps  float64
	Stats     trscan.Stats
}

func benchCommand(cfg *config.Config) *cli.Command {
	var runs, size int
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure GPU time and throughput over repeated dispatches",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "runs", Value: 20, Usage: "Number of dispatches", Destination: &runs},
			&cli.IntFlag{Name: "size", Value: 1 << 20, Usage: "Input size in bytes", Destination: &size},
		},
		Action: func(c *cli.Context) error {
			if runs <= 0 {
				return fmt.Errorf("runs must be positive, got %d", runs)
			}
			proc, err := newProcessor(cfg)
			if err != nil {
				return err
			}
			defer proc.Close()

			input := benchInput(size)
			results := make([]*trscan.Result, 0, runs)
			for range runs {
				res, err := proc.ProcessBytes(c.Context, input)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			writeBench(c.App.Writer, summarize(results))
			return nil
		},
	}
}

// benchInput repeats benchSample up to size bytes, cut at a rune boundary.
func benchInput(size int) []byte {
	if size <= 0 {
		return nil
	}
	s := strings.Repeat(benchSample, size/len(benchSample)+1)
	cut := size
	for cut > 0 && cut < len(s) && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return []byte(s[:cut])
}

func summarize(results []*trscan.Result) benchSummary {
	if len(results) == 0 {
		return benchSummary{}
	}
	times := make([]float64, len(results))
	rates := make([]float64, len(results))
	for i, r := range results {
		times[i] = r.ProcessingTime
		rates[i] = r.Throughput
	}
	mean, std := stat.MeanStdDev(times, nil)

	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	return benchSummary{
		Runs:      len(results),
		InputSize: results[0].InputSize,
		MeanMs:    mean,
		StdDevMs:  std,
		MedianMs:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95Ms:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
		MeanMBps:  stat.Mean(rates, nil),
		Stats:     results[len(results)-1].Stats,
	}
}

func writeBench(w io.Writer, s benchSummary) {
	fmt.Fprintf(w, "runs=%d size=%d bytes\n", s.Runs, s.InputSize)
	fmt.Fprintf(w, "gpu time: mean %.3f ms, stddev %.3f ms, median %.3f ms, p95 %.3f ms\n",
		s.MeanMs, s.StdDevMs, s.MedianMs, s.P95Ms)
	fmt.Fprintf(w, "throughput: mean %.2f MB/s\n", s.MeanMBps)
	fmt.Fprintf(w, "counts: ascii=%d turkish=%d other=%d invalid=%d boundary=%d\n",
		s.Stats.ASCIICount, s.Stats.TurkishCharCount, s.Stats.OtherUTF8Count,
		s.Stats.InvalidCount, s.Stats.BoundaryCount)
}
