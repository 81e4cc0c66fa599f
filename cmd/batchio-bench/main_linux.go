//go:build linux

package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/quarzdb/batchio"
	"github.com/quarzdb/batchio/internal/logging"
	"github.com/quarzdb/batchio/internal/storage"
)

func main() {
	var (
		path      = flag.String("file", "batchio-bench.dat", "Data file to write and read")
		sizeStr   = flag.String("size", "64M", "Preallocated file size (e.g., 64M, 1G)")
		entrySize = flag.Int("entry-size", 4096, "Bytes per entry")
		batchLen  = flag.Int("batch", 256, "Entries per batch")
		batches   = flag.Int("batches", 64, "Number of batches to issue")
		chunk     = flag.Int("chunk", batchio.DefaultChunkEntries, "Max entries per ring")
		verify    = flag.Bool("verify", true, "Read everything back and compare")
		verbose   = flag.Bool("v", false, "Verbose output")
		jsonLogs  = flag.Bool("json", false, "JSON log output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	if *jsonLogs {
		logConfig.Format = "json"
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	size, err := parseSize(*sizeStr)
	if err != nil {
		log.Fatalf("Invalid size '%s': %v", *sizeStr, err)
	}
	need := int64(*batches) * int64(*batchLen) * int64(*entrySize)
	if need > size {
		log.Fatalf("Workload needs %d bytes but file size is %d", need, size)
	}

	container, err := storage.Open(*path, size)
	if err != nil {
		log.Fatalf("Failed to open data file: %v", err)
	}
	defer container.Close()

	metrics := batchio.NewMetrics()

	logging.Info("starting write phase",
		"batches", *batches, "entries", *batchLen, "entry_size", *entrySize)

	start := time.Now()
	for b := 0; b < *batches; b++ {
		base := int64(b) * int64(*batchLen) * int64(*entrySize)
		data := pattern(byte(b), *batchLen**entrySize)
		entries := batchio.SplitWrite(data, *entrySize, base)

		for _, part := range batchio.ChunkWrites(entries, *chunk) {
			if err := batchio.BatchWrite(part, container.File(), batchio.WithMetrics(metrics)); err != nil {
				log.Fatalf("Batch %d failed: %v", b, err)
			}
		}
	}
	writeElapsed := time.Since(start)

	if *verify {
		logging.Info("starting verify phase")
		start = time.Now()
		for b := 0; b < *batches; b++ {
			base := int64(b) * int64(*batchLen) * int64(*entrySize)
			entries := batchio.SplitRead(*batchLen**entrySize, *entrySize, base)

			for _, part := range batchio.ChunkReads(entries, *chunk) {
				if err := batchio.BatchRead(part, container.File(), batchio.WithMetrics(metrics)); err != nil {
					log.Fatalf("Read batch %d failed: %v", b, err)
				}
			}

			want := pattern(byte(b), *batchLen**entrySize)
			var got bytes.Buffer
			for _, e := range entries {
				got.Write(e.Buffer)
			}
			if !bytes.Equal(got.Bytes(), want) {
				log.Fatalf("Verify mismatch in batch %d", b)
			}
		}
		logging.Info("verify passed", "elapsed", time.Since(start).String())
	}

	snap := metrics.Snapshot()
	fmt.Printf("wrote %d bytes in %d batches over %s (%.1f MB/s)\n",
		snap.WriteBytes, snap.WriteBatches, writeElapsed,
		float64(snap.WriteBytes)/1e6/writeElapsed.Seconds())
	fmt.Printf("avg batch latency %s, p99 %s, errors %.0f%%\n",
		time.Duration(snap.AvgLatencyNs), time.Duration(snap.LatencyP99Ns), snap.ErrorRate)
}

// pattern fills a deterministic, batch-tagged payload so verify can detect
// misplaced writes.
func pattern(tag byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = tag ^ byte(i%251)
	}
	return data
}

// parseSize parses sizes like "512K", "64M", "1G".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1 << 30
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	return value * multiplier, nil
}
