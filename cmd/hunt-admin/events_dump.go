package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// eventsCmd decompresses the rotated event logs and prints the raw JSONL.
func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 100, "max lines (0: all)")
	_ = fs.Parse(args)

	pattern := filepath.Join(*dataDir, "events", "events-*.jsonl.zst")
	files, err := filepath.Glob(pattern)
	if err != nil || len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no event logs under", filepath.Dir(pattern))
		os.Exit(2)
	}
	sort.Strings(files)

	printed := 0
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open:", err)
			os.Exit(1)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			fmt.Fprintln(os.Stderr, "zstd:", err)
			os.Exit(1)
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			fmt.Println(sc.Text())
			printed++
			if *limit > 0 && printed >= *limit {
				dec.Close()
				_ = f.Close()
				return
			}
		}
		dec.Close()
		_ = f.Close()
		if err := sc.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}
