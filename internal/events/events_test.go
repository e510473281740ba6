package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"trailhunt.dev/internal/hunt"
)

func TestSink_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, nil)

	evs := []hunt.Event{
		{Time: 100, Kind: hunt.EventAttemptCreated, HuntID: 1, RoadID: 2, ObjectID: 3, UserID: 4},
		{Time: 101, Kind: hunt.EventRiddleDeleted, HuntID: 1, RoadID: 2, ObjectID: 5},
	}
	for _, ev := range evs {
		sink.Record(ev)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "events", "events-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []hunt.Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev hunt.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line: %v", err)
		}
		got = append(got, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(evs) {
		t.Fatalf("expected %d events, got %d", len(evs), len(got))
	}
	for i := range evs {
		if got[i] != evs[i] {
			t.Fatalf("event %d: %+v != %+v", i, got[i], evs[i])
		}
	}
}
