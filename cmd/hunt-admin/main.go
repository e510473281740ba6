package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"trailhunt.dev/internal/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "seed":
			seedCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: hunt-admin <db|seed|events> [flags]")
	os.Exit(2)
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", "./data/trailhunt.db", "sqlite db path")
	huntID := fs.Int64("hunt", 0, "hunt id filter (0: all)")
	limit := fs.Int("limit", 50, "result limit")
	_ = fs.Parse(args)

	q := "hunts"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := db.Dump(q, *huntID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		_ = enc.Encode(row)
	}
}
