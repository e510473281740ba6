package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trailhunt.dev/internal/geo"
	"trailhunt.dev/internal/hunt"
	"trailhunt.dev/internal/store"
)

// huntFixture is the YAML shape `hunt-admin seed` consumes. Geometry values
// are inline GeoJSON documents.
type huntFixture struct {
	Name              string        `yaml:"name"`
	GroupMode         bool          `yaml:"group_mode"`
	PlayWithoutMoving bool          `yaml:"play_without_moving"`
	Roads             []roadFixture `yaml:"roads"`
	Users             []string      `yaml:"users"`
	Groups            []struct {
		Name    string  `yaml:"name"`
		Members []int64 `yaml:"members"`
	} `yaml:"groups"`
	Groupings []struct {
		ID     int64   `yaml:"id"`
		Groups []int64 `yaml:"groups"`
	} `yaml:"groupings"`
}

type roadFixture struct {
	Name       string          `yaml:"name"`
	GroupID    int64           `yaml:"group_id"`
	GroupingID int64           `yaml:"grouping_id"`
	Validated  bool            `yaml:"validated"`
	Riddles    []riddleFixture `yaml:"riddles"`
}

type riddleFixture struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Question      string `yaml:"question"`
	ActivityToEnd int64  `yaml:"activity_to_end"`
	Geometry      string `yaml:"geometry"`
	Answers       []struct {
		Text    string `yaml:"text"`
		Correct bool   `yaml:"correct"`
	} `yaml:"answers"`
}

func seedCmd(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dbPath := fs.String("db", "./data/trailhunt.db", "sqlite db path")
	fixturePath := fs.String("fixture", "", "hunt fixture yaml (required)")
	_ = fs.Parse(args)

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "missing -fixture")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read fixture:", err)
		os.Exit(1)
	}
	var fx huntFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		fmt.Fprintln(os.Stderr, "parse fixture:", err)
		os.Exit(1)
	}
	if fx.Name == "" || len(fx.Roads) == 0 {
		fmt.Fprintln(os.Stderr, "fixture needs a name and at least one road")
		os.Exit(2)
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UnixMilli()

	for _, name := range fx.Users {
		id, err := db.CreateUser(ctx, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create user:", err)
			os.Exit(1)
		}
		fmt.Printf("user %d %s\n", id, name)
	}
	for _, g := range fx.Groups {
		id, err := db.CreateGroup(ctx, g.Name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create group:", err)
			os.Exit(1)
		}
		for _, uid := range g.Members {
			if err := db.AddGroupMember(ctx, id, uid); err != nil {
				fmt.Fprintln(os.Stderr, "add member:", err)
				os.Exit(1)
			}
		}
		fmt.Printf("group %d %s\n", id, g.Name)
	}
	for _, gr := range fx.Groupings {
		for _, gid := range gr.Groups {
			if err := db.AddGroupToGrouping(ctx, gr.ID, gid); err != nil {
				fmt.Fprintln(os.Stderr, "add grouping:", err)
				os.Exit(1)
			}
		}
	}

	h := hunt.Hunt{
		Name:              fx.Name,
		GroupMode:         fx.GroupMode,
		PlayWithoutMoving: fx.PlayWithoutMoving,
		TimeCreated:       now,
		TimeModified:      now,
	}
	if err := db.CreateHunt(ctx, &h); err != nil {
		fmt.Fprintln(os.Stderr, "create hunt:", err)
		os.Exit(1)
	}
	fmt.Printf("hunt %d %s\n", h.ID, h.Name)

	for _, rf := range fx.Roads {
		road := hunt.Road{
			HuntID:       h.ID,
			Name:         rf.Name,
			GroupID:      rf.GroupID,
			GroupingID:   rf.GroupingID,
			Validated:    rf.Validated,
			TimeCreated:  now,
			TimeModified: now,
		}
		if err := db.CreateRoad(ctx, &road); err != nil {
			fmt.Fprintln(os.Stderr, "create road:", err)
			os.Exit(1)
		}
		for i, rd := range rf.Riddles {
			g, err := geo.DecodeGeometry([]byte(rd.Geometry))
			if err != nil {
				fmt.Fprintf(os.Stderr, "road %q riddle %d: bad geometry: %v\n", rf.Name, i+1, err)
				os.Exit(1)
			}
			geom, err := geo.EncodeGeometry(g)
			if err != nil {
				fmt.Fprintln(os.Stderr, "encode geometry:", err)
				os.Exit(1)
			}
			riddle := hunt.Riddle{
				RoadID:        road.ID,
				Number:        i + 1,
				Name:          rd.Name,
				Description:   rd.Description,
				QuestionText:  rd.Question,
				ActivityToEnd: rd.ActivityToEnd,
				Geometry:      geom,
				TimeCreated:   now,
				TimeModified:  now,
			}
			if err := db.CreateRiddle(ctx, &riddle); err != nil {
				fmt.Fprintln(os.Stderr, "create riddle:", err)
				os.Exit(1)
			}
			for _, a := range rd.Answers {
				ans := hunt.Answer{RiddleID: riddle.ID, Text: a.Text, Correct: a.Correct}
				if err := db.CreateAnswer(ctx, &ans); err != nil {
					fmt.Fprintln(os.Stderr, "create answer:", err)
					os.Exit(1)
				}
			}
		}
		fmt.Printf("road %d %s (%d riddles)\n", road.ID, road.Name, len(rf.Riddles))
	}

	summary, _ := json.Marshal(map[string]any{"huntid": h.ID, "roads": len(fx.Roads)})
	fmt.Println(string(summary))
}
