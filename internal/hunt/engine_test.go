package hunt_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"trailhunt.dev/internal/hunt"
	"trailhunt.dev/internal/protocol"
	"trailhunt.dev/internal/store"
)

// env is the black-box harness: a real sqlite store under a temp dir plus an
// engine with a controllable clock.
type env struct {
	t      *testing.T
	ctx    context.Context
	db     *store.DB
	engine *hunt.Engine
	clock  time.Time

	hunt hunt.Hunt
	road hunt.Road
}

func newEnv(t *testing.T, groupMode bool) *env {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: time.UnixMilli(1_700_000_000_000),
	}
	e.engine = hunt.NewEngine(db, hunt.Config{LockTTL: 2 * time.Minute}, store.Completions{DB: db}, nil, testLogger(t))
	e.engine.SetClock(func() time.Time { return e.clock })

	now := e.clock.UnixMilli()
	e.hunt = hunt.Hunt{Name: "campus hunt", GroupMode: groupMode, TimeCreated: now, TimeModified: now}
	if err := db.CreateHunt(e.ctx, &e.hunt); err != nil {
		t.Fatalf("create hunt: %v", err)
	}
	e.road = hunt.Road{HuntID: e.hunt.ID, Name: "north road", Validated: true, TimeCreated: now, TimeModified: now}
	if err := db.CreateRoad(e.ctx, &e.road); err != nil {
		t.Fatalf("create road: %v", err)
	}
	return e
}

func testLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t}, "[hunt] ", 0)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// tick advances the clock so consecutive attempts get distinct timestamps.
func (e *env) tick() { e.clock = e.clock.Add(time.Second) }

func square(cx, cy float64) []byte {
	const d = 0.001
	return []byte(fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%f,%f],[%f,%f],[%f,%f],[%f,%f],[%f,%f]]]}`,
		cx-d, cy-d, cx+d, cy-d, cx+d, cy+d, cx-d, cy+d, cx-d, cy-d))
}

func point(x, y float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"Point","coordinates":[%f,%f]}`, x, y))
}

func (e *env) addRiddle(number int, name, question string, activityToEnd int64, cx, cy float64) hunt.Riddle {
	e.t.Helper()
	now := e.clock.UnixMilli()
	r := hunt.Riddle{
		RoadID:        e.road.ID,
		Number:        number,
		Name:          name,
		Description:   "clue for " + name,
		QuestionText:  question,
		ActivityToEnd: activityToEnd,
		Geometry:      square(cx, cy),
		TimeCreated:   now,
		TimeModified:  now,
	}
	if err := e.db.CreateRiddle(e.ctx, &r); err != nil {
		e.t.Fatalf("create riddle: %v", err)
	}
	return r
}

func (e *env) addAnswer(riddleID int64, text string, correct bool) hunt.Answer {
	e.t.Helper()
	a := hunt.Answer{RiddleID: riddleID, Text: text, Correct: correct}
	if err := e.db.CreateAnswer(e.ctx, &a); err != nil {
		e.t.Fatalf("create answer: %v", err)
	}
	return a
}

func (e *env) addUser(name string) int64 {
	e.t.Helper()
	id, err := e.db.CreateUser(e.ctx, name)
	if err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	return id
}

func (e *env) addGroup(name string, members ...int64) int64 {
	e.t.Helper()
	id, err := e.db.CreateGroup(e.ctx, name)
	if err != nil {
		e.t.Fatalf("create group: %v", err)
	}
	for _, uid := range members {
		if err := e.db.AddGroupMember(e.ctx, id, uid); err != nil {
			e.t.Fatalf("add member: %v", err)
		}
	}
	return id
}

func (e *env) bindRoadToGroup(groupID int64) {
	e.t.Helper()
	if err := e.db.BindRoad(e.ctx, e.road.ID, groupID, 0); err != nil {
		e.t.Fatalf("bind road: %v", err)
	}
	e.road.GroupID = groupID
}

func (e *env) progress(req protocol.UserProgressRequest) protocol.UserProgressResponse {
	e.t.Helper()
	e.tick()
	req.HuntID = e.hunt.ID
	return e.engine.UserProgress(e.ctx, req)
}

func mustOKCode(t *testing.T, s protocol.Status) {
	t.Helper()
	if s.Code != protocol.StatusOK {
		t.Fatalf("expected code 0, got %d (%s: %s)", s.Code, s.ErrCode, s.Msg)
	}
}

func mustErrCode(t *testing.T, s protocol.Status, code string) {
	t.Helper()
	if s.ErrCode != code {
		t.Fatalf("expected %s, got %q (code=%d msg=%q)", code, s.ErrCode, s.Code, s.Msg)
	}
}

func TestUserProgress_FirstRiddleFlow(t *testing.T) {
	e := newEnv(t, false)
	r1 := e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	user := e.addUser("ana")

	// Initialize poll: snapshot carries only the start area.
	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	mustOKCode(t, resp.Status)
	if resp.LastSuccessfulRiddle != nil {
		t.Fatalf("no riddle should be solved yet")
	}
	var fc struct {
		Features []struct {
			ID         int64          `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(resp.Riddles, &fc); err != nil {
		t.Fatalf("riddles: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].ID != r1.ID {
		t.Fatalf("expected only the start area, got %+v", fc.Features)
	}

	// Miss.
	resp = e.progress(protocol.UserProgressRequest{
		UserID:           user,
		AttemptTimestamp: resp.AttemptTimestamp,
		RoadTimestamp:    resp.RoadTimestamp,
		Location:         point(0, 0),
	})
	mustOKCode(t, resp.Status)
	if resp.LastSuccessfulRiddle != nil {
		t.Fatalf("miss must not advance progress")
	}
	if len(resp.InfoMsgs) == 0 {
		t.Fatalf("failed attempt should appear in the feed")
	}

	// Hit riddle 1.
	resp = e.progress(protocol.UserProgressRequest{
		UserID:           user,
		AttemptTimestamp: resp.AttemptTimestamp,
		RoadTimestamp:    resp.RoadTimestamp,
		Location:         point(-3.60, 37.18),
	})
	mustOKCode(t, resp.Status)
	if resp.LastSuccessfulRiddle == nil || resp.LastSuccessfulRiddle.ID != r1.ID {
		t.Fatalf("expected riddle 1 solved, got %+v", resp.LastSuccessfulRiddle)
	}
	if resp.RoadFinished {
		t.Fatalf("road is not finished after riddle 1 of 2")
	}
	// Snapshot: riddle 1 with geometry, riddle 2 clue without geometry.
	if err := json.Unmarshal(resp.Riddles, &fc); err != nil {
		t.Fatalf("riddles: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
}

func TestUserProgress_RoadFinished(t *testing.T) {
	e := newEnv(t, false)
	e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	user := e.addUser("ana")

	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustOKCode(t, resp.Status)
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.61, 37.19),
	})
	mustOKCode(t, resp.Status)
	if !resp.RoadFinished {
		t.Fatalf("expected road finished after the last riddle")
	}

	// A further submission reports the road as done without recording noise.
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.61, 37.19),
	})
	if !resp.RoadFinished {
		t.Fatalf("expected road finished flag on replay")
	}
}

func TestUserProgress_QuestionGate(t *testing.T) {
	e := newEnv(t, false)
	r1 := e.addRiddle(1, "fountain", "what year was it built?", 0, -3.60, 37.18)
	r2 := e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	wrong := e.addAnswer(r1.ID, "1920", false)
	right := e.addAnswer(r1.ID, "1890", true)
	user := e.addUser("ana")

	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustOKCode(t, resp.Status)
	if resp.PendingRiddle == nil || resp.PendingRiddle.ID != r1.ID {
		t.Fatalf("expected pending riddle 1, got %+v", resp.PendingRiddle)
	}
	if resp.PendingRiddle.Question == nil || len(resp.PendingRiddle.Question.Answers) != 2 {
		t.Fatalf("pending riddle should carry the question")
	}
	pendingID := resp.PendingRiddle.PendingAttemptID
	if pendingID == 0 {
		t.Fatalf("pending attempt id missing")
	}

	// The gate blocks the next location.
	blocked := e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.61, 37.19),
	})
	mustErrCode(t, blocked.Status, protocol.ErrRiddleLocked)

	// Wrong answer keeps the gate closed.
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: blocked.AttemptTimestamp, RoadTimestamp: blocked.RoadTimestamp,
		SelectedAnswerID: wrong.ID, PendingAttemptID: pendingID,
	})
	if resp.AnyChanges {
		t.Fatalf("wrong answer must not flip the gate")
	}
	if resp.PendingRiddle == nil {
		t.Fatalf("riddle should still be pending after a wrong answer")
	}

	// Correct answer opens it.
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		SelectedAnswerID: right.ID, PendingAttemptID: pendingID,
	})
	mustOKCode(t, resp.Status)
	if !resp.AnyChanges {
		t.Fatalf("correct answer should report changes")
	}
	if resp.LastSuccessfulRiddle == nil || resp.LastSuccessfulRiddle.ID != r1.ID {
		t.Fatalf("riddle 1 should be fully solved, got %+v", resp.LastSuccessfulRiddle)
	}

	// Next riddle is reachable now.
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.61, 37.19),
	})
	mustOKCode(t, resp.Status)
	if resp.LastSuccessfulRiddle == nil || resp.LastSuccessfulRiddle.ID != r2.ID {
		t.Fatalf("expected riddle 2 solved, got %+v", resp.LastSuccessfulRiddle)
	}
}

func TestUserProgress_CompletionGate(t *testing.T) {
	e := newEnv(t, false)
	r1 := e.addRiddle(1, "fountain", "", 42, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	user := e.addUser("ana")

	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustOKCode(t, resp.Status)
	if resp.PendingRiddle == nil || resp.PendingRiddle.CompletionSolved {
		t.Fatalf("completion gate should be open, got %+v", resp.PendingRiddle)
	}

	// Polls keep the gate closed until the activity completes.
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
	})
	if resp.AnyChanges {
		t.Fatalf("gate must stay closed before the activity completes")
	}

	if err := e.db.MarkCompleted(e.ctx, 42, user, e.clock.UnixMilli()); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	resp = e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
	})
	if !resp.AnyChanges {
		t.Fatalf("completion should report changes")
	}
	if resp.LastSuccessfulRiddle == nil || resp.LastSuccessfulRiddle.ID != r1.ID {
		t.Fatalf("riddle 1 should be fully solved, got %+v", resp.LastSuccessfulRiddle)
	}
}

func TestUserProgress_GroupSharing(t *testing.T) {
	e := newEnv(t, true)
	r1 := e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	ana := e.addUser("ana")
	ben := e.addUser("ben")
	g := e.addGroup("team-a", ana, ben)
	e.bindRoadToGroup(g)

	// Ana solves riddle 1.
	resp := e.progress(protocol.UserProgressRequest{UserID: ana, Initialize: true})
	resp = e.progress(protocol.UserProgressRequest{
		UserID: ana, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustOKCode(t, resp.Status)

	// Ben's first poll sees the shared success and Ana's name in the feed.
	benResp := e.progress(protocol.UserProgressRequest{UserID: ben, Initialize: true})
	mustOKCode(t, benResp.Status)
	if benResp.LastSuccessfulRiddle == nil || benResp.LastSuccessfulRiddle.ID != r1.ID {
		t.Fatalf("group success should be shared, got %+v", benResp.LastSuccessfulRiddle)
	}
	found := false
	for _, m := range benResp.InfoMsgs {
		if strings.Contains(m, "ana") {
			found = true
		}
	}
	if !found {
		t.Fatalf("feed should name the member who made the attempt: %v", benResp.InfoMsgs)
	}
}

func TestUserProgress_DuplicateSuccess(t *testing.T) {
	e := newEnv(t, true)
	e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	ana := e.addUser("ana")
	ben := e.addUser("ben")
	g := e.addGroup("team-a", ana, ben)
	e.bindRoadToGroup(g)

	anaResp := e.progress(protocol.UserProgressRequest{UserID: ana, Initialize: true})
	benResp := e.progress(protocol.UserProgressRequest{UserID: ben, Initialize: true})

	anaResp = e.progress(protocol.UserProgressRequest{
		UserID: ana, AttemptTimestamp: anaResp.AttemptTimestamp, RoadTimestamp: anaResp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustOKCode(t, anaResp.Status)

	// Ben polled before Ana's success: his delta shows it, so his submission
	// for the same riddle is acknowledged without a new write.
	before := e.attemptCount()
	dup := e.progress(protocol.UserProgressRequest{
		UserID: ben, AttemptTimestamp: benResp.AttemptTimestamp, RoadTimestamp: benResp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustErrCode(t, dup.Status, protocol.ErrAlreadyResolved)
	if dup.Status.Code != protocol.StatusOK {
		t.Fatalf("duplicate is informational, not an error: %+v", dup.Status)
	}
	if got := e.attemptCount(); got != before {
		t.Fatalf("delta-known duplicate must not write: %d != %d", got, before)
	}

	// Ben up to date, then races a success the delta did not show: the
	// attempt is recorded for the audit trail but progress stays put.
	dup2 := e.progress(protocol.UserProgressRequest{
		UserID: ben, AttemptTimestamp: anaResp.AttemptTimestamp, RoadTimestamp: anaResp.RoadTimestamp,
		Location: point(-3.60, 37.18),
	})
	mustErrCode(t, dup2.Status, protocol.ErrAlreadyResolved)
	if got := e.attemptCount(); got != before+1 {
		t.Fatalf("in-flight duplicate should append an audit row: %d != %d", got, before+1)
	}
	if dup2.LastSuccessfulRiddle == nil || dup2.LastSuccessfulRiddle.Number != 1 {
		t.Fatalf("progress must not advance past riddle 1: %+v", dup2.LastSuccessfulRiddle)
	}
}

func TestUserProgress_ConcurrentDuplicateSuccess(t *testing.T) {
	e := newEnv(t, true)
	r1 := e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	e.addRiddle(2, "tower", "", 0, -3.61, 37.19)
	members := []int64{e.addUser("ana"), e.addUser("ben"), e.addUser("eva"), e.addUser("leo")}
	g := e.addGroup("team-a", members...)
	e.bindRoadToGroup(g)

	// Every member polls, then all of them submit the same spot at once.
	reqs := make([]protocol.UserProgressRequest, len(members))
	for i, uid := range members {
		resp := e.progress(protocol.UserProgressRequest{UserID: uid, Initialize: true})
		mustOKCode(t, resp.Status)
		reqs[i] = protocol.UserProgressRequest{
			HuntID: e.hunt.ID, UserID: uid,
			AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp,
			Location: point(-3.60, 37.18),
		}
	}
	e.tick()

	results := make([]protocol.UserProgressResponse, len(members))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.engine.UserProgress(e.ctx, reqs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, resp := range results {
		switch resp.Status.ErrCode {
		case "":
			mustOKCode(t, resp.Status)
			wins++
		case protocol.ErrAlreadyResolved:
			if resp.Status.Code != protocol.StatusOK {
				t.Fatalf("member %d: duplicate is informational, not an error: %+v", i, resp.Status)
			}
		default:
			t.Fatalf("member %d: unexpected status %+v", i, resp.Status)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one submission should win, got %d", wins)
	}

	// Every recorded row is a success on riddle 1; nobody was evaluated
	// against riddle 2.
	rows, err := e.db.Dump("attempts", e.hunt.ID, 1000)
	if err != nil {
		t.Fatalf("dump attempts: %v", err)
	}
	for _, row := range rows {
		if row["success"].(int64) != 1 || row["riddle_id"].(int64) != r1.ID {
			t.Fatalf("only successes on riddle 1 should be recorded: %+v", row)
		}
	}

	final := e.progress(protocol.UserProgressRequest{UserID: members[0], Initialize: true})
	if final.LastSuccessfulRiddle == nil || final.LastSuccessfulRiddle.Number != 1 {
		t.Fatalf("progress must stop at riddle 1: %+v", final.LastSuccessfulRiddle)
	}
}

func TestUserProgress_StaleRoad(t *testing.T) {
	e := newEnv(t, false)
	e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	user := e.addUser("ana")

	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	before := e.attemptCount()

	stale := e.progress(protocol.UserProgressRequest{
		UserID: user, AttemptTimestamp: resp.AttemptTimestamp, RoadTimestamp: resp.RoadTimestamp - 1,
		Location: point(-3.60, 37.18),
	})
	mustErrCode(t, stale.Status, protocol.ErrStaleRoad)
	if stale.Status.Code != protocol.StatusError {
		t.Fatalf("stale road is an error status")
	}
	if got := e.attemptCount(); got != before {
		t.Fatalf("stale submission must not be evaluated")
	}
	if stale.RoadTimestamp != resp.RoadTimestamp {
		t.Fatalf("response should carry the current road timestamp")
	}
}

func TestUserProgress_Membership(t *testing.T) {
	e := newEnv(t, true)
	e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	loner := e.addUser("loner")

	resp := e.progress(protocol.UserProgressRequest{UserID: loner, Initialize: true})
	mustErrCode(t, resp.Status, protocol.ErrNoGroup)
}

func TestUserProgress_UnvalidatedRoad(t *testing.T) {
	e := newEnv(t, false)
	e.addRiddle(1, "fountain", "", 0, -3.60, 37.18)
	user := e.addUser("ana")
	if err := e.db.SetRoadValidated(e.ctx, e.road.ID, false); err != nil {
		t.Fatalf("unvalidate: %v", err)
	}
	resp := e.progress(protocol.UserProgressRequest{UserID: user, Initialize: true})
	mustErrCode(t, resp.Status, protocol.ErrRoadNotValidated)
}

func (e *env) attemptCount() int {
	e.t.Helper()
	rows, err := e.db.Dump("attempts", e.hunt.ID, 1000)
	if err != nil {
		e.t.Fatalf("dump attempts: %v", err)
	}
	return len(rows)
}
