package hunt

import (
	"context"

	"trailhunt.dev/internal/geo"
	"trailhunt.dev/internal/protocol"
)

// UserProgress is the polling/submission endpoint. One call may carry a
// location submission, an answer submission, both, or neither (plain poll);
// the response is always a consistent snapshot plus the delta feed since the
// client's last known timestamps.
func (e *Engine) UserProgress(ctx context.Context, req protocol.UserProgressRequest) protocol.UserProgressResponse {
	resp := protocol.UserProgressResponse{
		AttemptTimestamp: req.AttemptTimestamp,
		RoadTimestamp:    req.RoadTimestamp,
		InfoMsgs:         []string{},
	}

	h, err := e.store.HuntByID(ctx, req.HuntID)
	if err != nil {
		resp.Status = e.storeStatus(err, "hunt not found")
		return resp
	}
	road, groupID, derr := e.resolveParticipant(ctx, h, req.UserID)
	if derr != nil {
		resp.Status = derr.Status()
		return resp
	}
	if !road.Validated {
		resp.Status = protocol.Error(protocol.ErrRoadNotValidated, msgRoadNotValidated)
		return resp
	}

	// Delta feed since the client's last poll.
	delta, err := e.store.AttemptsSince(ctx, road.ID, req.AttemptTimestamp, h.GroupMode, groupID, req.UserID)
	if err != nil {
		resp.Status = protocol.Error(protocol.ErrPersistence, "could not load attempts")
		return resp
	}
	newAttemptTS := req.AttemptTimestamp
	riddleResolved := false
	for _, a := range delta {
		if a.TimeCreated > newAttemptTS {
			newAttemptTS = a.TimeCreated
		}
		if a.Type == AttemptLocation && a.Success {
			riddleResolved = true
		}
		resp.InfoMsgs = append(resp.InfoMsgs, feedLine(a, h.GroupMode))
	}
	roadChanged := req.RoadTimestamp != road.TimeModified

	var status protocol.Status
	haveStatus := false
	roadFinished := false

	// Location submission. Skipped entirely when the road changed (stale) or
	// the delta already shows the current riddle resolved by someone else.
	if len(req.Location) > 0 && !roadChanged {
		if riddleResolved {
			status = protocol.Info(protocol.ErrAlreadyResolved, msgAlreadyFound)
			haveStatus = true
		} else if pt, perr := geo.ParsePoint(req.Location); perr != nil {
			status = protocol.Error(protocol.ErrBadGeometry, "location is not a valid GeoJSON point")
			haveStatus = true
		} else {
			out, lerr := e.checkLocation(ctx, h, road, groupID, req.UserID, pt)
			if lerr != nil {
				e.log.Printf("check location hunt=%d road=%d user=%d: %v", h.ID, road.ID, req.UserID, lerr)
				status = protocol.Error(protocol.ErrPersistence, "could not record the attempt")
				haveStatus = true
			} else {
				status = out.status
				haveStatus = true
				roadFinished = out.roadFinished
				if out.attempt != nil {
					if out.attempt.TimeCreated > newAttemptTS {
						newAttemptTS = out.attempt.TimeCreated
					}
					resp.InfoMsgs = append(resp.InfoMsgs, feedLine(*out.attempt, h.GroupMode))
					e.record(Event{Kind: EventAttemptCreated, HuntID: h.ID, RoadID: road.ID, ObjectID: out.attempt.ID, UserID: req.UserID})
					e.push(protocol.FeedMsg{
						Type:             protocol.FeedTypeAttempt,
						RoadID:           road.ID,
						RiddleNumber:     out.attempt.RiddleNumber,
						UserID:           req.UserID,
						Success:          out.attempt.Success,
						AttemptTimestamp: out.attempt.TimeCreated,
					})
				}
			}
		}
	}

	// Question answer and external-completion gates.
	gateChanges := false
	if !roadChanged {
		gate, gerr := e.checkGates(ctx, h, road, groupID, req)
		if gerr != nil {
			e.log.Printf("check gates hunt=%d road=%d user=%d: %v", h.ID, road.ID, req.UserID, gerr)
			status = protocol.Error(protocol.ErrPersistence, "could not update the riddle gates")
			haveStatus = true
		} else {
			gateChanges = gate.changes
			if gate.attempt != nil {
				if gate.attempt.TimeCreated > newAttemptTS {
					newAttemptTS = gate.attempt.TimeCreated
				}
				resp.InfoMsgs = append(resp.InfoMsgs, feedLine(*gate.attempt, h.GroupMode))
			}
			if gate.status != nil {
				status = *gate.status
				haveStatus = true
			}
		}
	}

	// Authoring changes invalidate in-flight play submissions; reported, not
	// silently dropped.
	if roadChanged {
		if req.SelectedAnswerID != 0 {
			status = protocol.Error(protocol.ErrStaleRoad, msgStaleAnswer)
			haveStatus = true
		}
		if len(req.Location) > 0 {
			status = protocol.Error(protocol.ErrStaleRoad, msgStaleLocation)
			haveStatus = true
		}
	}
	if !haveStatus {
		status = protocol.OK("User progress loaded successfully")
	}

	resp.Status = status
	resp.AnyChanges = gateChanges
	resp.AttemptTimestamp = newAttemptTS
	resp.RoadTimestamp = road.TimeModified
	resp.RoadFinished = roadFinished

	if newAttemptTS != req.AttemptTimestamp || roadChanged || req.Initialize || gateChanges {
		if err := e.buildSnapshot(ctx, h, road, groupID, req.UserID, &resp); err != nil {
			e.log.Printf("build snapshot hunt=%d road=%d user=%d: %v", h.ID, road.ID, req.UserID, err)
			resp.Status = protocol.Error(protocol.ErrPersistence, "could not load progress")
		}
	}
	return resp
}

// buildSnapshot fills the riddle feature collection and the last-successful /
// pending riddle blocks. Discovered riddles carry their geometry; the next
// target's clue is visible but its geometry is withheld until found.
func (e *Engine) buildSnapshot(ctx context.Context, h Hunt, road Road, groupID, userID int64, resp *protocol.UserProgressResponse) error {
	riddles, err := e.store.RiddlesByRoad(ctx, road.ID)
	if err != nil {
		return err
	}
	last, err := e.store.LastSuccessfulLocation(ctx, road.ID, h.GroupMode, groupID, userID)
	if err != nil {
		return err
	}

	lastNumber := 0
	gatesOpen := false
	if last != nil {
		lastNumber = last.RiddleNumber
		gatesOpen = !last.GatesSatisfied()
	}

	feats := make([]geo.OutFeature, 0, len(riddles))
	for i, r := range riddles {
		props := map[string]any{
			"roadid":      r.RoadID,
			"number":      r.Number,
			"name":        r.Name,
			"description": r.Description,
		}
		switch {
		case r.Number <= lastNumber:
			props["discovered"] = true
			g, gerr := geo.DecodeGeometry(r.Geometry)
			if gerr != nil {
				e.log.Printf("riddle %d: stored geometry unreadable: %v", r.ID, gerr)
				continue
			}
			feats = append(feats, geo.OutFeature{ID: r.ID, Geometry: g, Properties: props})
		case last == nil && i == 0:
			// The start area is shown before any success.
			props["discovered"] = false
			props["start"] = true
			g, gerr := geo.DecodeGeometry(r.Geometry)
			if gerr != nil {
				e.log.Printf("riddle %d: stored geometry unreadable: %v", r.ID, gerr)
				continue
			}
			feats = append(feats, geo.OutFeature{ID: r.ID, Geometry: g, Properties: props})
		case r.Number == lastNumber+1 && last != nil && !gatesOpen:
			props["discovered"] = false
			feats = append(feats, geo.OutFeature{ID: r.ID, Properties: props})
		}
	}
	fc, err := geo.BuildFeatureCollection(feats)
	if err != nil {
		return err
	}
	resp.Riddles = fc

	if last == nil {
		return nil
	}
	maxNumber := 0
	if len(riddles) > 0 {
		maxNumber = riddles[len(riddles)-1].Number
	}
	if gatesOpen {
		resp.PendingRiddle = e.riddleSummary(ctx, riddles, *last)
		if prev := riddleByNumber(riddles, lastNumber-1); prev != nil {
			resp.LastSuccessfulRiddle = &protocol.RiddleSummary{
				ID:               prev.ID,
				Number:           prev.Number,
				Name:             prev.Name,
				Description:      prev.Description,
				QuestionSolved:   true,
				CompletionSolved: true,
			}
		}
		return nil
	}
	resp.LastSuccessfulRiddle = e.riddleSummary(ctx, riddles, *last)
	if lastNumber == maxNumber {
		resp.RoadFinished = true
	}
	return nil
}

func (e *Engine) riddleSummary(ctx context.Context, riddles []Riddle, last AttemptRecord) *protocol.RiddleSummary {
	r := riddleByID(riddles, last.RiddleID)
	if r == nil {
		return nil
	}
	s := &protocol.RiddleSummary{
		ID:               r.ID,
		Number:           r.Number,
		Name:             r.Name,
		Description:      r.Description,
		QuestionSolved:   last.QuestionSolved,
		CompletionSolved: last.CompletionSolved,
	}
	if !last.QuestionSolved && r.QuestionText != "" {
		s.PendingAttemptID = last.ID
		answers, err := e.store.AnswersByRiddle(ctx, r.ID)
		if err != nil {
			e.log.Printf("answers for riddle %d: %v", r.ID, err)
			return s
		}
		q := &protocol.QuestionInfo{Text: r.QuestionText}
		for _, a := range answers {
			q.Answers = append(q.Answers, protocol.AnswerOption{ID: a.ID, Text: a.Text})
		}
		s.Question = q
	}
	return s
}

func riddleByID(riddles []Riddle, id int64) *Riddle {
	for i := range riddles {
		if riddles[i].ID == id {
			return &riddles[i]
		}
	}
	return nil
}

func riddleByNumber(riddles []Riddle, number int) *Riddle {
	for i := range riddles {
		if riddles[i].Number == number {
			return &riddles[i]
		}
	}
	return nil
}
