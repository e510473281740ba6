package hunt

import (
	"context"

	"trailhunt.dev/internal/geo"
	"trailhunt.dev/internal/protocol"
)

// FetchHunt returns the authoring snapshot: every riddle of every road, with
// full geometry, plus the road list. There is no per-participant filtering;
// the boundary restricts this call to editors.
func (e *Engine) FetchHunt(ctx context.Context, req protocol.FetchHuntRequest) protocol.FetchHuntResponse {
	var resp protocol.FetchHuntResponse
	h, err := e.store.HuntByID(ctx, req.HuntID)
	if err != nil {
		resp.Status = e.storeStatus(err, "hunt not found")
		return resp
	}
	roads, err := e.store.RoadsByHunt(ctx, h.ID)
	if err != nil {
		resp.Status = e.storeStatus(err, "roads not found")
		return resp
	}

	var feats []geo.OutFeature
	for _, road := range roads {
		riddles, rerr := e.store.RiddlesByRoad(ctx, road.ID)
		if rerr != nil {
			resp.Status = e.storeStatus(rerr, "riddles not found")
			return resp
		}
		info := protocol.RoadInfo{
			ID:           road.ID,
			Name:         road.Name,
			GroupID:      road.GroupID,
			GroupingID:   road.GroupingID,
			Validated:    road.Validated,
			RiddleCount:  len(riddles),
			TimeModified: road.TimeModified,
		}
		resp.Roads = append(resp.Roads, info)
		for _, r := range riddles {
			g, gerr := geo.DecodeGeometry(r.Geometry)
			if gerr != nil {
				e.log.Printf("riddle %d: stored geometry unreadable: %v", r.ID, gerr)
				continue
			}
			feats = append(feats, geo.OutFeature{
				ID:       r.ID,
				Geometry: g,
				Properties: map[string]any{
					"roadid":      r.RoadID,
					"number":      r.Number,
					"name":        r.Name,
					"description": r.Description,
				},
			})
		}
	}
	fc, err := geo.BuildFeatureCollection(feats)
	if err != nil {
		resp.Status = protocol.Error(protocol.ErrPersistence, "could not render the riddles")
		return resp
	}
	resp.Riddles = fc
	resp.GroupMode = h.GroupMode
	resp.PlayWithoutMoving = h.PlayWithoutMoving
	resp.Status = protocol.OK(msgHuntFetched)
	return resp
}
