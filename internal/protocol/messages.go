package protocol

import "encoding/json"

// FETCH (read-only snapshot for initial render)

type FetchHuntRequest struct {
	HuntID int64 `json:"huntid"`
}

type FetchHuntResponse struct {
	// Riddles is a GeoJSON FeatureCollection with every riddle of the hunt.
	Riddles           json.RawMessage `json:"riddles"`
	Roads             []RoadInfo      `json:"roads"`
	GroupMode         bool            `json:"groupmode"`
	PlayWithoutMoving bool            `json:"playwithoutmoving"`
	Status            Status          `json:"status"`
}

type RoadInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	GroupID      int64  `json:"groupid"`
	GroupingID   int64  `json:"groupingid"`
	Validated    bool   `json:"validated"`
	RiddleCount  int    `json:"riddlecount"`
	TimeModified int64  `json:"timemodified"`
}

// PROGRESS (the polling/submission endpoint)

type UserProgressRequest struct {
	HuntID           int64 `json:"huntid"`
	UserID           int64 `json:"userid"`
	AttemptTimestamp int64 `json:"attempttimestamp"`
	RoadTimestamp    int64 `json:"roadtimestamp"`
	Initialize       bool  `json:"initialize"`
	// Location, when present, is a GeoJSON point (geometry, feature, or
	// one-feature collection).
	Location json.RawMessage `json:"location,omitempty"`
	// SelectedAnswerID answers the question gate of the attempt named by
	// PendingAttemptID. Both must be set together.
	SelectedAnswerID int64 `json:"selectedanswerid,omitempty"`
	PendingAttemptID int64 `json:"pendingattemptid,omitempty"`
}

type UserProgressResponse struct {
	// Riddles is a GeoJSON FeatureCollection with the participant's unlocked
	// riddles. Omitted when nothing changed and the client did not ask to
	// initialize.
	Riddles              json.RawMessage `json:"riddles,omitempty"`
	AttemptTimestamp     int64           `json:"attempttimestamp"`
	RoadTimestamp        int64           `json:"roadtimestamp"`
	InfoMsgs             []string        `json:"infomsg"`
	AnyChanges           bool            `json:"anychanges"`
	LastSuccessfulRiddle *RiddleSummary  `json:"lastsuccessfulriddle,omitempty"`
	// PendingRiddle is the riddle whose location was found but whose
	// question/completion gate is still open. Progress does not advance past
	// it until the gate flips.
	PendingRiddle *RiddleSummary `json:"pendingriddle,omitempty"`
	RoadFinished  bool           `json:"roadfinished"`
	Status        Status         `json:"status"`
}

// RiddleSummary describes the most recently found riddle and the state of its
// gates. Question carries the auxiliary question while it is still unsolved.
type RiddleSummary struct {
	ID               int64         `json:"id"`
	Number           int           `json:"number"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	QuestionSolved   bool          `json:"questionsolved"`
	CompletionSolved bool          `json:"completionsolved"`
	PendingAttemptID int64         `json:"pendingattemptid,omitempty"`
	Question         *QuestionInfo `json:"question,omitempty"`
}

type QuestionInfo struct {
	Text    string         `json:"text"`
	Answers []AnswerOption `json:"answers"`
}

type AnswerOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// AUTHORING (gated by the edit lock)

type UpdateRiddlesRequest struct {
	HuntID int64  `json:"huntid"`
	UserID int64  `json:"userid"`
	LockID string `json:"idlock"`
	// Riddles is a GeoJSON FeatureCollection; each feature id names the
	// riddle whose geometry is replaced.
	Riddles json.RawMessage `json:"riddles"`
}

type DeleteRiddleRequest struct {
	HuntID   int64  `json:"huntid"`
	UserID   int64  `json:"userid"`
	LockID   string `json:"idlock"`
	RiddleID int64  `json:"riddleid"`
}

type DeleteRoadRequest struct {
	HuntID int64  `json:"huntid"`
	UserID int64  `json:"userid"`
	LockID string `json:"idlock"`
	RoadID int64  `json:"roadid"`
}

type StatusResponse struct {
	Status Status `json:"status"`
}

type RenewLockRequest struct {
	HuntID int64  `json:"huntid"`
	UserID int64  `json:"userid"`
	LockID string `json:"idlock,omitempty"`
}

type RenewLockResponse struct {
	LockID string `json:"idlock"`
	Status Status `json:"status"`
}

// FEED (websocket push between polls; advisory, polling stays authoritative)

const (
	FeedTypeAttempt = "ATTEMPT"
	FeedTypeRoad    = "ROAD"
)

type FeedMsg struct {
	Type             string `json:"type"`
	ProtocolVersion  string `json:"protocol_version"`
	RoadID           int64  `json:"roadid"`
	RiddleNumber     int    `json:"riddle_number,omitempty"`
	UserID           int64  `json:"userid,omitempty"`
	Success          bool   `json:"success,omitempty"`
	AttemptTimestamp int64  `json:"attempttimestamp,omitempty"`
	RoadTimestamp    int64  `json:"roadtimestamp,omitempty"`
	Msg              string `json:"msg,omitempty"`
}
