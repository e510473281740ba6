package hunt

import (
	"fmt"
	"time"
)

// User-visible strings. English only; i18n stays with the excluded UI layer.
const (
	msgSuccessLocation = "Congratulations, you are right!"
	msgFailLocation    = "It is not the right place"
	msgFirstRiddle     = "To discover the first riddle you should start from the marked area on the map"
	msgRiddleLocked    = "You must answer the question and complete the required activity to unlock the next riddle"
	msgAlreadyFound    = "This riddle has already been discovered by your group"
	msgRoadFinished    = "Congratulations, you have finished the road!"
	msgRoadDone        = "You have already finished this road"

	msgCorrectAnswer = "Correct answer!"
	msgWrongAnswer   = "That is not the right answer"
	msgNoQuestion    = "There is no pending question to answer"
	msgAnswerRace    = "The question no longer belongs to your newest attempt, reload your progress"

	msgStaleLocation = "This hunt has been edited, your location was not evaluated. Reload the page"
	msgStaleAnswer   = "This hunt has been edited, your answer was not evaluated. Reload the page"

	msgNoGroup            = "Not a member of any group"
	msgNoRoad             = "You have no road assigned, so you can not play the activity"
	msgNoGroupRoad        = "You have no team assigned to a road, so you can not play the activity"
	msgMultipleRoads      = "You have more than one road assigned, so you can not play the activity"
	msgMultipleGroupRoads = "Your group has more than one road assigned, so you can not play the activity"
	msgAmbiguousGrouping  = "You belong to more than one group assigned to the same road, so you can not play the activity"
	msgRoadNotValidated   = "The assigned road is not validated yet"

	msgLockCreated = "Edition lock created"
	msgLockRenewed = "Edition lock renewed"
	msgLockReload  = "This hunt has been edited, reload the page"
	msgLockHeld    = "Somebody is editing this hunt right now. Try again in a few minutes"

	msgRiddlesUpdated = "The riddles were updated successfully"
	msgRiddleDeleted  = "The riddle was removed successfully"
	msgRoadDeleted    = "The road was removed successfully"
	msgNoNewRiddles   = "Attempts have already been made on this road, riddles can not be added or removed"

	msgHuntFetched  = "The hunt was loaded successfully"
	msgCompletionOK = "The required activity has been completed, the riddle is unlocked"
)

const feedTimeLayout = "02/01/2006 15:04:05"

func feedTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(feedTimeLayout)
}

// feedLine renders one delta-feed entry for the activity list. Group mode
// names the member who made the attempt; individual mode does not.
func feedLine(a AttemptRecord, groupMode bool) string {
	who := a.UserName
	if who == "" {
		who = fmt.Sprintf("user %d", a.UserID)
	}
	when := feedTime(a.TimeCreated)
	switch {
	case a.Type == AttemptQuestion && groupMode:
		if a.Success {
			return fmt.Sprintf("Question of riddle %d answered by %s on %s", a.RiddleNumber, who, when)
		}
		return fmt.Sprintf("Wrong answer by %s for riddle %d on %s", who, a.RiddleNumber, when)
	case a.Type == AttemptQuestion:
		if a.Success {
			return fmt.Sprintf("Question of riddle %d answered on %s", a.RiddleNumber, when)
		}
		return fmt.Sprintf("Wrong answer for riddle %d on %s", a.RiddleNumber, when)
	case groupMode:
		if a.Success {
			return fmt.Sprintf("Riddle %d discovered by %s on %s", a.RiddleNumber, who, when)
		}
		return fmt.Sprintf("Location failed by %s for riddle %d on %s", who, a.RiddleNumber, when)
	default:
		if a.Success {
			return fmt.Sprintf("Riddle %d discovered on %s", a.RiddleNumber, when)
		}
		return fmt.Sprintf("Location failed for riddle %d on %s", a.RiddleNumber, when)
	}
}
