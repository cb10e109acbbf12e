package intents

import (
	"encoding/json"
	"time"
)

// Input is the JSON an assistant shortcut sends on stdin. All fields are
// optional; each intent reads the subset it needs.
type Input struct {
	ActivityID  string   `json:"activity_id,omitempty"`
	ActivityIDs []string `json:"activity_ids,omitempty"`
	Query       string   `json:"query,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// activity mirrors the server's activity JSON.
type activity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IntervalDays int    `json:"interval_days"`
	State        string `json:"state"`
	DaysSince    *int   `json:"days_since,omitempty"`
}

type completeResult struct {
	Activity activity `json:"activity"`
	Reminder *struct {
		FireAt time.Time `json:"fire_at"`
	} `json:"reminder,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Output is written to stdout for the assistant to speak.
type Output struct {
	Speech string `json:"speech"`
}

func decodeActivities(data []byte) ([]activity, error) {
	var out []activity
	err := json.Unmarshal(data, &out)
	return out, err
}
