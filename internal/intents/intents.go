package intents

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// resolve picks the single activity an intent is about. It returns the
// speech to use instead when that is not possible.
func resolve(client *Client, input *Input) (*activity, string, error) {
	id := input.ActivityID
	if id == "" && len(input.ActivityIDs) == 1 {
		id = input.ActivityIDs[0]
	}
	if id != "" {
		data, err := client.Get("/api/activities/" + url.PathEscape(id))
		if err != nil {
			return nil, "", err
		}
		var a activity
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, "", err
		}
		return &a, "", nil
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, "Which activity?", nil
	}
	matches, err := search(client, query)
	if err != nil {
		return nil, "", err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Sprintf("I couldn't find an activity called %s.", query), nil
	case 1:
		return &matches[0], "", nil
	default:
		return nil, "Which one? " + spokenList(names(matches)) + ".", nil
	}
}

func search(client *Client, query string) ([]activity, error) {
	data, err := client.Get("/api/activities/search?q=" + url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	return decodeActivities(data)
}

func handleComplete(client *Client, input *Input) (string, error) {
	a, speech, err := resolve(client, input)
	if a == nil {
		return speech, err
	}

	body, _ := json.Marshal(map[string]string{"note": input.Note})
	data, err := client.Post("/api/activities/"+url.PathEscape(a.ID)+"/complete", body)
	if err != nil {
		return "", err
	}
	var res completeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return "", err
	}

	switch {
	case res.Warning != "":
		return fmt.Sprintf("Marked %s done, but I couldn't set the next reminder.", a.Name), nil
	case res.Reminder != nil:
		return fmt.Sprintf("Marked %s done. I'll remind you in %s.", a.Name, plural(res.Activity.IntervalDays, "day", "days")), nil
	default:
		return fmt.Sprintf("Marked %s done.", a.Name), nil
	}
}

func handleDaysSince(client *Client, input *Input) (string, error) {
	a, speech, err := resolve(client, input)
	if a == nil {
		return speech, err
	}
	if a.DaysSince == nil {
		return fmt.Sprintf("You've never done %s.", a.Name), nil
	}
	return fmt.Sprintf("You last did %s %s.", a.Name, ago(*a.DaysSince)), nil
}

func handleOverdue(client *Client) (string, error) {
	data, err := client.Get("/api/activities/overdue")
	if err != nil {
		return "", err
	}
	acts, err := decodeActivities(data)
	if err != nil {
		return "", err
	}

	switch len(acts) {
	case 0:
		return "Nothing is overdue.", nil
	case 1:
		return fmt.Sprintf("%s is overdue.", acts[0].Name), nil
	default:
		return fmt.Sprintf("%d activities are overdue: %s.", len(acts), spokenList(names(acts))), nil
	}
}

func handleFind(client *Client, input *Input) (string, error) {
	var acts []activity
	var err error
	switch {
	case len(input.ActivityIDs) > 0:
		var data []byte
		data, err = client.Get("/api/activities/lookup?ids=" + url.QueryEscape(strings.Join(input.ActivityIDs, ",")))
		if err == nil {
			acts, err = decodeActivities(data)
		}
	case strings.TrimSpace(input.Query) != "":
		acts, err = search(client, input.Query)
	default:
		return "What should I look for?", nil
	}
	if err != nil {
		return "", err
	}

	if len(acts) == 0 {
		return "I didn't find any matching activities.", nil
	}
	return fmt.Sprintf("I found %s: %s.", plural(len(acts), "activity", "activities"), spokenList(names(acts))), nil
}
