// Package intents answers voice-assistant shortcuts by calling the tend
// server and turning the result into a sentence.
package intents

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

const (
	speechUnreachable = "I can't reach tend right now."
	speechNotFound    = "I couldn't find that activity."
	speechFailed      = "Something went wrong talking to tend."
)

// Handle reads an Input from stdin, runs the named intent and writes one
// Output to stdout. It never fails: problems become speech.
func Handle(intent string, stdin io.Reader, stdout io.Writer) {
	handle(NewClient(), intent, stdin, stdout)
}

func handle(client *Client, intent string, stdin io.Reader, stdout io.Writer) {
	var input Input
	if err := json.NewDecoder(stdin).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "tend intent: decode stdin: %v\n", err)
		writeSpeech(stdout, "I didn't understand that request.")
		return
	}

	if !client.Healthy() {
		writeSpeech(stdout, speechUnreachable)
		return
	}

	var speech string
	var err error
	switch intent {
	case "complete":
		speech, err = handleComplete(client, &input)
	case "days-since":
		speech, err = handleDaysSince(client, &input)
	case "overdue":
		speech, err = handleOverdue(client)
	case "find":
		speech, err = handleFind(client, &input)
	default:
		fmt.Fprintf(os.Stderr, "tend intent: unknown intent %q\n", intent)
		speech = "I don't know how to do that yet."
	}
	if err != nil {
		speech = speechFor(err)
	}
	writeSpeech(stdout, speech)
}

func speechFor(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return speechNotFound
	}
	fmt.Fprintf(os.Stderr, "tend intent: %v\n", err)
	return speechFailed
}

func writeSpeech(w io.Writer, speech string) {
	json.NewEncoder(w).Encode(Output{Speech: speech})
}
