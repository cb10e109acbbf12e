package intents

import (
	"fmt"
	"strings"
)

// maxSpoken is how many names a list reads out before "and N more".
const maxSpoken = 3

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

// ago phrases an elapsed day count.
func ago(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return plural(days, "day", "days") + " ago"
	}
}

// spokenList joins names for speech, truncating long lists.
func spokenList(names []string) string {
	extra := 0
	if len(names) > maxSpoken {
		extra = len(names) - maxSpoken
		names = names[:maxSpoken]
	}

	switch {
	case len(names) == 0:
		return ""
	case extra > 0:
		return strings.Join(names, ", ") + fmt.Sprintf(", and %d more", extra)
	case len(names) == 1:
		return names[0]
	case len(names) == 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func names(acts []activity) []string {
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = a.Name
	}
	return out
}
