package proactive

import (
	"fmt"
	"strings"
	"time"
)

// DayPart maps a local hour to the greeting flavor used in the
// proactive prompt. Intervals are half-open; hours outside [5,22)
// fall through to the good-night bucket.
func DayPart(hour int) string {
	switch {
	case hour >= 5 && hour < 9:
		return "morning greeting"
	case hour >= 9 && hour < 12:
		return "mid-morning greeting"
	case hour >= 12 && hour < 14:
		return "lunch greeting"
	case hour >= 14 && hour < 18:
		return "afternoon greeting"
	case hour >= 18 && hour < 22:
		return "evening greeting"
	default:
		return "good night greeting"
	}
}

// BuildPrompt composes the one-shot system prompt for a proactive
// message. It embeds the current timestamp, the day-part label, and
// the user's recent topics (or "none").
func BuildPrompt(now time.Time, dayPart string, topics []string) string {
	topicList := "none"
	if len(topics) > 0 {
		topicList = strings.Join(topics, ", ")
	}
	return fmt.Sprintf(`You are the user's AI pen-pal, and now need to send a proactive message to the user.
It's now %s, suitable for a %s.

Historical topics for reference: %s

Please generate a natural, warm message, which can be:
1. Continuation of a previous topic
2. A greeting or caring message based on current time
3. Sharing an interesting thought or question

The message should be short and natural, like talking to a friend, not too formal.`,
		now.Format("2006-01-02 15:04"), dayPart, topicList)
}
