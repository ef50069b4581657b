package collector

import (
	"strconv"
	"strings"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Logs maps /log/print rows, keeps entries matching any of topics (all when
// topics is empty) and returns at most limit of the newest ones.
func Logs(rows []map[string]string, topics []string, limit int) []model.LogEntry {
	wanted := normalizeTopics(topics)
	items := make([]model.LogEntry, 0, len(rows))
	for i, row := range rows {
		entryTopics := strings.TrimSpace(row["topics"])
		if len(wanted) > 0 && !matchesTopic(entryTopics, wanted) {
			continue
		}
		message := strings.TrimSpace(row["message"])
		items = append(items, model.LogEntry{
			ID:       firstNonEmpty(row[".id"], "log-"+strconv.Itoa(i)),
			Topics:   entryTopics,
			Message:  message,
			Time:     strings.TrimSpace(row["time"]),
			Severity: LogSeverity(message, entryTopics),
		})
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}

// LogSeverity infers a severity from message text and topics.
func LogSeverity(message, topics string) string {
	msg := strings.ToLower(message)
	tops := strings.ToLower(topics)
	switch {
	case containsAny(msg, "critical", "emergency", "fatal") || strings.Contains(tops, "critical"):
		return "critical"
	case containsAny(msg, "error", "fail") || strings.Contains(tops, "error"):
		return "error"
	case containsAny(msg, "warning", "warn", "alert") || strings.Contains(tops, "warning"):
		return "warning"
	case containsAny(msg, "debug", "trace") || strings.Contains(tops, "debug"):
		return "debug"
	default:
		return "info"
	}
}

// ParseTopics splits a comma separated topics query.
func ParseTopics(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return normalizeTopics(strings.Split(raw, ","))
}

func normalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		if trimmed := strings.ToLower(strings.TrimSpace(topic)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func matchesTopic(entryTopics string, wanted []string) bool {
	for _, topic := range strings.Split(strings.ToLower(entryTopics), ",") {
		topic = strings.TrimSpace(topic)
		for _, w := range wanted {
			if topic == w {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
