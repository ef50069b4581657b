package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// ParseUptime accepts plain seconds, RouterOS "1w2d3h4m5s" or "hh:mm:ss"
// (optionally prefixed with "Nd "). Unparseable input yields a zero Uptime.
func ParseUptime(value string) model.Uptime {
	d, err := parseRouterOSDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		return model.Uptime{}
	}
	return splitDuration(d)
}

// RebootTime is the moment the device last booted given its uptime.
func RebootTime(now time.Time, uptime model.Uptime) time.Time {
	return now.Add(-uptime.Duration())
}

// FormatUptime renders "3d 4h 12m" style text.
func FormatUptime(u model.Uptime) string {
	var b strings.Builder
	if u.Days > 0 {
		fmt.Fprintf(&b, "%dd ", u.Days)
	}
	if u.Hours > 0 || u.Days > 0 {
		fmt.Fprintf(&b, "%dh ", u.Hours)
	}
	fmt.Fprintf(&b, "%dm", u.Minutes)
	return b.String()
}

func splitDuration(d time.Duration) model.Uptime {
	total := int64(d / time.Second)
	return model.Uptime{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

func parseRouterOSDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	var prefix time.Duration
	if head, clock, ok := strings.Cut(value, " "); ok {
		d, err := parseRouterOSDuration(head)
		if err != nil {
			return 0, err
		}
		prefix = d
		value = strings.TrimSpace(clock)
	}

	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) != 3 {
			return 0, fmt.Errorf("invalid hh:mm:ss: %s", value)
		}
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, err
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, err
		}
		s, err := strconv.Atoi(parts[2])
		if err != nil {
			return 0, err
		}
		return prefix + time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
	}

	mult := map[byte]time.Duration{
		'w': 7 * 24 * time.Hour,
		'd': 24 * time.Hour,
		'h': time.Hour,
		'm': time.Minute,
		's': time.Second,
	}

	var dur time.Duration
	number := ""
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch >= '0' && ch <= '9' {
			number += string(ch)
			continue
		}
		unit, ok := mult[ch]
		if !ok || number == "" {
			return 0, fmt.Errorf("invalid duration segment: %s", value)
		}
		v, err := strconv.Atoi(number)
		if err != nil {
			return 0, err
		}
		dur += time.Duration(v) * unit
		number = ""
	}
	if number != "" {
		v, err := strconv.Atoi(number)
		if err != nil {
			return 0, err
		}
		dur += time.Duration(v) * time.Second
	}
	return prefix + dur, nil
}
