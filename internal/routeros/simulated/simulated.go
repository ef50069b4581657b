// Package simulated provides a RouterOS session that answers with canned
// rows, for demos and local development without hardware.
package simulated

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	goros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"

	"github.com/micro-ha/mikrotik-monitor/internal/routeros"
)

var errSessionClosed = errors.New("simulated session closed")

// Session mimics a hAP ac² with two ethernet ports and one radio.
type Session struct {
	identity string
	started  time.Time
	now      func() time.Time

	mu     sync.Mutex
	rnd    *rand.Rand
	closed bool
}

var _ routeros.Session = (*Session)(nil)

// Dial satisfies routeros.DialFunc.
func Dial(_ context.Context, cfg routeros.Config) (routeros.Session, error) {
	host, _, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		host = cfg.Address
	}
	return New("sim-"+host, time.Now()), nil
}

// New creates a session whose uptime counts from started.
func New(identity string, started time.Time) *Session {
	return &Session{
		identity: identity,
		started:  started.Add(-72 * time.Hour),
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(started.UnixNano())),
	}
}

func (s *Session) Run(ctx context.Context, cmd string, args ...string) (*goros.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errSessionClosed
	}

	switch cmd {
	case "/system/identity/print":
		return reply(map[string]string{"name": s.identity}), nil
	case "/system/resource/print":
		return reply(s.resource()), nil
	case "/system/health/print":
		return reply(map[string]string{"name": "cpu-temperature", "value": strconv.Itoa(48 + s.rnd.Intn(8))}), nil
	case "/system/resource/cpu/print":
		return reply(map[string]string{"cpu": "cpu0"}, map[string]string{"cpu": "cpu1"}), nil
	case "/system/resource/usb/print":
		return reply(), nil
	case "/file/print":
		return reply(
			map[string]string{"name": "flash/auto-before-reset.backup", "size": "52311", "creation-time": "jan/02/2024 10:00:00"},
			map[string]string{"name": "flash/skins", "size": "0", "creation-time": "jan/01/1970 00:00:00"},
		), nil
	case "/interface/print":
		return reply(
			map[string]string{"name": "ether1", "type": "ether", "mac-address": "00:0C:29:45:67:01", "running": "true", "disabled": "false", "comment": "WAN"},
			map[string]string{"name": "ether2", "type": "ether", "mac-address": "00:0C:29:45:67:02", "running": "true", "disabled": "false"},
			map[string]string{"name": "wlan1-5GHz", "type": "wlan", "mac-address": "00:0C:29:45:67:03", "running": "true", "disabled": "false"},
		), nil
	case "/interface/monitor-traffic":
		return reply(map[string]string{
			"rx-bits-per-second":    strconv.Itoa(s.rnd.Intn(10_000_000)),
			"tx-bits-per-second":    strconv.Itoa(s.rnd.Intn(5_000_000)),
			"rx-packets-per-second": strconv.Itoa(s.rnd.Intn(1000)),
			"tx-packets-per-second": strconv.Itoa(s.rnd.Intn(500)),
			"rx-drops":              "0",
			"tx-drops":              "0",
			"rx-errors":             "0",
			"tx-errors":             "0",
		}), nil
	case "/interface/wireless/registration-table/print":
		return reply(
			map[string]string{".id": "*1", "interface": "wlan1-5GHz", "mac-address": "AC:CF:85:79:12:34", "signal-strength": "-65", "signal-to-noise": "40", "tx-rate": "87Mbps", "rx-rate": "130Mbps", "uptime": "6h32m10s", "last-ip": "192.168.88.105"},
			map[string]string{".id": "*2", "interface": "wlan1-5GHz", "mac-address": "00:11:22:33:44:55", "signal-strength": "-72", "tx-rate": "54Mbps", "rx-rate": "65Mbps", "uptime": "2h17m42s", "comment": "living room tv"},
		), nil
	case "/log/print":
		return reply(s.logs()...), nil
	}
	return reply(), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) resource() map[string]string {
	const mb = 1024 * 1024
	uptime := s.now().Sub(s.started)
	return map[string]string{
		"uptime":           strconv.FormatInt(int64(uptime.Seconds()), 10),
		"version":          "7.10.2 (stable)",
		"free-memory":      strconv.Itoa(256*mb - s.rnd.Intn(32*mb)),
		"total-memory":     strconv.Itoa(512 * mb),
		"cpu-count":        "2",
		"cpu-frequency":    "800",
		"cpu-load":         strconv.Itoa(5 + s.rnd.Intn(30)),
		"free-hdd-space":   strconv.Itoa(100 * mb),
		"total-hdd-space":  strconv.Itoa(128 * mb),
		"architecture":     "arm",
		"board-name":       "hAP ac²",
		"serial-number":    "SIM0000001",
		"factory-software": "6.44.6",
		"firmware-type":    "ipq4000L",
	}
}

func (s *Session) logs() []map[string]string {
	now := s.now()
	entries := []struct {
		ago     time.Duration
		topics  string
		message string
	}{
		{time.Hour, "system,info", "system started"},
		{50 * time.Minute, "wireless,info", "AC:CF:85:79:12:34@wlan1-5GHz: connected"},
		{30 * time.Minute, "system,warning", "CPU temperature is high: 72C"},
		{15 * time.Minute, "firewall,warning", "blocked connection attempt from 203.0.113.42"},
		{5 * time.Minute, "interface,error", "ether2 link down"},
		{3 * time.Minute, "interface,info", "ether2 link up"},
		{time.Minute, "system,debug", "health monitor checking resources"},
	}
	rows := make([]map[string]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, map[string]string{
			".id":     "*" + strconv.Itoa(i+1),
			"time":    now.Add(-entry.ago).Format("15:04:05"),
			"topics":  entry.topics,
			"message": entry.message,
		})
	}
	return rows
}

func reply(rows ...map[string]string) *goros.Reply {
	re := make([]*proto.Sentence, 0, len(rows))
	for _, row := range rows {
		re = append(re, &proto.Sentence{Word: "!re", Map: row})
	}
	return &goros.Reply{Re: re, Done: &proto.Sentence{Word: "!done", Map: map[string]string{}}}
}
