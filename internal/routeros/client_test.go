package routeros

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	goros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(run func(ctx context.Context, conn *goros.Client, cmd string, args ...string) (*goros.Reply, error)) (*Client, *int) {
	closes := 0
	return &Client{
		config: Config{Address: "127.0.0.1:8728", Username: "u", Password: "p"},
		logger: zerolog.Nop(),
		conn:   &goros.Client{},
		runFn:  run,
		closeFn: func(conn *goros.Client) error {
			closes++
			return nil
		},
	}, &closes
}

func TestClientRunPassesSentence(t *testing.T) {
	var gotCmd string
	var gotArgs []string
	client, _ := newTestClient(func(_ context.Context, _ *goros.Client, cmd string, args ...string) (*goros.Reply, error) {
		gotCmd = cmd
		gotArgs = args
		return &goros.Reply{Done: &proto.Sentence{Word: "!done", Map: map[string]string{}}}, nil
	})

	reply, err := client.Run(context.Background(), "/interface/monitor-traffic", "=interface=ether1", "=once=")
	require.NoError(t, err)
	require.NotNil(t, reply.Done)
	assert.Equal(t, "/interface/monitor-traffic", gotCmd)
	assert.Equal(t, []string{"=interface=ether1", "=once="}, gotArgs)
}

func TestClientRunPropagatesError(t *testing.T) {
	client, _ := newTestClient(func(context.Context, *goros.Client, string, ...string) (*goros.Reply, error) {
		return nil, io.EOF
	})
	_, err := client.Run(context.Background(), "/x")
	assert.ErrorIs(t, err, io.EOF)
}

func TestClientCloseIsIdempotentAndBlocksRun(t *testing.T) {
	client, closes := newTestClient(func(context.Context, *goros.Client, string, ...string) (*goros.Reply, error) {
		return nil, nil
	})
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.Equal(t, 1, *closes)

	_, err := client.Run(context.Background(), "/x")
	assert.True(t, errors.Is(err, errClientClosed))
}

func TestClientRunHonoursCancelledContext(t *testing.T) {
	called := false
	client, _ := newTestClient(func(context.Context, *goros.Client, string, ...string) (*goros.Reply, error) {
		called = true
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Run(ctx, "/x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestIsRetryableError(t *testing.T) {
	deviceErr := &goros.DeviceError{Sentence: &proto.Sentence{Word: "!trap", Map: map[string]string{"message": "no such command"}}}
	assert.True(t, isRetryableError(io.EOF))
	assert.True(t, isRetryableError(errors.New("write: broken pipe")))
	assert.True(t, isRetryableError(errors.New("dial tcp: i/o timeout")))
	assert.False(t, isRetryableError(deviceErr))
	assert.False(t, isRetryableError(errors.New("permission denied")))
	assert.False(t, isRetryableError(nil))
	assert.True(t, IsMissingCommand(deviceErr))
}

func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{Address: "192.168.88.1", Username: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "192.168.88.1:8728", cfg.Address)
	assert.Equal(t, defaultDialTimeout, cfg.Timeout)

	cfg, err = normalizeConfig(Config{Address: "router.lan", Username: "admin", UseTLS: true})
	require.NoError(t, err)
	assert.Equal(t, "router.lan:8729", cfg.Address)

	_, err = normalizeConfig(Config{Address: "", Username: "admin"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "address", verr.Field)

	_, err = normalizeConfig(Config{Address: "10.0.0.1"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)
}

func TestCommandArgs(t *testing.T) {
	words := commandArgs(map[string]string{
		"interface": "ether1",
		"once":      "",
		"?topics":   "system",
		"proplist":  "name,running",
	})
	assert.Equal(t, []string{"=.proplist=name,running", "=interface=ether1", "=once=", "?topics=system"}, words)
	assert.Nil(t, commandArgs(nil))
}

func TestReplyRows(t *testing.T) {
	reply := &goros.Reply{
		Re: []*proto.Sentence{
			{Word: "!re", Map: map[string]string{"name": "ether1"}, List: []proto.Pair{{Key: "name", Value: "ether1"}}},
			{Word: "!re", Map: map[string]string{}},
			{Word: "!re", List: []proto.Pair{{Key: "name", Value: "wlan1"}, {Key: "running", Value: "true"}}},
		},
		Done: &proto.Sentence{Word: "!done", Map: map[string]string{}},
	}
	assert.Equal(t, []map[string]string{
		{"name": "ether1"},
		{"name": "wlan1", "running": "true"},
	}, replyRows(reply))
	assert.Empty(t, replyRows(nil))
}

// pipeClient connects a Client to an in-memory router that answers each
// command with the sentences returned by answer. A nil answer leaves the
// command hanging.
func pipeClient(t *testing.T, answer func(cmd string) [][]string) *Client {
	t.Helper()
	clientEnd, routerEnd := net.Pipe()
	conn, err := goros.NewClient(clientEnd)
	require.NoError(t, err)
	client := &Client{
		config:  Config{Address: "pipe:8728"},
		logger:  zerolog.Nop(),
		conn:    conn,
		netConn: clientEnd,
		runFn:   runRouterOS,
		closeFn: closeRouterOS,
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = routerEnd.Close()
	})

	go func() {
		r := proto.NewReader(routerEnd)
		w := proto.NewWriter(routerEnd)
		for {
			sentence, err := r.ReadSentence()
			if err != nil {
				return
			}
			for _, words := range answer(sentence.Word) {
				w.BeginSentence()
				for _, word := range words {
					w.WriteWord(word)
				}
				if err := w.EndSentence(); err != nil {
					return
				}
			}
		}
	}()
	return client
}

func TestClientRunSerializesConcurrentCommands(t *testing.T) {
	client := pipeClient(t, func(cmd string) [][]string {
		return [][]string{{"!re", "=cmd=" + cmd}, {"!done"}}
	})

	commands := []string{"/log/print", "/interface/monitor-traffic", "/system/resource/print", "/system/health/print"}
	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		cmd := commands[i%len(commands)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := client.Run(context.Background(), cmd)
			if !assert.NoError(t, err) {
				return
			}
			if assert.Len(t, reply.Re, 1) {
				assert.Equal(t, cmd, reply.Re[0].Map["cmd"])
			}
		}()
	}
	wg.Wait()
}

func TestClientRunStopsAtContextDeadline(t *testing.T) {
	client := pipeClient(t, func(string) [][]string { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := client.Run(ctx, "/system/resource/print")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, errInterrupted)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the deadline")
	}

	_, err := client.Run(context.Background(), "/system/identity/print")
	assert.ErrorIs(t, err, errClientClosed)
}

func TestClientRunStopsOnCancel(t *testing.T) {
	client := pipeClient(t, func(string) [][]string { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Run(ctx, "/log/print")
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errInterrupted)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
