package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/runner"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer(&Config{
		Addr:   "127.0.0.1:0",
		Logger: log.New(io.Discard, "", 0),
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	return s
}

func TestHealthEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	s := startTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid health payload: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestClientReceivesBroadcasts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the server to register the client before broadcasting.
	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.RunStarted(meta.Metadata{Commit: "abc1234"}, 3)
	s.CaseResult(0, 3, record.ResultRecord{Label: "bench_a", Function: "bench_a", Timings: []float64{0.1}})
	s.RunComplete(runner.Summary{Completed: 3})

	wantTypes := []MessageType{MessageTypeRunStarted, MessageTypeCaseResult, MessageTypeRunComplete}
	for _, want := range wantTypes {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read failed waiting for %s: %v", want, err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		if msg.Type != want {
			t.Errorf("message type = %s, want %s", msg.Type, want)
		}
		if msg.Timestamp.IsZero() {
			t.Error("message without timestamp")
		}
	}
}

func TestCaseResultPayload(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.CaseResult(2, 5, record.ResultRecord{Label: "bench_x[n=1]", Function: "bench_x", Timings: []float64{0.25}})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message: %v", err)
	}
	var payload CaseResultData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("invalid case payload: %v", err)
	}
	if payload.Index != 2 || payload.Total != 5 {
		t.Errorf("index/total = %d/%d", payload.Index, payload.Total)
	}
	if payload.Record.Label != "bench_x[n=1]" {
		t.Errorf("record label = %q", payload.Record.Label)
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	s := startTestServer(t)

	// Broadcasting into an empty client set must not block or panic.
	for i := 0; i < 10; i++ {
		s.CaseResult(i, 10, record.ResultRecord{Label: "bench_a"})
	}
}

func TestClientDisconnectIsDetected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	s := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Addr()), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline = time.Now().Add(5 * time.Second)
	for s.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnect never noticed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
