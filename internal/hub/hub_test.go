package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Dinhtoai1/layso/internal/queue"
)

func drain(ch chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastFiltersBySubscription(t *testing.T) {
	h := New()

	all := &Client{ID: "all", Send: make(chan []byte, 4)}
	vanThu := &Client{ID: "vanthu", Send: make(chan []byte, 4), Subscription: Subscription{Service: "Văn thư"}}
	datDai := &Client{ID: "datdai", Send: make(chan []byte, 4), Subscription: Subscription{Service: "Đất đai"}}
	h.Register(all)
	h.Register(vanThu)
	h.Register(datDai)

	h.Broadcast([]byte(`{"n":1}`), "Văn thư")

	if got := len(drain(all.Send)); got != 1 {
		t.Fatalf("unfiltered client got %d messages", got)
	}
	if got := len(drain(vanThu.Send)); got != 1 {
		t.Fatalf("matching client got %d messages", got)
	}
	if got := len(drain(datDai.Send)); got != 0 {
		t.Fatalf("other client got %d messages", got)
	}
}

func TestBroadcastDropsWhenClientIsSlow(t *testing.T) {
	h := New()
	slow := &Client{ID: "slow", Send: make(chan []byte, 1)}
	h.Register(slow)

	h.Broadcast([]byte("one"), "Văn thư")
	h.Broadcast([]byte("two"), "Văn thư")

	messages := drain(slow.Send)
	if len(messages) != 1 || string(messages[0]) != "one" {
		t.Fatalf("unexpected messages: %q", messages)
	}
}

func TestNotifyCallPayload(t *testing.T) {
	h := New()
	client := &Client{ID: "c1", Send: make(chan []byte, 4)}
	h.Register(client)

	h.NotifyCall(queue.CallEvent{
		Service:  "Văn thư",
		Number:   "2003",
		Display:  2003,
		Time:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		IsRecall: true,
	})

	messages := drain(client.Send)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var event queue.CallEvent
	if err := json.Unmarshal(messages[0], &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Number != "2003" || event.Display != 2003 || !event.IsRecall {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","service":"Văn thư"}`))
	if !ok || msg.Service != "Văn thư" {
		t.Fatalf("subscribe not parsed: %+v %v", msg, ok)
	}
	if _, ok := ParseSubscribe([]byte(`{"action":"ping"}`)); ok {
		t.Fatal("unknown action accepted")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatal("invalid JSON accepted")
	}
}
