package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/cannasend/internal/provider/telnyx"
)

func TestTelnyxAdapterSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":{"id":"msg_abc","status":"queued","parts":2}}`))
	}))
	defer server.Close()

	client, err := telnyx.New(telnyx.Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	adapter := NewTelnyxAdapter(client)

	result, err := adapter.Send(context.Background(), SendRequest{
		From: "+15550001111",
		To:   "+15550002222",
		Body: "hello from a test",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.ProviderMessageID != "msg_abc" || result.Status != "queued" || result.Segments != 2 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestTelnyxAdapterSendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid recipient"}`))
	}))
	defer server.Close()

	client, err := telnyx.New(telnyx.Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	adapter := NewTelnyxAdapter(client)

	if _, err := adapter.Send(context.Background(), SendRequest{From: "+1", To: "+2", Body: "hi"}); err == nil {
		t.Fatalf("expected send error")
	}
}
