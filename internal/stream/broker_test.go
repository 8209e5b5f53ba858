package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/post"
)

func TestBroker_ImplementsEventPublisher(t *testing.T) {
	var _ post.EventPublisher = (*Broker)(nil)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishPostCreated_Delivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostCreated(&model.Post{
		ID:        "post-1",
		Title:     "My Post",
		ImageURL:  "https://example.com/a.png",
		Tags:      []string{"go", "web"},
		CreatedBy: "Taro",
		CreatedAt: time.Now(),
	})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: post.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"post-1"`) {
			t.Errorf("missing post ID in %q", s)
		}
		if !strings.Contains(s, `"createdBy":"Taro"`) {
			t.Errorf("missing createdBy in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishPostDeleted_Delivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostDeleted("post-1")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: post.deleted") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"post-1"`) {
			t.Errorf("missing post ID in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestServeHTTP_StreamsEvents(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/posts/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// ハンドラがsubscribeするのを待つ
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishPostDeleted("post-x")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: post.deleted") {
		t.Errorf("handler output missing event: %q", body)
	}

	// 切断後はクライアントが解除される
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// バッファ容量（64）を超えてもPublishはブロックしない
	for i := 0; i < 70; i++ {
		b.PublishPostDeleted("post-x")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Close後の操作は安全なno-op
	b.PublishPostDeleted("post-x")
	b.PublishPostCreated(&model.Post{ID: "post-y"})
}
