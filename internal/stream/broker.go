// Package stream は投稿イベントをServer-Sent Eventsで配信するブローカーを提供する。
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hitoshi/miniblog/internal/model"
)

// Event は配信されるSSEイベントを表す。
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// postEventPayload はpost.createdイベントのデータ部。
type postEventPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"imageUrl"`
	Tags      []string  `json:"tags"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Broker はSSEクライアント接続を管理し、イベントをブロードキャストする。
//
// 並行性モデル: 内部のイベントループ（単一goroutine）がクライアント集合を
// 所有する。公開メソッドはチャネル経由でループと通信するため、
// ミューテックスは不要。
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker はBrokerを生成し、イベントループを起動する。
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// バッファが満杯のクライアントはスキップし、ループをブロックしない。
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close はイベントループを停止し、全クライアントのチャネルを閉じる。
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe は新しいクライアントを登録し、そのチャネルを返す。
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe はクライアントを解除し、そのチャネルを閉じる。
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount は接続中のクライアント数を返す。
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish はイベントを全クライアントに送信する。
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishPostCreated は投稿作成イベントを配信する。
// 配信は追加通知であり、既存のクエリ結果の無効化は行わない。
func (b *Broker) PublishPostCreated(post *model.Post) {
	b.Publish(Event{
		Type: "post.created",
		Data: postEventPayload{
			ID:        post.ID,
			Title:     post.Title,
			ImageURL:  post.ImageURL,
			Tags:      post.Tags,
			CreatedBy: post.CreatedBy,
			CreatedAt: post.CreatedAt,
		},
	})
}

// PublishPostDeleted は投稿削除イベントを配信する。
func (b *Broker) PublishPostDeleted(postID string) {
	b.Publish(Event{
		Type: "post.deleted",
		Data: map[string]string{"id": postID},
	})
}

// ServeHTTP はSSEエンドポイント（GET /api/posts/stream）のハンドラ。
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
