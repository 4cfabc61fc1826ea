package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PostEvent - уведомление о новом посте.
type PostEvent struct {
	ID      int64     `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Group   string    `json:"group,omitempty"`
	Created time.Time `json:"created"`
}

// Observer хранит каналы подписчиков на новые посты.
type Observer struct {
	mu sync.RWMutex
	//   map[subscriberID] channel
	subs map[string]chan PostEvent
}

// NewObserver - конструктор наблюдателя.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[string]chan PostEvent),
	}
}

// Subscribe регистрирует подписчика. Канал закрывается, когда ctx завершен.
func (o *Observer) Subscribe(ctx context.Context) <-chan PostEvent {
	ch := make(chan PostEvent, 8)
	subID := uuid.NewString()

	o.mu.Lock()
	o.subs[subID] = ch
	o.mu.Unlock()
	subscribers.Inc()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		delete(o.subs, subID)
		close(ch)
		o.mu.Unlock()
		subscribers.Dec()
	}()

	return ch
}

// Publish рассылает событие, не блокируясь на медленных подписчиках.
func (o *Observer) Publish(ev PostEvent) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
			// Клиент не успевает читать, событие пропускается
		}
	}
}

func (o *Observer) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}
