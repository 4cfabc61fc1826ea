// Package accesslog пишет запись о каждом запросе в лог и, если настроено, в Kafka.
package accesslog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration"`
	Service    string    `json:"service"`
}

// Sink принимает записи журнала.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// KafkaSink отправляет записи в топик Kafka в формате JSON.
type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			Async:        true,
			RequiredAcks: kafka.RequireOne,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Errorf("[accesslog] failed to write %d entries to Kafka: %v", len(messages), err)
				}
			},
		},
	}
}

func (s *KafkaSink) Write(ctx context.Context, entry Entry) error {
	jsonEntry, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	return s.w.WriteMessages(ctx, kafka.Message{Key: []byte(entry.RequestID), Value: jsonEntry})
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}

// Middleware журналирует запросы. sink может быть nil, тогда записи идут только в лог.
func Middleware(service string, sink Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := NewResponseLogger(w)
			defer func() {
				entry := Entry{
					Timestamp:  time.Now(),
					IP:         r.RemoteAddr,
					StatusCode: lw.Status(),
					RequestID:  middleware.GetReqID(r.Context()),
					Method:     r.Method,
					Path:       r.URL.Path,
					Duration:   time.Since(start).Seconds(),
					Service:    service,
				}
				log.WithFields(log.Fields{
					"request_id": entry.RequestID,
					"status":     entry.StatusCode,
					"duration":   entry.Duration,
				}).Debugf("%s %s", entry.Method, entry.Path)

				if sink == nil {
					return
				}
				if err := sink.Write(context.WithoutCancel(r.Context()), entry); err != nil {
					log.Errorf("[accesslog] failed to write log entry: %v", err)
				}
			}()

			next.ServeHTTP(lw, r)
		})
	}
}
