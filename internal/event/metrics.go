package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type busMetrics struct {
	events         *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
	dropped        *prometheus.CounterVec
}

func newBusMetrics(reg prometheus.Registerer) *busMetrics {
	f := promauto.With(reg)
	return &busMetrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clanwar_events_published_total",
			Help: "Опубликованные события по типам",
		}, []string{"type"}),
		subscribers: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clanwar_event_subscribers",
			Help: "Текущее число подписчиков по типам",
		}, []string{"type"}),
		deliveryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clanwar_event_delivery_errors_total",
			Help: "Ошибки доставки и паники обработчиков",
		}, []string{"type"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clanwar_events_dropped_total",
			Help: "События, отброшенные из-за переполненной очереди подписчика",
		}, []string{"type"}),
	}
}
