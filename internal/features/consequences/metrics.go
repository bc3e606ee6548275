package consequences

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_consequences_applied_total",
		Help: "Применённые последствия по тиру и результату (full/partial)",
	}, []string{"warhead", "result"})
	stepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_consequences_step_failures_total",
		Help: "Не применившиеся шаги последствий",
	}, []string{"step"})
	unknownWarheads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clanwar_consequences_unknown_warhead_total",
		Help: "Удары с неизвестным типом боеголовки",
	})
)
