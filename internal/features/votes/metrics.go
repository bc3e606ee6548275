package votes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	proposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_votes_proposed_total",
		Help: "Созданные голосования по типам",
	}, []string{"type"})
	ballots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_votes_ballots_total",
		Help: "Принятые голоса",
	}, []string{"side"})
	resolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_votes_resolved_total",
		Help: "Завершённые голосования по итоговому статусу",
	}, []string{"status"})
	rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_votes_rejected_total",
		Help: "Отклонённые действия с голосованиями по причинам",
	}, []string{"reason"})
)
