package retaliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rightsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clanwar_retaliation_rights_granted_total",
		Help: "Выданные права на ответный удар",
	})
	rightsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clanwar_retaliation_rights_consumed_total",
		Help: "Израсходованные права на ответный удар",
	})
	rightsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clanwar_retaliation_rights_released_total",
		Help: "Права, возвращённые после несостоявшегося удара",
	})
)
