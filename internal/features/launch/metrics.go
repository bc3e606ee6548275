package launch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	strikes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_strikes_total",
		Help: "Исполненные удары по видам",
	}, []string{"kind"})
	denied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clanwar_strikes_denied_total",
		Help: "Отклонённые удары по видам",
	}, []string{"kind"})
)
