package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var panics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "clanwar_bot_panics_total",
	Help: "Паники в обработчиках апдейтов",
})

// RecoverFromPanic вызывается через defer в начале обработки апдейта.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		panics.Inc()
		log.WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
