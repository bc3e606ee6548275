// Package event — внутренняя шина событий. Модули публикуют факты
// («голосование завершено», «последствия применены»), подписчики
// (объявления в чате, авторизация запуска) реагируют на них.
// Глобальных колбэков нет: шину создаёт приложение и передаёт зависимостям.
package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// QueueSize — буфер канала одного подписчика.
const QueueSize = 64

// errQueueFull — подписчик не успевает разбирать события.
var errQueueFull = errors.New("очередь подписчика переполнена")

type Type string

const (
	// VoteResolved — голосование перешло из ACTIVE в терминальный статус. Data: votes.Outcome.
	VoteResolved Type = "vote.resolved"
	// ConsequenceApplied — последствия удара записаны. Data: consequences.Report.
	ConsequenceApplied Type = "consequence.applied"
)

type SubscriberID int

type HandlerFunc func(Event)

type Event struct {
	Type      Type
	Timestamp time.Time
	Data      any
}

func New(t Type, data any) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

type subscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func (s *subscriber) deliver(evt Event) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при доставке: %v", r)
		}
	}()
	select {
	case s.ch <- evt:
		return nil
	default:
		return errQueueFull
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus — шина событий. Нулевое значение не годится, используйте NewBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type]map[SubscriberID]*subscriber
	lastID      SubscriberID
	stopped     bool
	handlers    sync.WaitGroup
	metrics     *busMetrics
}

// NewBus создаёт шину. reg может быть nil — тогда метрики не регистрируются.
func NewBus(reg prometheus.Registerer) *Bus {
	b := &Bus{subscribers: make(map[Type]map[SubscriberID]*subscriber)}
	if reg != nil {
		b.metrics = newBusMetrics(reg)
	}
	return b
}

// Subscribe возвращает канал событий типа t. Канал закрывается при Unsubscribe или Stop.
func (b *Bus) Subscribe(t Type) (SubscriberID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, QueueSize)}
	if b.stopped {
		sub.close()
		return 0, sub.ch
	}
	b.lastID++
	id := b.lastID
	if _, ok := b.subscribers[t]; !ok {
		b.subscribers[t] = make(map[SubscriberID]*subscriber)
	}
	b.subscribers[t][id] = sub
	if b.metrics != nil {
		b.metrics.subscribers.WithLabelValues(string(t)).Inc()
	}
	return id, sub.ch
}

// SubscribeFunc вызывает fn для каждого события типа t в отдельной горутине.
// Паника в fn логируется и не убивает подписку.
func (b *Bus) SubscribeFunc(t Type, fn HandlerFunc) SubscriberID {
	id, ch := b.Subscribe(t)
	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		for evt := range ch {
			b.handle(fn, evt)
		}
	}()
	return id
}

func (b *Bus) handle(fn HandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"type":  evt.Type,
				"panic": r,
			}).Error("Паника в обработчике события")
			if b.metrics != nil {
				b.metrics.deliveryErrors.WithLabelValues(string(evt.Type)).Inc()
			}
		}
	}()
	fn(evt)
}

// Unsubscribe прекращает доставку и закрывает канал подписчика.
func (b *Bus) Unsubscribe(t Type, id SubscriberID) {
	b.mu.Lock()
	subs := b.subscribers[t]
	sub, ok := subs[id]
	if ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subscribers, t)
		}
		if b.metrics != nil {
			b.metrics.subscribers.WithLabelValues(string(t)).Dec()
		}
	}
	b.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Publish раскладывает событие по очередям подписчиков и никогда не ждёт их.
// Если очередь подписчика полна, событие для него отбрасывается и учитывается
// в метриках. Подписчик, на котором доставка упала иначе, отписывается.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		return
	}
	type item struct {
		id  SubscriberID
		sub *subscriber
	}
	subs := b.subscribers[evt.Type]
	list := make([]item, 0, len(subs))
	for id, sub := range subs {
		list = append(list, item{id, sub})
	}
	b.mu.RUnlock()

	for _, it := range list {
		err := it.sub.deliver(evt)
		if errors.Is(err, errQueueFull) {
			if b.metrics != nil {
				b.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
			}
			log.WithFields(log.Fields{
				"type":       evt.Type,
				"subscriber": it.id,
			}).Warn("Очередь подписчика переполнена, событие отброшено")
			continue
		}
		if err != nil {
			b.Unsubscribe(evt.Type, it.id)
			if b.metrics != nil {
				b.metrics.deliveryErrors.WithLabelValues(string(evt.Type)).Inc()
			}
			log.WithError(err).WithField("type", evt.Type).Warn("Ошибка доставки события")
		}
	}
	if b.metrics != nil {
		b.metrics.events.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop закрывает все подписки и ждёт завершения обработчиков SubscribeFunc.
// После Stop публикация ничего не делает.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	var all []*subscriber
	for t, subs := range b.subscribers {
		for _, sub := range subs {
			all = append(all, sub)
		}
		delete(b.subscribers, t)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	b.handlers.Wait()
}
