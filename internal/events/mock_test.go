package events

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type declared struct {
	kind string
	name string
	args amqp.Table
}

type bind struct {
	queue, key, exchange string
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []declared
	binds      []bind
	published  []amqp.Publishing
	keys       []string
	publishErr error
	prefetch   int
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 16)}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, args amqp.Table) error {
	f.declared = append(f.declared, declared{kind: "exchange:" + kind, name: name, args: args})
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, declared{kind: "queue", name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.binds = append(f.binds, bind{queue: name, key: key, exchange: exchange})
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAck struct {
	mu  sync.Mutex
	got []settlement
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settlement{tag: tag, ack: true})
	return nil
}

func (a *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settlement{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]bool
	ttl  time.Duration
	err  error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: make(map[string]bool)} }

func (r *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return redis.NewBoolResult(false, r.err)
	}
	r.ttl = expiration
	if r.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	r.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func (r *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, k := range keys {
		if r.keys[k] {
			delete(r.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}
