// Package redisx provides the cross-process upload lock.
package redisx

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/EgorLis/event-gallery/internal/domain"
)

type Config struct {
	Addr     string
	DB       int
	Password string
	// TTL bounds how long a crashed holder keeps a session locked. A live
	// holder extends it every TTL/3.
	TTL time.Duration
	// Wait bounds how long Lock polls before giving up with ErrBusy.
	Wait time.Duration
}

type Cache struct {
	rdb    *redis.Client
	logger *log.Logger
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// unlockScript deletes the key only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only while the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func New(cfg Config, logger *log.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 30 * time.Second
	}
	return &Cache{rdb: rdb, logger: logger, ttl: cfg.TTL, wait: cfg.Wait, poll: 50 * time.Millisecond}
}

func (c *Cache) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.logger.Printf("PING failed: %v", err)
	}
	return err
}

func (c *Cache) Close() {
	if c.rdb == nil {
		c.logger.Println("nothing to close")
		return
	}

	if err := c.rdb.Close(); err != nil {
		c.logger.Printf("error while closing: %v", err)
		return
	}

	c.logger.Println("closed")
}

// SetNX sets the value only when the key does not exist yet.
func (c *Cache) SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, val, ttl).Result()
	if err != nil {
		c.logger.Printf("SETNX %q failed: %v", key, err)
	} else if ok {
		c.logger.Printf("SETNX %q ok (ttl=%s)", key, ttl)
	}
	return ok, err
}

// Lock polls SETNX on key until it wins or the wait runs out. The lock is kept
// alive until the returned release func is called; calling it more than once
// is harmless.
func (c *Cache) Lock(ctx context.Context, key string) (func(), error) {
	key = "gallery:lock:" + key
	token := uuid.NewString()

	deadline := time.NewTimer(c.wait)
	defer deadline.Stop()
	tick := time.NewTicker(c.poll)
	defer tick.Stop()

	for {
		ok, err := c.SetNX(ctx, key, token, c.ttl)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w: %v", key, domain.ErrUnexpected, err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go c.keepAlive(key, token, stop, done)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					c.unlock(key, token)
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			c.logger.Printf("lock %q: gave up after %s", key, c.wait)
			return nil, fmt.Errorf("lock %s: %w", key, domain.ErrBusy)
		case <-tick.C:
		}
	}
}

func (c *Cache) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(c.ttl / 3)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.ttl/3)
		n, err := extendScript.Run(ctx, c.rdb, []string{key}, token, c.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			c.logger.Printf("extend %q failed: %v", key, err)
		case n == 0:
			c.logger.Printf("extend %q: lock lost", key)
			return
		}
	}
}

func (c *Cache) unlock(key, token string) {
	// releases must survive a cancelled request context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int()
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Printf("unlock %q failed: %v", key, err)
	case n == 0:
		c.logger.Printf("unlock %q: lock already expired or taken over", key)
	}
}
