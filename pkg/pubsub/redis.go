package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type redisPubSub struct {
	client *redis.Client
	logger *logger.CanonicalLogger
}

func NewRedisPubSub(cfg RedisConfig, log *logger.CanonicalLogger) (PubSub, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.Info("redis client initialized", logger.String("addr", addr))

	return &redisPubSub{client: client, logger: log}, nil
}

// Publish publishes a message to a Redis channel
func (r *redisPubSub) Publish(ctx context.Context, channel string, message string) error {
	if err := r.client.Publish(ctx, channel, message).Err(); err != nil {
		r.logger.WithError(err).Error("failed to publish message to redis", logger.Channel(channel))
		return err
	}
	return nil
}

// Ping checks if Redis connection is healthy
func (r *redisPubSub) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Subscribe opens a dedicated redis subscription for channel.
func (r *redisPubSub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, channel)

	// wait for the subscribe confirmation so errors surface here
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		ps:     ps,
		out:    make(chan Message, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go sub.listen(listenCtx, r.logger)

	r.logger.Debug("subscribed to redis channel", logger.Channel(channel))
	return sub, nil
}

// Close closes the Redis connection
func (r *redisPubSub) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.WithError(err).Error("failed to close redis client")
		return err
	}
	return nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	out    chan Message
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSubscription) C() <-chan Message    { return s.out }
func (s *redisSubscription) Done() <-chan struct{} { return s.done }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) listen(ctx context.Context, log *logger.CanonicalLogger) {
	defer close(s.done)
	defer close(s.out)

	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				log.Info("redis pubsub channel closed")
				return
			}
			select {
			case s.out <- Message{Channel: m.Channel, Payload: m.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}
