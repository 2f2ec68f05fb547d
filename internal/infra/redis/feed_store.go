package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var _ app.FeedRepository = (*FeedStore)(nil)

// FeedStore fans leaderboard snapshots out over Redis pub/sub so a solve on
// one instance reaches viewers connected to any other. Subscribers stay in
// process; an instance listens on hunt:{huntID}:leaderboard only while it has
// local subscribers for that hunt.
type FeedStore struct {
	client *redis.Client
	logger *slog.Logger

	mu    sync.Mutex
	feeds map[int64]*watchedFeed
}

// watchedFeed pairs a local feed with the Redis subscription feeding it.
type watchedFeed struct {
	feed   *app.Feed
	pubsub *redis.PubSub
}

func NewFeedStore(client *redis.Client, logger *slog.Logger) *FeedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedStore{
		client: client,
		logger: logger,
		feeds:  make(map[int64]*watchedFeed),
	}
}

func (s *FeedStore) Subscribe(ctx context.Context, huntID int64, initial domain.Leaderboard) (<-chan domain.Leaderboard, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.feeds[huntID]
	if !ok {
		pubsub, err := s.listen(ctx, huntID)
		if err != nil {
			return nil, nil, err
		}
		w = &watchedFeed{feed: app.NewFeed(huntID), pubsub: pubsub}
		s.feeds[huntID] = w
		go s.forward(w.feed, pubsub.Channel())
	}
	ch, unsubscribe := w.feed.Subscribe(initial)
	cancel := func() {
		unsubscribe()
		s.release(huntID, w)
	}
	return ch, cancel, nil
}

func (s *FeedStore) listen(ctx context.Context, huntID int64) (*redis.PubSub, error) {
	channel := s.channel(huntID)
	pubsub := s.client.Subscribe(ctx, channel)
	// wait for the confirmation so the first publish is not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return pubsub, nil
}

func (s *FeedStore) release(huntID int64, w *watchedFeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds[huntID] != w || !w.feed.IsEmpty() {
		return
	}
	delete(s.feeds, huntID)
	if err := w.pubsub.Close(); err != nil {
		s.logger.Warn("leaderboard unsubscribe failed", "hunt_id", huntID, "err", err)
	}
}

// Watched asks Redis how many instances listen on the hunt's channel. If
// Redis cannot answer, only local subscribers are considered.
func (s *FeedStore) Watched(ctx context.Context, huntID int64) bool {
	channel := s.channel(huntID)
	counts, err := s.client.PubSubNumSub(ctx, channel).Result()
	if err == nil {
		return counts[channel] > 0
	}
	s.logger.Warn("leaderboard subscriber count failed", "hunt_id", huntID, "err", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.feeds[huntID]
	return ok && !w.feed.IsEmpty()
}

// Publish sends the snapshot through Redis. When Redis rejects it, local
// subscribers still get it and the error is returned.
func (s *FeedStore) Publish(ctx context.Context, lb domain.Leaderboard) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel(lb.HuntID), raw).Err(); err != nil {
		s.deliver(lb)
		return fmt.Errorf("publish leaderboard %d: %w", lb.HuntID, err)
	}
	return nil
}

func (s *FeedStore) forward(feed *app.Feed, messages <-chan *redis.Message) {
	for msg := range messages {
		var lb domain.Leaderboard
		if err := json.Unmarshal([]byte(msg.Payload), &lb); err != nil {
			s.logger.Warn("dropping malformed leaderboard message", "channel", msg.Channel, "err", err)
			continue
		}
		feed.Publish(lb)
	}
}

func (s *FeedStore) deliver(lb domain.Leaderboard) {
	s.mu.Lock()
	w, ok := s.feeds[lb.HuntID]
	s.mu.Unlock()
	if ok {
		w.feed.Publish(lb)
	}
}

// Close drops every Redis subscription. Local feeds stop receiving snapshots.
func (s *FeedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for huntID, w := range s.feeds {
		if err := w.pubsub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.feeds, huntID)
	}
	return firstErr
}

func (s *FeedStore) channel(huntID int64) string {
	return "hunt:" + strconv.FormatInt(huntID, 10) + ":leaderboard"
}
