package memory

import (
	"context"
	"sync"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var _ app.FeedRepository = (*FeedStore)(nil)

// FeedStore is an in-memory implementation of app.FeedRepository.
type FeedStore struct {
	mu    sync.Mutex
	feeds map[int64]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[int64]*app.Feed),
	}
}

func (s *FeedStore) Subscribe(_ context.Context, huntID int64, initial domain.Leaderboard) (<-chan domain.Leaderboard, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[huntID]
	if !ok {
		feed = app.NewFeed(huntID)
		s.feeds[huntID] = feed
	}
	ch, unsubscribe := feed.Subscribe(initial)
	cancel := func() {
		unsubscribe()
		s.release(huntID, feed)
	}
	return ch, cancel, nil
}

// release drops feed if it is still the registered one and has emptied.
func (s *FeedStore) release(huntID int64, feed *app.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds[huntID] == feed && feed.IsEmpty() {
		delete(s.feeds, huntID)
	}
}

func (s *FeedStore) Watched(_ context.Context, huntID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[huntID]
	return ok && !feed.IsEmpty()
}

func (s *FeedStore) Publish(_ context.Context, lb domain.Leaderboard) error {
	s.mu.Lock()
	feed, ok := s.feeds[lb.HuntID]
	s.mu.Unlock()
	if ok {
		feed.Publish(lb)
	}
	return nil
}
