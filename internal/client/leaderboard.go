package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Row is one ranked leaderboard line
type Row struct {
	Rank       int
	Medal      string
	Submission models.Submission
}

// Name is the entrant's display name
func (r Row) Name() string {
	return r.Submission.Profile.Name()
}

// ScoreLabel is the signed score
func (r Row) ScoreLabel() string {
	return ScoreLabel(r.Submission.Score)
}

// MedalFor returns the medal for a 0-based rank, or "#n" past third place
func MedalFor(index int) string {
	if index < len(medals) {
		return medals[index]
	}
	return fmt.Sprintf("#%d", index+1)
}

// ScoreLabel renders a score with its sign, "+5" or "-2"
func ScoreLabel(score int) string {
	if score >= 0 {
		return fmt.Sprintf("+%d", score)
	}
	return fmt.Sprintf("%d", score)
}

// LeaderboardView keeps a category's ranking current
type LeaderboardView struct {
	client     consensus.Client
	log        logger.Logger
	categoryID string

	mu   sync.Mutex
	rows []Row
}

// NewLeaderboardView creates an empty view
func NewLeaderboardView(client consensus.Client, log logger.Logger, categoryID string) *LeaderboardView {
	return &LeaderboardView{
		client:     client,
		log:        log.With("category_id", categoryID),
		categoryID: categoryID,
	}
}

// Refresh refetches the full ranking
func (l *LeaderboardView) Refresh(ctx context.Context) error {
	subs, err := l.client.Leaderboard(ctx, l.categoryID, consensus.LeaderboardLimit)
	if err != nil {
		return err
	}
	rows := make([]Row, len(subs))
	for i, s := range subs {
		rows[i] = Row{Rank: i + 1, Medal: MedalFor(i), Submission: s}
	}

	l.mu.Lock()
	l.rows = rows
	l.mu.Unlock()
	return nil
}

// Rows returns the last fetched ranking
func (l *LeaderboardView) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Watch subscribes to the category's changes and refetches on each one,
// calling onChange with the new ranking. It returns once subscribed; the
// returned channel is closed when ctx ends or the connection drops.
func (l *LeaderboardView) Watch(ctx context.Context, onChange func([]Row)) (<-chan struct{}, error) {
	events, err := l.client.Subscribe(ctx, models.LeaderboardTopic(l.categoryID))
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range events {
			if err := l.Refresh(ctx); err != nil {
				if ctx.Err() == nil {
					l.log.Warn("Leaderboard refresh failed", "error", err)
				}
				continue
			}
			if onChange != nil {
				onChange(l.Rows())
			}
		}
	}()
	return done, nil
}
