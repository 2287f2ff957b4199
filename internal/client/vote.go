package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

// VoteState is the state of a voting session
type VoteState int

const (
	VoteLoading VoteState = iota
	VotePresenting
	VoteExhausted
)

func (s VoteState) String() string {
	switch s {
	case VotePresenting:
		return "presenting"
	case VoteExhausted:
		return "exhausted"
	default:
		return "loading"
	}
}

// VoteSession presents a category's approved entries one at a time in a
// random order fixed for the session. Each decision sends the vote and
// then the score change in the background; the next card shows without
// waiting and failures are only logged.
type VoteSession struct {
	client     consensus.Client
	log        logger.Logger
	categoryID string
	rng        *rand.Rand
	card       *Card

	mu      sync.Mutex
	state   VoteState
	entries []models.Submission
	index   int
	votes   int
	ctx     context.Context

	pending sync.WaitGroup
}

// NewVoteSession creates a session in the loading state. A nil rng uses a
// time-seeded source.
func NewVoteSession(client consensus.Client, log logger.Logger, categoryID string, cardWidth float64, rng *rand.Rand) *VoteSession {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &VoteSession{
		client:     client,
		log:        log.With("category_id", categoryID),
		categoryID: categoryID,
		rng:        rng,
		card:       NewCard(cardWidth),
		ctx:        context.Background(),
	}
}

// Load fetches the eligible entries and shuffles them once. A failed fetch
// ends the session with nothing to show.
func (v *VoteSession) Load(ctx context.Context) error {
	entries, err := v.client.ListEligibleSubmissions(ctx, v.categoryID)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctx = context.WithoutCancel(ctx)
	if err != nil {
		v.state = VoteExhausted
		return err
	}
	v.entries = Shuffle(v.rng, entries)
	v.index = 0
	if len(v.entries) == 0 {
		v.state = VoteExhausted
	} else {
		v.state = VotePresenting
	}
	return nil
}

// Shuffle returns a uniformly random permutation of subs (Fisher–Yates).
// The input is not modified.
func Shuffle(rng *rand.Rand, subs []models.Submission) []models.Submission {
	out := make([]models.Submission, len(subs))
	copy(out, subs)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// State returns the session state
func (v *VoteSession) State() VoteState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Card returns the front card
func (v *VoteSession) Card() *Card { return v.card }

// Current returns the entry being judged
func (v *VoteSession) Current() (models.Submission, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VotePresenting {
		return models.Submission{}, false
	}
	return v.entries[v.index], true
}

// Next returns the entry shown behind the current one
func (v *VoteSession) Next() (models.Submission, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VotePresenting || v.index+1 >= len(v.entries) {
		return models.Submission{}, false
	}
	return v.entries[v.index+1], true
}

// Position returns the 1-based position of the current entry and the total.
// The position is 0 when no entry is being presented.
func (v *VoteSession) Position() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VotePresenting {
		return 0, len(v.entries)
	}
	return v.index + 1, len(v.entries)
}

// VoteCount returns the number of decisions made this session
func (v *VoteSession) VoteCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.votes
}

// Order returns the shuffled entry IDs
func (v *VoteSession) Order() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, len(v.entries))
	for i, s := range v.entries {
		ids[i] = s.ID
	}
	return ids
}

func (v *VoteSession) presenting() bool {
	return v.State() == VotePresenting
}

// PointerDown starts dragging the current card
func (v *VoteSession) PointerDown() {
	if v.presenting() {
		v.card.PointerDown()
	}
}

// PointerMove drags the current card
func (v *VoteSession) PointerMove(dx, dy float64) {
	if v.presenting() {
		v.card.PointerMove(dx, dy)
	}
}

// PointerUp releases the current card
func (v *VoteSession) PointerUp() {
	if v.presenting() {
		v.card.PointerUp()
	}
}

// Accept votes yes on the current card
func (v *VoteSession) Accept() {
	if v.presenting() {
		v.card.Accept()
	}
}

// Reject votes no on the current card
func (v *VoteSession) Reject() {
	if v.presenting() {
		v.card.Reject()
	}
}

// Advance drives the card animation. When a decision completes, the vote
// is sent and the session moves to the next entry.
func (v *VoteSession) Advance(dt time.Duration) {
	if !v.presenting() {
		return
	}
	value, decided := v.card.Advance(dt)
	if !decided {
		return
	}

	v.mu.Lock()
	sub := v.entries[v.index]
	ctx := v.ctx
	v.index++
	v.votes++
	if v.index >= len(v.entries) {
		v.state = VoteExhausted
	}
	v.mu.Unlock()

	v.pending.Add(1)
	go v.record(ctx, sub.ID, value)
}

// record sends the vote, then the score change. Each call is independent:
// a failed vote insert does not stop the score change.
func (v *VoteSession) record(ctx context.Context, submissionID string, value models.VoteValue) {
	defer v.pending.Done()

	if _, err := v.client.InsertVote(ctx, submissionID, value); err != nil {
		v.log.Warn("Vote not recorded", "submission_id", submissionID, "error", err)
	}
	if _, err := v.client.UpdateSubmissionScore(ctx, submissionID, int(value)); err != nil {
		v.log.Warn("Score not updated", "submission_id", submissionID, "error", err)
	}
}

// Wait blocks until every background vote has finished
func (v *VoteSession) Wait() {
	v.pending.Wait()
}
