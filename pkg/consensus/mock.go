package consensus

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
)

// Call is one recorded mock invocation
type Call struct {
	Method string
	Args   []interface{}
}

// MockClient is an in-memory Client for testing. It is safe for
// concurrent use.
type MockClient struct {
	mu sync.Mutex

	baseURL     string
	token       string
	code        string
	categories  []models.Category
	submissions map[string][]models.Submission
	votes       []models.Vote
	profile     *models.Profile
	calls       []Call
	errs        map[string]error
	delay       time.Duration
	events      map[string]chan models.ChangeEvent
	nextID      int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithCategories sets the categories to return
func WithCategories(cats ...models.Category) MockOption {
	return func(m *MockClient) {
		m.categories = cats
	}
}

// WithSubmissions sets the entries of a category
func WithSubmissions(categoryID string, subs ...models.Submission) MockOption {
	return func(m *MockClient) {
		m.submissions[categoryID] = subs
	}
}

// WithCode sets the one-time code VerifyCode accepts
func WithCode(code string) MockOption {
	return func(m *MockClient) {
		m.code = code
	}
}

// WithError makes method return err
func WithError(method string, err error) MockOption {
	return func(m *MockClient) {
		m.errs[method] = err
	}
}

// WithDelay makes vote and score calls sleep before returning
func WithDelay(d time.Duration) MockOption {
	return func(m *MockClient) {
		m.delay = d
	}
}

// NewMockClient creates a new mock client
func NewMockClient(opts ...MockOption) *MockClient {
	name := "Mock User"
	m := &MockClient{
		baseURL:     "http://mock-consensus.local",
		code:        "12345678",
		submissions: make(map[string][]models.Submission),
		profile:     &models.Profile{ID: "user-1", DisplayName: &name},
		errs:        make(map[string]error),
		events:      make(map[string]chan models.ChangeEvent),
		nextID:      100,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetError makes method return err on subsequent calls. A nil err clears it.
func (m *MockClient) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, method)
		return
	}
	m.errs[method] = err
}

// record logs the call and returns the injected error for method, if any
func (m *MockClient) record(method string, args ...interface{}) error {
	m.calls = append(m.calls, Call{Method: method, Args: args})
	return m.errs[method]
}

// Calls returns the recorded invocations in order
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded invocations of method
func (m *MockClient) CallsTo(method string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Votes returns the votes recorded so far
func (m *MockClient) Votes() []models.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Vote, len(m.votes))
	copy(out, m.votes)
	return out
}

// Emit delivers event to the subscriber of topic, if any. It gives up
// after a second when nobody is reading.
func (m *MockClient) Emit(topic string, event models.ChangeEvent) {
	m.mu.Lock()
	ch := m.events[topic]
	m.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	case <-time.After(time.Second):
	}
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetAccessToken sets the current token
func (m *MockClient) SetAccessToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// AccessToken returns the current token
func (m *MockClient) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RequestCode records the request
func (m *MockClient) RequestCode(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("RequestCode", email)
}

// VerifyCode succeeds only for the configured code
func (m *MockClient) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("VerifyCode", email, code); err != nil {
		return nil, err
	}
	if code != m.code {
		return nil, &APIError{Status: 401, Code: "UNAUTHORIZED", Message: "Invalid or expired code"}
	}
	m.token = "token-" + email
	return &Session{AccessToken: m.token, ExpiresAt: time.Now().Add(time.Hour), User: m.profile}, nil
}

// Logout clears the token
func (m *MockClient) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return m.record("Logout")
}

// ListCategories returns the configured categories. Active means not closed.
func (m *MockClient) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListCategories", activeOnly); err != nil {
		return nil, err
	}
	var out []models.Category
	for _, c := range m.categories {
		if activeOnly && c.Status == models.CategoryClosed {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// GetCategory returns the configured category with id
func (m *MockClient) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetCategory", id); err != nil {
		return nil, err
	}
	for _, c := range m.categories {
		if c.ID == id {
			cat := c
			return &cat, nil
		}
	}
	return nil, &APIError{Status: 404, Code: "NOT_FOUND", Message: "category not found"}
}

// ListEligibleSubmissions returns the approved entries of a category
func (m *MockClient) ListEligibleSubmissions(ctx context.Context, categoryID string) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListEligibleSubmissions", categoryID); err != nil {
		return nil, err
	}
	var out []models.Submission
	for _, s := range m.submissions[categoryID] {
		if s.Status == models.SubmissionApproved {
			out = append(out, s)
		}
	}
	return out, nil
}

// Leaderboard returns the approved entries by descending score
func (m *MockClient) Leaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Leaderboard", categoryID, limit); err != nil {
		return nil, err
	}
	var out []models.Submission
	for _, s := range m.submissions[categoryID] {
		if s.Status == models.SubmissionApproved {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InsertVote records a vote
func (m *MockClient) InsertVote(ctx context.Context, submissionID string, value models.VoteValue) (*models.Vote, error) {
	m.sleep()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertVote", submissionID, value); err != nil {
		return nil, err
	}
	m.nextID++
	vote := models.Vote{
		ID:           fmt.Sprintf("vote-%d", m.nextID),
		SubmissionID: submissionID,
		VoterID:      m.profile.ID,
		Value:        value,
		CreatedAt:    time.Now(),
	}
	m.votes = append(m.votes, vote)
	return &vote, nil
}

// UpdateSubmissionScore applies delta to the stored entry
func (m *MockClient) UpdateSubmissionScore(ctx context.Context, submissionID string, delta int) (*ScoreUpdate, error) {
	m.sleep()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateSubmissionScore", submissionID, delta); err != nil {
		return nil, err
	}
	for catID, subs := range m.submissions {
		for i := range subs {
			if subs[i].ID == submissionID {
				subs[i].Score += delta
				return &ScoreUpdate{SubmissionID: submissionID, CategoryID: catID, Score: subs[i].Score}, nil
			}
		}
	}
	return nil, &APIError{Status: 404, Code: "NOT_FOUND", Message: "submission not found"}
}

// UploadSubmission stores a new entry
func (m *MockClient) UploadSubmission(ctx context.Context, categoryID string, upload Upload) (*models.Submission, error) {
	if upload.Data != nil {
		if _, err := io.Copy(io.Discard, upload.Data); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UploadSubmission", categoryID, upload.Caption); err != nil {
		return nil, err
	}
	m.nextID++
	sub := models.Submission{
		ID:         fmt.Sprintf("sub-%d", m.nextID),
		CategoryID: categoryID,
		UserID:     m.profile.ID,
		PhotoURL:   m.baseURL + "/storage/v1/object/public/photos/" + categoryID,
		Status:     models.SubmissionApproved,
		CreatedAt:  time.Now(),
	}
	if upload.Caption != "" {
		caption := upload.Caption
		sub.Caption = &caption
	}
	m.submissions[categoryID] = append(m.submissions[categoryID], sub)
	return &sub, nil
}

// GetProfile returns the mock profile
func (m *MockClient) GetProfile(ctx context.Context) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetProfile"); err != nil {
		return nil, err
	}
	p := *m.profile
	return &p, nil
}

// Subscribe returns a channel fed by Emit. It is closed when ctx is cancelled.
func (m *MockClient) Subscribe(ctx context.Context, topic string) (<-chan models.ChangeEvent, error) {
	m.mu.Lock()
	if err := m.record("Subscribe", topic); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	in := make(chan models.ChangeEvent)
	m.events[topic] = in
	m.mu.Unlock()

	out := make(chan models.ChangeEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				m.mu.Lock()
				if m.events[topic] == in {
					delete(m.events, topic)
				}
				m.mu.Unlock()
				return
			case ev := <-in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *MockClient) sleep() {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
