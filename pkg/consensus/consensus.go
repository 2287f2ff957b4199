// Package consensus provides a client for the Consensus photo-voting API.
package consensus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
)

// LeaderboardLimit is the number of rows the ranked view requests
const LeaderboardLimit = 50

// Session is an authenticated user session
type Session struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        *models.Profile `json:"user"`
}

// ScoreUpdate is the result of the update_submission_score procedure
type ScoreUpdate struct {
	SubmissionID string `json:"id"`
	CategoryID   string `json:"category_id"`
	Score        int    `json:"score"`
}

// Upload is a photo to submit to a category
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
	Caption     string
}

// APIError is an error response from the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("consensus: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("consensus: %s: %s", e.Code, e.Message)
}

// Client defines the backend operations used by the app
type Client interface {
	// RequestCode emails a one-time sign-in code
	RequestCode(ctx context.Context, email string) error
	// VerifyCode exchanges a code for a session and keeps its access token
	VerifyCode(ctx context.Context, email, code string) (*Session, error)
	SetAccessToken(token string)
	AccessToken() string
	// Logout ends the current session
	Logout(ctx context.Context) error

	ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListEligibleSubmissions(ctx context.Context, categoryID string) ([]models.Submission, error)
	Leaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error)
	InsertVote(ctx context.Context, submissionID string, value models.VoteValue) (*models.Vote, error)
	UpdateSubmissionScore(ctx context.Context, submissionID string, delta int) (*ScoreUpdate, error)
	UploadSubmission(ctx context.Context, categoryID string, upload Upload) (*models.Submission, error)
	GetProfile(ctx context.Context) (*models.Profile, error)

	// Subscribe streams change events for topic until ctx is cancelled.
	// The channel is closed when the connection ends.
	Subscribe(ctx context.Context, topic string) (<-chan models.ChangeEvent, error)

	BaseURL() string
}

// HTTPClient talks to a Consensus server over HTTP and websockets
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	log        logger.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPClient creates a client. No request timeout is applied.
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(baseURL, &http.Client{}, log)
}

// NewHTTPClientWithHTTPClient creates a client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		dialer:     websocket.DefaultDialer,
		log:        log,
	}
}

// BaseURL returns the server base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetAccessToken sets the bearer token sent with every request
func (c *HTTPClient) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// AccessToken returns the current bearer token
func (c *HTTPClient) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// doJSON sends body as JSON (if non-nil) and decodes the response into out (if non-nil)
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("Consensus request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Consensus response", "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// RequestCode emails a one-time sign-in code
func (c *HTTPClient) RequestCode(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/v1/otp", map[string]string{"email": email}, nil)
}

// VerifyCode exchanges a code for a session and keeps its access token
func (c *HTTPClient) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	var session Session
	body := map[string]string{"email": email, "token": code}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/verify", body, &session); err != nil {
		return nil, err
	}
	c.SetAccessToken(session.AccessToken)
	return &session, nil
}

// Logout ends the current session and forgets the token
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil)
	c.SetAccessToken("")
	return err
}

// ListCategories lists categories, optionally only those open for submissions or voting
func (c *HTTPClient) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	path := "/rest/v1/categories"
	if activeOnly {
		path += "?active=true"
	}
	var cats []models.Category
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// GetCategory fetches one category
func (c *HTTPClient) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var cat models.Category
	if err := c.doJSON(ctx, http.MethodGet, "/rest/v1/categories/"+url.PathEscape(id), nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListEligibleSubmissions lists the approved entries of a category
func (c *HTTPClient) ListEligibleSubmissions(ctx context.Context, categoryID string) ([]models.Submission, error) {
	var subs []models.Submission
	path := "/rest/v1/categories/" + url.PathEscape(categoryID) + "/submissions"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Leaderboard returns the top entries of a category by score
func (c *HTTPClient) Leaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error) {
	path := "/rest/v1/categories/" + url.PathEscape(categoryID) + "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var rows []models.Submission
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertVote records a judgment on a submission
func (c *HTTPClient) InsertVote(ctx context.Context, submissionID string, value models.VoteValue) (*models.Vote, error) {
	body := map[string]interface{}{"submission_id": submissionID, "value": value}
	var vote models.Vote
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/votes", body, &vote); err != nil {
		return nil, err
	}
	return &vote, nil
}

// UpdateSubmissionScore applies a +1 or -1 delta to a submission's score
func (c *HTTPClient) UpdateSubmissionScore(ctx context.Context, submissionID string, delta int) (*ScoreUpdate, error) {
	body := map[string]interface{}{"p_submission_id": submissionID, "p_delta": delta}
	var update ScoreUpdate
	if err := c.doJSON(ctx, http.MethodPost, "/rest/v1/rpc/update_submission_score", body, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// UploadSubmission submits a photo with an optional caption
func (c *HTTPClient) UploadSubmission(ctx context.Context, categoryID string, upload Upload) (*models.Submission, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = "photo"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, filename))
	header.Set("Content-Type", upload.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(part, upload.Data); err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if upload.Caption != "" {
		if err := mw.WriteField("caption", upload.Caption); err != nil {
			return nil, fmt.Errorf("failed to write caption: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}

	path := "/rest/v1/categories/" + url.PathEscape(categoryID) + "/submissions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var sub models.Submission
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetProfile returns the signed-in user's profile
func (c *HTTPClient) GetProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/rest/v1/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// wireMessage is a realtime frame with its payload left undecoded
type wireMessage struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func (c *HTTPClient) realtimeURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime/v1"
}

// Subscribe streams change events for topic until ctx is cancelled
func (c *HTTPClient) Subscribe(ctx context.Context, topic string) (<-chan models.ChangeEvent, error) {
	header := http.Header{}
	if token := c.AccessToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.realtimeURL(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime: %w", err)
	}

	if err := conn.WriteJSON(models.WSMessage{Type: models.WSSubscribe, Topic: topic}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	var ack wireMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read subscription ack: %w", err)
	}
	if ack.Type != models.WSSubscribed {
		conn.Close()
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(ack.Payload, &payload)
		return nil, &APIError{Code: "SUBSCRIBE_FAILED", Message: payload.Message}
	}

	events := make(chan models.ChangeEvent)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)
		for {
			var msg wireMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					c.log.Debug("Realtime connection ended", "topic", topic, "error", err)
				}
				return
			}
			if msg.Type != models.WSChange && msg.Type != models.WSCategoryStatus {
				continue
			}
			var event models.ChangeEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				c.log.Warn("Ignoring malformed realtime event", "error", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
