package models

import "time"

// CategoryStatus is the lifecycle status of a category
type CategoryStatus string

const (
	CategoryUpcoming   CategoryStatus = "upcoming"
	CategorySubmission CategoryStatus = "submission"
	CategoryVoting     CategoryStatus = "voting"
	CategoryClosed     CategoryStatus = "closed"
)

// Valid reports whether s is one of the known statuses
func (s CategoryStatus) Valid() bool {
	switch s {
	case CategoryUpcoming, CategorySubmission, CategoryVoting, CategoryClosed:
		return true
	}
	return false
}

// SubmissionStatus is the moderation status of a submission
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionApproved, SubmissionRejected:
		return true
	}
	return false
}

// VoteValue is a signed judgment: +1 (yes) or -1 (no)
type VoteValue int

const (
	VoteYes VoteValue = 1
	VoteNo  VoteValue = -1
)

// Valid reports whether v is +1 or -1
func (v VoteValue) Valid() bool {
	return v == VoteYes || v == VoteNo
}

// Category represents a themed competition with submission and voting windows
type Category struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Emoji           string         `json:"emoji"`
	Status          CategoryStatus `json:"status"`
	SubmissionStart time.Time      `json:"submission_start"`
	SubmissionEnd   time.Time      `json:"submission_end"`
	VotingStart     time.Time      `json:"voting_start"`
	VotingEnd       time.Time      `json:"voting_end"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Profile is the public face of a user
type Profile struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the display name or "Anonymous"
func (p *Profile) Name() string {
	if p == nil || p.DisplayName == nil || *p.DisplayName == "" {
		return "Anonymous"
	}
	return *p.DisplayName
}

// Submission is a photo entry in a category
type Submission struct {
	ID         string           `json:"id"`
	CategoryID string           `json:"category_id"`
	UserID     string           `json:"user_id"`
	PhotoURL   string           `json:"photo_url"`
	Caption    *string          `json:"caption"`
	Score      int              `json:"score"`
	Status     SubmissionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	Profile    *Profile         `json:"profiles,omitempty"`
}

// Vote is one user's judgment of one submission
type Vote struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	VoterID      string    `json:"voter_id"`
	Value        VoteValue `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

// Change event types
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent describes a row change delivered over the realtime channel
type ChangeEvent struct {
	Type       string      `json:"type"`
	Table      string      `json:"table"`
	CategoryID string      `json:"category_id"`
	Record     interface{} `json:"record,omitempty"`
}

// WebSocket message types
const (
	WSSubscribe      = "subscribe"
	WSUnsubscribe    = "unsubscribe"
	WSSubscribed     = "subscribed"
	WSChange         = "postgres_changes"
	WSCategoryStatus = "category_status"
	WSError          = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// LeaderboardTopic returns the realtime topic for a category's submissions
func LeaderboardTopic(categoryID string) string {
	return "leaderboard:" + categoryID
}

// CategoriesTopic carries category lifecycle changes
const CategoriesTopic = "categories"
