package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/internal/models"
)

// timeLayout is fixed-width UTC so that TEXT columns sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository provides data access methods
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, now: time.Now}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SetClock overrides the time source used for created_at stamps
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand (sqlite3 shell, fixtures) may use RFC 3339
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			display_name TEXT,
			avatar_url TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			emoji TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'upcoming'
				CHECK (status IN ('upcoming', 'submission', 'voting', 'closed')),
			submission_start TEXT NOT NULL,
			submission_end TEXT NOT NULL,
			voting_start TEXT NOT NULL,
			voting_end TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			photo_url TEXT NOT NULL,
			caption TEXT,
			score INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'approved', 'rejected')),
			created_at TEXT NOT NULL,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE,
			UNIQUE(category_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			submission_id TEXT NOT NULL,
			voter_id TEXT NOT NULL,
			value INTEGER NOT NULL CHECK (value IN (1, -1)),
			created_at TEXT NOT NULL,
			FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE,
			FOREIGN KEY (voter_id) REFERENCES profiles(id) ON DELETE CASCADE,
			UNIQUE(submission_id, voter_id)
		)`,
		`CREATE TABLE IF NOT EXISTS otp_codes (
			email TEXT PRIMARY KEY,
			code_hash TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_status ON categories(status)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_category ON submissions(category_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_score ON submissions(category_id, score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_submission ON votes(submission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	// Insert default settings if not exists
	defaultSettings := map[string]string{
		"initial_submission_status": string(models.SubmissionApproved),
	}

	for key, value := range defaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// ==================== Category Methods ====================

const categoryColumns = `id, name, description, emoji, status,
	submission_start, submission_end, voting_start, voting_end, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var cat models.Category
	var status, subStart, subEnd, voteStart, voteEnd, createdAt string
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.Emoji, &status,
		&subStart, &subEnd, &voteStart, &voteEnd, &createdAt); err != nil {
		return nil, err
	}
	cat.Status = models.CategoryStatus(status)
	cat.SubmissionStart = parseTime(subStart)
	cat.SubmissionEnd = parseTime(subEnd)
	cat.VotingStart = parseTime(voteStart)
	cat.VotingEnd = parseTime(voteEnd)
	cat.CreatedAt = parseTime(createdAt)
	return &cat, nil
}

// ListCategories returns categories, newest first. An empty status returns all.
func (r *Repository) ListCategories(ctx context.Context, status models.CategoryStatus) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a category by ID
func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("category not found")
	}
	return cat, err
}

// CreateCategory inserts a category, assigning ID and created_at when unset
func (r *Repository) CreateCategory(ctx context.Context, cat *models.Category) error {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = r.now().UTC()
	}
	if cat.Status == "" {
		cat.Status = models.CategoryUpcoming
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cat.ID, cat.Name, cat.Description, cat.Emoji, string(cat.Status),
		formatTime(cat.SubmissionStart), formatTime(cat.SubmissionEnd),
		formatTime(cat.VotingStart), formatTime(cat.VotingEnd), formatTime(cat.CreatedAt))
	return translateWriteError(err, "category already exists", "category not found")
}

// UpdateCategoryStatus sets the lifecycle status of a category
func (r *Repository) UpdateCategoryStatus(ctx context.Context, id string, status models.CategoryStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE categories SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("category not found")
	}
	return nil
}

// ListCategoriesDueForTransition returns categories whose stored status lags
// behind a window boundary that has already passed
func (r *Repository) ListCategoriesDueForTransition(ctx context.Context, now time.Time) ([]models.Category, error) {
	ts := formatTime(now)
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE (status = 'upcoming' AND submission_start <= ?)
		   OR (status IN ('upcoming', 'submission') AND voting_start <= ?)
		   OR (status != 'closed' AND voting_end <= ?)
		ORDER BY submission_start, id`, ts, ts, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

// ==================== Submission Methods ====================

const submissionColumns = `s.id, s.category_id, s.user_id, s.photo_url, s.caption, s.score, s.status, s.created_at,
	p.id, p.display_name, p.avatar_url, p.created_at`

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var caption, profileID, displayName, avatarURL, profileCreated sql.NullString
	var status, createdAt string
	if err := row.Scan(&sub.ID, &sub.CategoryID, &sub.UserID, &sub.PhotoURL, &caption, &sub.Score,
		&status, &createdAt, &profileID, &displayName, &avatarURL, &profileCreated); err != nil {
		return nil, err
	}
	sub.Caption = nullableString(caption)
	sub.Status = models.SubmissionStatus(status)
	sub.CreatedAt = parseTime(createdAt)
	if profileID.Valid {
		sub.Profile = &models.Profile{
			ID:          profileID.String,
			DisplayName: nullableString(displayName),
			AvatarURL:   nullableString(avatarURL),
			CreatedAt:   parseTime(profileCreated.String),
		}
	}
	return &sub, nil
}

// ListSubmissions returns submissions joined to their owner's profile
func (r *Repository) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var where []string
	var args []any
	if filter.CategoryID != "" {
		where = append(where, "s.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.UserID != "" {
		where = append(where, "s.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions s LEFT JOIN profiles p ON p.id = s.user_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch filter.OrderBy {
	case OrderScore:
		query += " ORDER BY s.score DESC, s.created_at ASC, s.id ASC"
	default:
		query += " ORDER BY s.created_at ASC, s.id ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *sub)
	}
	return submissions, rows.Err()
}

// GetSubmission retrieves a submission by ID
func (r *Repository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+`
		FROM submissions s LEFT JOIN profiles p ON p.id = s.user_id
		WHERE s.id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("submission not found")
	}
	return sub, err
}

// CreateSubmission inserts a submission, assigning ID and created_at when unset
func (r *Repository) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, category_id, user_id, photo_url, caption, score, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.CategoryID, sub.UserID, sub.PhotoURL, sub.Caption, sub.Score,
		string(sub.Status), formatTime(sub.CreatedAt))
	return translateWriteError(err, "you already have an entry in this category", "category or user not found")
}

// SetSubmissionStatus changes the moderation status of a submission
func (r *Repository) SetSubmissionStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("submission not found")
	}
	return nil
}

// ListLeaderboard returns the approved submissions of a category ranked by
// score, oldest first among equal scores
func (r *Repository) ListLeaderboard(ctx context.Context, categoryID string, limit int) ([]models.Submission, error) {
	return r.ListSubmissions(ctx, SubmissionFilter{
		CategoryID: categoryID,
		Status:     models.SubmissionApproved,
		OrderBy:    OrderScore,
		Limit:      limit,
	})
}

// ApplyScoreDelta atomically adds delta to a submission's score
func (r *Repository) ApplyScoreDelta(ctx context.Context, id string, delta int) (*ScoreUpdate, error) {
	update := ScoreUpdate{SubmissionID: id}
	err := r.db.QueryRowContext(ctx, `
		UPDATE submissions SET score = score + ? WHERE id = ?
		RETURNING category_id, score
	`, delta, id).Scan(&update.CategoryID, &update.Score)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("submission not found")
	}
	if err != nil {
		return nil, err
	}
	return &update, nil
}

// ==================== Vote Methods ====================

// InsertVote records a vote. A second vote by the same voter on the same
// submission fails with a conflict.
func (r *Repository) InsertVote(ctx context.Context, vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (id, submission_id, voter_id, value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, vote.ID, vote.SubmissionID, vote.VoterID, int(vote.Value), formatTime(vote.CreatedAt))
	return translateWriteError(err, "you have already voted on this submission", "submission or voter not found")
}

// CountVotes returns the number of votes cast on a submission
func (r *Repository) CountVotes(ctx context.Context, submissionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE submission_id = ?`, submissionID).Scan(&count)
	return count, err
}

// SumVotes returns the sum of vote values on a submission
func (r *Repository) SumVotes(ctx context.Context, submissionID string) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(value), 0) FROM votes WHERE submission_id = ?`, submissionID).Scan(&sum)
	return sum, err
}

// ==================== Profile Methods ====================

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var displayName, avatarURL sql.NullString
	var createdAt string
	if err := row.Scan(&p.ID, &displayName, &avatarURL, &createdAt); err != nil {
		return nil, err
	}
	p.DisplayName = nullableString(displayName)
	p.AvatarURL = nullableString(avatarURL)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// UpsertProfileByEmail returns the profile for email, creating it on first sign-in
func (r *Repository) UpsertProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO profiles (id, email, created_at) VALUES (?, ?, ?)
	`, uuid.NewString(), email, formatTime(r.now()))
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT id, display_name, avatar_url, created_at FROM profiles WHERE email = ?`, email)
	return scanProfile(row)
}

// GetProfile retrieves a profile by ID
func (r *Repository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, display_name, avatar_url, created_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("profile not found")
	}
	return p, err
}

// UpdateProfile sets display name and avatar. Nil leaves a field unchanged.
func (r *Repository) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET display_name = COALESCE(?, display_name), avatar_url = COALESCE(?, avatar_url)
		WHERE id = ?
	`, displayName, avatarURL, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("profile not found")
	}
	return nil
}

// ==================== Auth Methods ====================

// SaveOTP stores a one-time code, replacing any previous code for the email
func (r *Repository) SaveOTP(ctx context.Context, rec OTPRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_codes (email, code_hash, expires_at, attempts) VALUES (?, ?, ?, 0)
		ON CONFLICT(email) DO UPDATE SET code_hash = excluded.code_hash, expires_at = excluded.expires_at, attempts = 0
	`, rec.Email, rec.CodeHash, formatTime(rec.ExpiresAt))
	return err
}

// GetOTP returns the pending code for an email
func (r *Repository) GetOTP(ctx context.Context, email string) (*OTPRecord, error) {
	var rec OTPRecord
	var expiresAt string
	err := r.db.QueryRowContext(ctx, `SELECT email, code_hash, expires_at, attempts FROM otp_codes WHERE email = ?`, email).
		Scan(&rec.Email, &rec.CodeHash, &expiresAt, &rec.Attempts)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.ExpiresAt = parseTime(expiresAt)
	return &rec, nil
}

// IncrementOTPAttempts counts a failed verification
func (r *Repository) IncrementOTPAttempts(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE email = ?`, email)
	return err
}

// DeleteOTP removes the pending code for an email
func (r *Repository) DeleteOTP(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE email = ?`, email)
	return err
}

// CreateSession stores a session keyed by the hash of its token
func (r *Repository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		rec.TokenHash, rec.UserID, formatTime(rec.ExpiresAt))
	return translateWriteError(err, "session already exists", "user not found")
}

// GetSession looks up a session by token hash
func (r *Repository) GetSession(ctx context.Context, tokenHash string) (*SessionRecord, error) {
	var rec SessionRecord
	var expiresAt string
	err := r.db.QueryRowContext(ctx, `SELECT token_hash, user_id, expires_at FROM sessions WHERE token_hash = ?`, tokenHash).
		Scan(&rec.TokenHash, &rec.UserID, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.ExpiresAt = parseTime(expiresAt)
	return &rec, nil
}

// DeleteSession removes a session
func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting updates or inserts a setting
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// GetStats returns row counts for the main tables
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"categories", &stats.Categories},
		{"submissions", &stats.Submissions},
		{"votes", &stats.Votes},
		{"profiles", &stats.Profiles},
	}
	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}
