// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claritutor/claritutor/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the writer.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		education_level TEXT,
		primary_subjects TEXT,
		learning_style TEXT,
		study_goals TEXT,
		total_study_hours REAL DEFAULT 0,
		notes_created INTEGER DEFAULT 0,
		learning_streak_days INTEGER DEFAULT 0,
		account_type TEXT DEFAULT 'free',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		subject TEXT,
		persona_id TEXT NOT NULL,
		tags TEXT,
		summary TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);

	CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		duration INTEGER NOT NULL,
		session_type TEXT NOT NULL,
		focus_quality INTEGER,
		subject TEXT,
		notes TEXT,
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_study_sessions_user ON study_sessions(user_id, completed_at);

	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		badge_type TEXT NOT NULL,
		badge_tier TEXT NOT NULL,
		earned_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_achievements_user ON achievements(user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetProfile retrieves a user profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, full_name, email, education_level, primary_subjects,
		       learning_style, study_goals, total_study_hours, notes_created,
		       learning_streak_days, account_type, created_at, updated_at
		FROM profiles WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var p models.UserProfile
	var educationLevel, primarySubjects, learningStyle, studyGoals sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&p.UserID, &p.FullName, &p.Email, &educationLevel, &primarySubjects,
		&learningStyle, &studyGoals, &p.TotalStudyHours, &p.NotesCreated,
		&p.LearningStreakDays, &p.AccountType, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.ID = p.UserID
	p.EducationLevel = educationLevel.String
	p.LearningStyle = learningStyle.String
	p.StudyGoals = studyGoals.String
	if primarySubjects.String != "" {
		p.PrimarySubjects = strings.Split(primarySubjects.String, ",")
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

// UpsertProfile creates or updates a user profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now()
	query := `
		INSERT INTO profiles (user_id, full_name, email, education_level,
			primary_subjects, learning_style, study_goals, total_study_hours,
			notes_created, learning_streak_days, account_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			education_level = excluded.education_level,
			primary_subjects = excluded.primary_subjects,
			learning_style = excluded.learning_style,
			study_goals = excluded.study_goals,
			total_study_hours = excluded.total_study_hours,
			notes_created = excluded.notes_created,
			learning_streak_days = excluded.learning_streak_days,
			account_type = excluded.account_type,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		profile.UserID, profile.FullName, profile.Email, profile.EducationLevel,
		strings.Join(profile.PrimarySubjects, ","), profile.LearningStyle,
		profile.StudyGoals, profile.TotalStudyHours, profile.NotesCreated,
		profile.LearningStreakDays, profile.AccountType, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SaveConversation persists a conversation and replaces its message rows.
// Last-write-wins across tabs: whichever save lands last owns the row.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	tags, err := json.Marshal(conv.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, subject, persona_id, tags, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			subject = excluded.subject,
			persona_id = excluded.persona_id,
			tags = excluded.tags,
			summary = excluded.summary,
			updated_at = excluded.updated_at`,
		conv.ID, conv.UserID, conv.Title, conv.Subject, conv.PersonaID,
		string(tags), conv.Summary, conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("clear old messages: %w", err)
	}

	for i, msg := range conv.Messages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, i, msg.Role, msg.Content, msg.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetConversation retrieves a saved conversation with its ordered messages.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, subject, persona_id, tags, summary, created_at, updated_at
		FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	)

	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Timestamp = time.Unix(createdAt, 0)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	return conv, nil
}

// ListConversations lists a user's saved conversations, newest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, subject, persona_id, tags, summary, created_at, updated_at
		FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}

	return convs, nil
}

// DeleteConversation removes a saved conversation and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ? AND user_id = ?`, conversationID, userID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	return tx.Commit()
}

// LogStudySession records one completed timer work phase.
func (s *SQLiteStore) LogStudySession(ctx context.Context, log *models.StudySessionLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_sessions (id, user_id, duration, session_type, focus_quality, subject, notes, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.UserID, log.Duration, log.SessionType, log.FocusQuality,
		log.Subject, log.Notes, log.CompletedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert study session: %w", err)
	}
	return nil
}

// ListStudySessions lists a user's logged sessions, newest first.
func (s *SQLiteStore) ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySessionLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, duration, session_type, focus_quality, subject, notes, completed_at
		FROM study_sessions WHERE user_id = ? ORDER BY completed_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query study sessions: %w", err)
	}
	defer rows.Close()

	var logs []models.StudySessionLog
	for rows.Next() {
		var l models.StudySessionLog
		var subject, notes sql.NullString
		var completedAt int64
		if err := rows.Scan(&l.ID, &l.UserID, &l.Duration, &l.SessionType,
			&l.FocusQuality, &subject, &notes, &completedAt); err != nil {
			return nil, fmt.Errorf("scan study session row: %w", err)
		}
		l.Subject = subject.String
		l.Notes = notes.String
		l.CompletedAt = time.Unix(completedAt, 0)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study session rows: %w", err)
	}

	return logs, nil
}

// GrantAchievement records an earned badge.
func (s *SQLiteStore) GrantAchievement(ctx context.Context, a *models.Achievement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievements (id, user_id, badge_type, badge_tier, earned_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.BadgeType, a.BadgeTier, a.EarnedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert achievement: %w", err)
	}
	return nil
}

// ListAchievements lists a user's earned badges.
func (s *SQLiteStore) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, badge_type, badge_tier, earned_at
		FROM achievements WHERE user_id = ? ORDER BY earned_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		var a models.Achievement
		var earnedAt int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.BadgeType, &a.BadgeTier, &earnedAt); err != nil {
			return nil, fmt.Errorf("scan achievement row: %w", err)
		}
		a.EarnedAt = time.Unix(earnedAt, 0)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievement rows: %w", err)
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conv models.Conversation
	var subject, tags, summary sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &subject,
		&conv.PersonaID, &tags, &summary, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.Subject = subject.String
	conv.Summary = summary.String
	if tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &conv.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)

	return &conv, nil
}
