// engforum/database/database.go
package database

import (
	"database/sql"
	"engforum/models"
	"engforum/utils"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB     *sql.DB
	logger *slog.Logger
}

// InitDB connects to the database and runs migrations.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	// Run versioned migrations
	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Info("Database initialized.")

	return &DatabaseService{
		DB:     db,
		logger: logger,
	}, nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version > latestVersion {
			logger.Info("Applying migration", "version", m.Version)
			tx, err := db.Begin()
			if err != nil {
				return err
			}

			if _, err := tx.Exec(m.Query); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
			}
			logger.Info("Successfully applied migration", "version", m.Version)
		}
	}
	return nil
}

// --- User Store ---

const userColumns = "id, username, email, password_hash, is_admin, major, created"

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.Major, &u.Created)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a single user by exact username.
// Returns sql.ErrNoRows if no such user exists.
func (ds *DatabaseService) GetUserByUsername(username string) (*models.User, error) {
	return scanUser(ds.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// GetUserByID fetches a single user by ID.
func (ds *DatabaseService) GetUserByID(id string) (*models.User, error) {
	return scanUser(ds.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// UserExists reports whether an account with the exact username exists.
func (ds *DatabaseService) UserExists(username string) (bool, error) {
	var count int
	err := ds.DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountUsers returns the total number of registered accounts.
func (ds *DatabaseService) CountUsers() (int, error) {
	var count int
	err := ds.DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetAllUsers returns every account, oldest first.
func (ds *DatabaseService) GetAllUsers() ([]models.User, error) {
	rows, err := ds.DB.Query("SELECT " + userColumns + " FROM users ORDER BY created, username")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetAllUsers", "error", err)
		}
	}()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.Major, &u.Created); err != nil {
			ds.logger.Error("Failed to scan user row", "error", err)
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser inserts a new account. The username uniqueness constraint
// is enforced here, not by the caller.
func (ds *DatabaseService) CreateUser(u *models.User) error {
	_, err := ds.DB.Exec("INSERT INTO users (id, username, email, password_hash, is_admin, major, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.Major, u.Created)
	if err != nil {
		return fmt.Errorf("failed to insert user '%s': %w", u.Username, err)
	}
	return nil
}

// UpdateUser persists mutable account fields.
func (ds *DatabaseService) UpdateUser(u *models.User) error {
	res, err := ds.DB.Exec("UPDATE users SET email = ?, password_hash = ?, is_admin = ?, major = ? WHERE id = ?",
		u.Email, u.PasswordHash, u.IsAdmin, u.Major, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user '%s': %w", u.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user '%s' not found", u.ID)
	}
	return nil
}

// DeleteUser removes an account. Threads and replies keep the author
// name; content is not orphan-collected on account deletion.
func (ds *DatabaseService) DeleteUser(id string) error {
	res, err := ds.DB.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user '%s': %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user '%s' not found", id)
	}
	return nil
}

// --- Forum Store ---

// CreateThread inserts a new thread.
func (ds *DatabaseService) CreateThread(t *models.Thread) error {
	_, err := ds.DB.Exec("INSERT INTO threads (id, author, category_id, title, content, created) VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, t.Author, t.CategoryID, t.Title, t.Content, t.Created)
	if err != nil {
		return fmt.Errorf("failed to insert thread: %w", err)
	}
	return nil
}

// CreateReply inserts a new reply on an existing thread.
func (ds *DatabaseService) CreateReply(rp *models.Reply) error {
	var count int
	if err := ds.DB.QueryRow("SELECT COUNT(*) FROM threads WHERE id = ?", rp.ThreadID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("thread '%s' not found", rp.ThreadID)
	}
	_, err := ds.DB.Exec("INSERT INTO replies (id, thread_id, author, content, created) VALUES (?, ?, ?, ?, ?)",
		rp.ID, rp.ThreadID, rp.Author, rp.Content, rp.Created)
	if err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}
	return nil
}

const threadColumns = "id, author, category_id, title, content, is_violation, violation_reason, violation_by, created"

// GetThread fetches a single thread with all of its replies.
func (ds *DatabaseService) GetThread(id string) (*models.Thread, error) {
	var t models.Thread
	err := ds.DB.QueryRow("SELECT "+threadColumns+" FROM threads WHERE id = ?", id).Scan(
		&t.ID, &t.Author, &t.CategoryID, &t.Title, &t.Content, &t.IsViolation, &t.ViolationReason, &t.ViolationBy, &t.Created)
	if err != nil {
		return nil, err
	}

	rows, err := ds.DB.Query("SELECT id, thread_id, author, content, is_violation, created FROM replies WHERE thread_id = ? ORDER BY created, id", id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetThread", "error", err)
		}
	}()

	for rows.Next() {
		var rp models.Reply
		if err := rows.Scan(&rp.ID, &rp.ThreadID, &rp.Author, &rp.Content, &rp.IsViolation, &rp.Created); err != nil {
			ds.logger.Error("Failed to scan reply row", "error", err)
			continue
		}
		t.Replies = append(t.Replies, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAllThreadsWithViolations returns every thread, newest first, each
// decorated with its violation status and replies. This backs the
// admin panel's aggregate view.
func (ds *DatabaseService) GetAllThreadsWithViolations() ([]models.Thread, error) {
	rows, err := ds.DB.Query("SELECT " + threadColumns + " FROM threads ORDER BY created DESC, id")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetAllThreadsWithViolations", "error", err)
		}
	}()

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.Author, &t.CategoryID, &t.Title, &t.Content, &t.IsViolation, &t.ViolationReason, &t.ViolationBy, &t.Created); err != nil {
			ds.logger.Error("Failed to scan thread row", "error", err)
			continue
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return threads, nil
	}

	threadMap := make(map[string]*models.Thread, len(threads))
	for i := range threads {
		threadMap[threads[i].ID] = &threads[i]
	}
	ds.fetchAndAssignReplies(threadMap)

	return threads, nil
}

// RecentThreads returns the newest threads for the home page, without
// their replies.
func (ds *DatabaseService) RecentThreads(limit int) ([]models.Thread, error) {
	rows, err := ds.DB.Query("SELECT "+threadColumns+" FROM threads ORDER BY created DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in RecentThreads", "error", err)
		}
	}()

	var threads []models.Thread
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.Author, &t.CategoryID, &t.Title, &t.Content, &t.IsViolation, &t.ViolationReason, &t.ViolationBy, &t.Created); err != nil {
			ds.logger.Error("Failed to scan thread row", "error", err)
			continue
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return threads, nil
}

// MarkViolation flags a thread as a policy violation, recording the
// reason and the moderator who applied it.
func (ds *DatabaseService) MarkViolation(threadID, reason, moderator string) error {
	res, err := ds.DB.Exec("UPDATE threads SET is_violation = 1, violation_reason = ?, violation_by = ? WHERE id = ?",
		reason, moderator, threadID)
	if err != nil {
		return fmt.Errorf("failed to mark violation on thread '%s': %w", threadID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("thread '%s' not found", threadID)
	}
	return nil
}

// ClearViolation removes the violation flag from a thread. The reason
// and moderator columns are nulled in the same statement so a reason
// can never outlive the flag.
func (ds *DatabaseService) ClearViolation(threadID string) error {
	res, err := ds.DB.Exec("UPDATE threads SET is_violation = 0, violation_reason = NULL, violation_by = NULL WHERE id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to clear violation on thread '%s': %w", threadID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("thread '%s' not found", threadID)
	}
	return nil
}

// DeleteThread removes a thread and all of its replies.
func (ds *DatabaseService) DeleteThread(threadID string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in DeleteThread", "error", rerr)
		}
	}()

	if _, err := tx.Exec("DELETE FROM replies WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to delete replies for thread '%s': %w", threadID, err)
	}
	res, err := tx.Exec("DELETE FROM threads WHERE id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread '%s': %w", threadID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("thread '%s' not found", threadID)
	}
	return tx.Commit()
}

// --- Internal Helpers ---

func (ds *DatabaseService) fetchAndAssignReplies(threadMap map[string]*models.Thread) {
	if len(threadMap) == 0 {
		return
	}
	rows, err := ds.DB.Query("SELECT id, thread_id, author, content, is_violation, created FROM replies ORDER BY created, id")
	if err != nil {
		ds.logger.Error("Failed to fetch replies for admin view", "error", err)
		return
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in fetchAndAssignReplies", "error", err)
		}
	}()

	for rows.Next() {
		var rp models.Reply
		if err := rows.Scan(&rp.ID, &rp.ThreadID, &rp.Author, &rp.Content, &rp.IsViolation, &rp.Created); err != nil {
			ds.logger.Error("Failed to scan reply row", "error", err)
			continue
		}
		if thread, ok := threadMap[rp.ThreadID]; ok {
			thread.Replies = append(thread.Replies, rp)
		}
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error during reply scan", "error", err)
	}
}
