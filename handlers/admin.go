// engforum/handlers/admin.go
package handlers

import (
	"database/sql"
	"engforum/config"
	"engforum/session"
	"net/http"
	"strings"
)

// HandleAdminPanel serves the moderation dashboard: every thread with
// its replies and violation state, every account, and summary counts.
func HandleAdminPanel(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAdminPanel")

	threads, err := app.DB().GetAllThreadsWithViolations()
	if err != nil {
		logger.Error("Failed to load threads for admin panel", "error", err)
		http.Error(w, "Database error loading admin panel.", http.StatusInternalServerError)
		return
	}
	users, err := app.DB().GetAllUsers()
	if err != nil {
		logger.Error("Failed to load users for admin panel", "error", err)
		http.Error(w, "Database error loading admin panel.", http.StatusInternalServerError)
		return
	}

	violatedThreads := 0
	violatedReplies := 0
	for _, t := range threads {
		if t.IsViolation {
			violatedThreads++
		}
		for _, rep := range t.Replies {
			if rep.IsViolation {
				violatedReplies++
			}
		}
	}

	render(w, r, app, "admin.html", map[string]interface{}{
		"Title":           "Admin Panel",
		"CurrentUser":     ActingUser(r),
		"Threads":         threads,
		"Users":           users,
		"TotalThreads":    len(threads),
		"ViolatedThreads": violatedThreads,
		"ViolatedReplies": violatedReplies,
		"TotalUsers":      len(users),
	})
}

// adminRedirect flashes the outcome of a moderation action and sends
// the admin back to the panel.
func adminRedirect(w http.ResponseWriter, r *http.Request, app App, kind, message string) {
	app.Sessions().AddFlash(w, r, kind, message)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleMarkViolation flags a thread as a rule violation, recording the
// reason and the acting moderator.
func HandleMarkViolation(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleMarkViolation")
	admin := ActingUser(r)

	threadID := r.FormValue("thread_id")
	reason := strings.TrimSpace(r.FormValue("violation_reason"))
	if len(reason) > config.MaxReasonLen {
		reason = reason[:config.MaxReasonLen]
	}

	if err := app.DB().MarkViolation(threadID, reason, admin.Username); err != nil {
		logger.Error("Failed to mark violation", "thread_id", threadID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to mark thread as violation.")
		return
	}
	logger.Info("Thread marked as violation", "thread_id", threadID, "moderator", admin.Username)
	adminRedirect(w, r, app, session.FlashSuccess, "Thread marked as violation successfully!")
}

// HandleRemoveViolation clears a thread's violation flag along with the
// recorded reason and moderator.
func HandleRemoveViolation(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRemoveViolation")

	threadID := r.FormValue("thread_id")
	if err := app.DB().ClearViolation(threadID); err != nil {
		logger.Error("Failed to remove violation", "thread_id", threadID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to remove violation.")
		return
	}
	adminRedirect(w, r, app, session.FlashSuccess, "Violation removed successfully!")
}

// HandleDeleteThread removes a thread and all of its replies.
func HandleDeleteThread(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDeleteThread")
	admin := ActingUser(r)

	threadID := r.FormValue("thread_id")
	if err := app.DB().DeleteThread(threadID); err != nil {
		logger.Error("Failed to delete thread", "thread_id", threadID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to delete thread.")
		return
	}
	logger.Info("Thread deleted", "thread_id", threadID, "moderator", admin.Username)
	adminRedirect(w, r, app, session.FlashSuccess, "Thread deleted successfully!")
}

// HandleMakeAdmin grants admin privileges to an account.
func HandleMakeAdmin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleMakeAdmin")

	userID := r.FormValue("user_id")
	user, err := app.DB().GetUserByID(userID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error("Failed to load user", "user_id", userID, "error", err)
		}
		adminRedirect(w, r, app, session.FlashError, "User not found.")
		return
	}
	if user.IsAdmin {
		adminRedirect(w, r, app, session.FlashError, "User is already an admin.")
		return
	}

	user.IsAdmin = true
	if err := app.DB().UpdateUser(user); err != nil {
		logger.Error("Failed to grant admin", "user_id", userID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to make user an admin.")
		return
	}
	logger.Info("Admin privileges granted", "username", user.Username, "by", ActingUser(r).Username)
	adminRedirect(w, r, app, session.FlashSuccess, user.Username+" is now an admin!")
}

// HandleRemoveAdmin revokes admin privileges. Admins cannot revoke
// their own.
func HandleRemoveAdmin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRemoveAdmin")
	admin := ActingUser(r)

	userID := r.FormValue("user_id")
	user, err := app.DB().GetUserByID(userID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error("Failed to load user", "user_id", userID, "error", err)
		}
		adminRedirect(w, r, app, session.FlashError, "User not found.")
		return
	}
	if !user.IsAdmin {
		adminRedirect(w, r, app, session.FlashError, "User is not an admin.")
		return
	}
	if user.Username == admin.Username {
		adminRedirect(w, r, app, session.FlashError, "You cannot remove your own admin privileges.")
		return
	}

	user.IsAdmin = false
	if err := app.DB().UpdateUser(user); err != nil {
		logger.Error("Failed to revoke admin", "user_id", userID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to remove admin privileges.")
		return
	}
	logger.Info("Admin privileges revoked", "username", user.Username, "by", admin.Username)
	adminRedirect(w, r, app, session.FlashSuccess, "Admin privileges removed from "+user.Username+".")
}

// HandleDeleteUser removes an account. Admins cannot delete their own.
func HandleDeleteUser(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDeleteUser")
	admin := ActingUser(r)

	userID := r.FormValue("user_id")
	user, err := app.DB().GetUserByID(userID)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error("Failed to load user", "user_id", userID, "error", err)
		}
		adminRedirect(w, r, app, session.FlashError, "User not found.")
		return
	}
	if user.Username == admin.Username {
		adminRedirect(w, r, app, session.FlashError, "You cannot delete your own account.")
		return
	}

	if err := app.DB().DeleteUser(userID); err != nil {
		logger.Error("Failed to delete user", "user_id", userID, "error", err)
		adminRedirect(w, r, app, session.FlashError, "Failed to delete user.")
		return
	}
	logger.Info("User deleted", "username", user.Username, "by", admin.Username)
	adminRedirect(w, r, app, session.FlashSuccess, "User "+user.Username+" has been deleted.")
}
