// engforum/handlers/handlers.go

package handlers

import (
	"database/sql"
	"engforum/config"
	"engforum/database"
	"engforum/models"
	"engforum/session"
	"engforum/utils"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Logger() *slog.Logger
	Mailer() models.MailService
	Sessions() *session.Manager
	RateLimiter() *models.RateLimiter
}

// MakeHandler adapts a handler function to http.HandlerFunc, injecting the App.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// currentUser resolves the acting account from the session's principal
// name. Returns nil for anonymous requests and for stale sessions whose
// account no longer exists.
func currentUser(r *http.Request, app App) *models.User {
	username, ok := app.Sessions().CurrentUsername(r)
	if !ok {
		return nil
	}
	user, err := app.DB().GetUserByUsername(username)
	if err != nil {
		if err != sql.ErrNoRows {
			app.Logger().Error("Failed to resolve session user", "username", username, "error", err)
		}
		return nil
	}
	return user
}

// HandleHome serves the homepage: the category table and recent threads.
func HandleHome(w http.ResponseWriter, r *http.Request, app App) {
	threads, err := app.DB().RecentThreads(20)
	if err != nil {
		app.Logger().Error("Failed to load recent threads", "error", err)
		http.Error(w, "Database error loading homepage.", http.StatusInternalServerError)
		return
	}

	render(w, r, app, "home.html", map[string]interface{}{
		"Title":   "Home",
		"Threads": threads,
	})
}

// HandleThread serves a single thread page with its replies.
func HandleThread(w http.ResponseWriter, r *http.Request, app App) {
	threadID := chi.URLParam(r, "threadID")
	thread, err := app.DB().GetThread(threadID)
	if err != nil {
		if err == sql.ErrNoRows {
			http.NotFound(w, r)
			return
		}
		app.Logger().Error("Failed to load thread", "thread_id", threadID, "error", err)
		http.Error(w, "Database error loading thread.", http.StatusInternalServerError)
		return
	}

	render(w, r, app, "thread.html", map[string]interface{}{
		"Title":  thread.Title,
		"Thread": thread,
	})
}

// HandleNewThread creates a thread from the homepage form.
func HandleNewThread(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleNewThread")

	user := currentUser(r, app)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !app.RateLimiter().GetLimiter(utils.GetIPAddress(r)).Allow() {
		app.Sessions().AddFlash(w, r, session.FlashError, "You are posting too fast. Please wait a moment.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	categoryID := r.FormValue("category_id")

	if title == "" || len(title) > config.MaxTitleLen || content == "" || len(content) > config.MaxContentLen {
		app.Sessions().AddFlash(w, r, session.FlashError, "A thread needs a title and content within the allowed length.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, ok := models.CategoryByID(categoryID); !ok {
		app.Sessions().AddFlash(w, r, session.FlashError, "Unknown category.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	thread := &models.Thread{
		ID:         uuid.New().String(),
		Author:     user.Username,
		CategoryID: categoryID,
		Title:      title,
		Content:    content,
		Created:    utils.GetSQLTime(),
	}
	if err := app.DB().CreateThread(thread); err != nil {
		logger.Error("Failed to create thread", "error", err)
		app.Sessions().AddFlash(w, r, session.FlashError, "Something went wrong creating your thread.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	logger.Info("New thread created", "thread_id", thread.ID, "author", user.Username)
	http.Redirect(w, r, "/thread/"+thread.ID, http.StatusSeeOther)
}

// HandleReply creates a reply on an existing thread.
func HandleReply(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleReply")

	user := currentUser(r, app)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	threadID := chi.URLParam(r, "threadID")
	if !app.RateLimiter().GetLimiter(utils.GetIPAddress(r)).Allow() {
		app.Sessions().AddFlash(w, r, session.FlashError, "You are posting too fast. Please wait a moment.")
		http.Redirect(w, r, "/thread/"+threadID, http.StatusSeeOther)
		return
	}

	content := strings.TrimSpace(r.FormValue("content"))
	if content == "" || len(content) > config.MaxContentLen {
		app.Sessions().AddFlash(w, r, session.FlashError, "A reply needs content within the allowed length.")
		http.Redirect(w, r, "/thread/"+threadID, http.StatusSeeOther)
		return
	}

	reply := &models.Reply{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Author:   user.Username,
		Content:  content,
		Created:  utils.GetSQLTime(),
	}
	if err := app.DB().CreateReply(reply); err != nil {
		logger.Error("Failed to create reply", "thread_id", threadID, "error", err)
		app.Sessions().AddFlash(w, r, session.FlashError, "Something went wrong posting your reply.")
		http.Redirect(w, r, "/thread/"+threadID, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/thread/"+threadID, http.StatusSeeOther)
}
