// engforum/handlers/auth.go
package handlers

import (
	"database/sql"
	"engforum/config"
	"engforum/models"
	"engforum/session"
	"engforum/utils"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validateRegistration checks the structural rules for a registration
// form. Returns an empty string when the input is acceptable.
func validateRegistration(in models.RegisterInput) string {
	if len(in.Username) < config.MinUsernameLen || len(in.Username) > config.MaxUsernameLen || !usernameRe.MatchString(in.Username) {
		return "Username must be 3-30 characters using letters, numbers, and underscores."
	}
	if !strings.Contains(in.Email, "@") || !strings.Contains(in.Email, ".") {
		return "Please enter a valid email address."
	}
	if len(in.Password) < config.MinPasswordLen {
		return "Password must be at least 6 characters."
	}
	if in.Major == "" || len(in.Major) > config.MaxMajorLen {
		return "Please enter your major."
	}
	return ""
}

// HandleRegisterForm serves the registration page.
func HandleRegisterForm(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "register.html", map[string]interface{}{
		"Title": "Register",
		"Input": models.RegisterInput{},
	})
}

// HandleRegister processes a registration attempt. Gates run in order:
// structural validation, username uniqueness, account creation. The
// very first account ever created is promoted to admin. The welcome
// email is best-effort and can never fail the registration.
func HandleRegister(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRegister")

	input := models.RegisterInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
		Major:    strings.TrimSpace(r.FormValue("major")),
	}

	if !app.RateLimiter().GetLimiter(utils.GetIPAddress(r)).Allow() {
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": "Too many attempts. Please wait a moment and try again.",
		})
		return
	}

	if msg := validateRegistration(input); msg != "" {
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": msg,
		})
		return
	}

	exists, err := app.DB().UserExists(input.Username)
	if err != nil {
		logger.Error("Failed to check username availability", "username", input.Username, "error", err)
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": "Something went wrong. Please try again!",
		})
		return
	}
	if exists {
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": "This username is already taken. Please choose another one!",
		})
		return
	}

	// First-user-admin bootstrap: the count is snapshotted before the
	// insert, so the new account itself is excluded.
	count, err := app.DB().CountUsers()
	if err != nil {
		logger.Error("Failed to count users for admin bootstrap", "error", err)
	}
	isFirstUser := err == nil && count == 0

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": "Something went wrong. Please try again!",
		})
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Major:        input.Major,
		Created:      utils.GetSQLTime(),
	}
	if err := app.DB().CreateUser(user); err != nil {
		logger.Error("Failed to create user", "username", input.Username, "error", err)
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Input": input,
			"Error": "Something went wrong. Please try again!",
		})
		return
	}

	if !app.Mailer().SendWelcomeEmail(user.Email, user.Username, user.Major) {
		logger.Warn("Welcome email could not be delivered", "username", user.Username, "email", user.Email)
	}

	if isFirstUser {
		user.IsAdmin = true
		if err := app.DB().UpdateUser(user); err != nil {
			logger.Error("Failed to promote first user to admin", "username", user.Username, "error", err)
		}
		logger.Info("First user registered and promoted to admin", "username", user.Username)
		app.Sessions().AddFlash(w, r, session.FlashSuccess, "Account created successfully! You are now an admin. Please log in.")
	} else {
		logger.Info("User registered", "username", user.Username)
		app.Sessions().AddFlash(w, r, session.FlashSuccess, "Account created successfully! Please log in to continue.")
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLoginForm serves the login page.
func HandleLoginForm(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "login.html", map[string]interface{}{
		"Title": "Log in",
	})
}

// HandleLogin processes a login attempt.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleLogin")

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		render(w, r, app, "login.html", map[string]interface{}{
			"Title": "Log in",
			"Error": "Please enter your username and password.",
		})
		return
	}

	user, err := app.DB().GetUserByUsername(username)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error("Failed to look up user at login", "username", username, "error", err)
		}
		render(w, r, app, "login.html", map[string]interface{}{
			"Title": "Log in",
			"Error": "Invalid username or password.",
		})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		render(w, r, app, "login.html", map[string]interface{}{
			"Title": "Log in",
			"Error": "Invalid username or password.",
		})
		return
	}

	if err := app.Sessions().SetUser(w, r, user.Username); err != nil {
		logger.Error("Failed to save session", "username", username, "error", err)
		render(w, r, app, "login.html", map[string]interface{}{
			"Title": "Log in",
			"Error": "Something went wrong. Please try again!",
		})
		return
	}

	logger.Info("User logged in", "username", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	if err := app.Sessions().ClearUser(w, r); err != nil {
		app.Logger().Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
