// engforum/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter configures all application routes.
func SetupRouter(app App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewStructuredLogger(app.Logger()))
	r.Use(middleware.Recoverer)

	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/", MakeHandler(app, HandleHome))

	r.Get("/register", MakeHandler(app, HandleRegisterForm))
	r.Post("/register", MakeHandler(app, HandleRegister))
	r.Get("/login", MakeHandler(app, HandleLoginForm))
	r.Post("/login", MakeHandler(app, HandleLogin))
	r.Post("/logout", MakeHandler(app, HandleLogout))

	r.Get("/thread/{threadID}", MakeHandler(app, HandleThread))
	r.Post("/thread", MakeHandler(app, HandleNewThread))
	r.Post("/thread/{threadID}/reply", MakeHandler(app, HandleReply))

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin(app))
		r.Get("/", MakeHandler(app, HandleAdminPanel))
		r.Post("/mark-violation", MakeHandler(app, HandleMarkViolation))
		r.Post("/remove-violation", MakeHandler(app, HandleRemoveViolation))
		r.Post("/delete-thread", MakeHandler(app, HandleDeleteThread))
		r.Post("/make-admin", MakeHandler(app, HandleMakeAdmin))
		r.Post("/remove-admin", MakeHandler(app, HandleRemoveAdmin))
		r.Post("/delete-user", MakeHandler(app, HandleDeleteUser))
	})

	return r
}
