package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the full API surface. Routes split into three rings:
// public, authenticated, and admin.
func NewRouter(h *Handler, auth *AuthMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public ring.
		r.Post("/registration", h.Registration)
		r.Post("/activate-user", h.ActivateUser)
		r.Post("/resend-otp", h.ResendOtp)
		r.Post("/login", h.Login)
		r.Post("/google-signin", h.GoogleSignIn)
		r.Post("/facebook-signin", h.FacebookSignIn)
		r.Get("/refreshtoken", h.RefreshToken)
		r.Post("/forget-password", h.ForgetPassword)
		r.Get("/reset-password/{id}/{token}", h.ValidateResetLink)
		r.Post("/reset-password/{id}/{token}", h.ResetPassword)

		// Authenticated ring.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Get("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Put("/update-user-info", h.UpdateUserInfo)
			r.Put("/update-user-password", h.UpdateUserPassword)
			r.Put("/update-user-avatar", h.UpdateUserAvatar)

			// Admin ring.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/get-users", h.GetUsers)
				r.Put("/update-user", h.UpdateUserRole)
				r.Delete("/delete-user/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
