package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gyanoda/user-service/internal/config"
	"github.com/gyanoda/user-service/internal/entity"
	"github.com/gyanoda/user-service/internal/token"
	"github.com/gyanoda/user-service/internal/usecase"
	"go.uber.org/zap"
)

const maxAvatarBytes = 5 << 20

// Handler exposes the auth and user surface over REST. Session tokens
// travel as httpOnly cookies; the access token is also echoed in the login
// body for clients that prefer a bearer header.
type Handler struct {
	auth      *usecase.AuthUsecase
	users     *usecase.UserUsecase
	responder *Responder
	cookies   config.CookiesConfig
	logger    *zap.Logger
}

func NewHandler(auth *usecase.AuthUsecase, users *usecase.UserUsecase, responder *Responder, cookies config.CookiesConfig, logger *zap.Logger) *Handler {
	return &Handler{
		auth:      auth,
		users:     users,
		responder: responder,
		cookies:   cookies,
		logger:    logger.Named("UserHTTPHandler"),
	}
}

type registrationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone_number"`
	Location string `json:"location"`
}

func (h *Handler) Registration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Registration", zap.Error(err))
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	h.logger.Info("HTTP Registration request received", zap.String("email", req.Email))

	out, err := h.auth.Register(r.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		h.responder.Error(w, err)
		return
	}

	h.responder.JSON(w, http.StatusCreated, map[string]interface{}{
		"success":         true,
		"message":         "Please check your email " + out.Email + " to activate your account",
		"activationToken": out.ActivationToken,
	})
}

type activateRequest struct {
	ActivationToken string `json:"activation_token"`
	ActivationCode  string `json:"activation_code"`
}

func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	if err := h.auth.Activate(r.Context(), req.ActivationToken, req.ActivationCode); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

type resendOtpRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	var req resendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	out, err := h.auth.ResendOtp(r.Context(), req.Email)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "Please check your email " + out.Email + " to activate your account",
		"activationToken": out.ActivationToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.responder.Error(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        user,
		"accessToken": pair.AccessToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.clearSessionCookies(w)
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		h.responder.Error(w, usecase.ErrUnauthorized)
		return
	}

	access, expires, user, err := h.auth.RefreshSession(r.Context(), c.Value)
	if err != nil {
		h.responder.Error(w, err)
		return
	}

	h.setCookie(w, accessCookieName, access, expires)
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        user,
		"accessToken": access,
	})
}

type socialSignInRequest struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Phone   string `json:"phone_number"`
}

func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	h.socialSignIn(w, r, entity.ProviderGoogle)
}

func (h *Handler) FacebookSignIn(w http.ResponseWriter, r *http.Request) {
	h.socialSignIn(w, r, entity.ProviderFacebook)
}

func (h *Handler) socialSignIn(w http.ResponseWriter, r *http.Request, provider string) {
	var req socialSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	user, pair, err := h.auth.SocialSignIn(r.Context(), provider, entity.SocialProfile{
		ExternalID: req.ID,
		Email:      req.Email,
		Name:       req.Name,
		Picture:    req.Picture,
		Phone:      req.Phone,
	})
	if err != nil {
		h.responder.Error(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        user,
		"accessToken": pair.AccessToken,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	user, err := h.users.Me(r.Context(), userID)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

type updateInfoRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone_number"`
	Location string `json:"location"`
}

func (h *Handler) UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	var req updateInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	user, err := h.users.UpdateInfo(r.Context(), userID, usecase.UpdateInfoInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	if err := h.users.UpdatePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated successfully",
	})
}

func (h *Handler) UpdateUserAvatar(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes))
	if err != nil {
		h.responder.Error(w, err)
		return
	}

	user, err := h.users.UpdateAvatar(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	skip := parseInt64(r.URL.Query().Get("skip"), 0)
	limit := parseInt64(r.URL.Query().Get("limit"), 100)

	users, err := h.users.ListUsers(r.Context(), skip, limit)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

type updateRoleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), req.Email, req.Role)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	if err := h.users.DeleteUser(r.Context(), targetID); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User deleted successfully",
	})
}

type forgetPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req forgetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}
	if err := h.auth.ForgetPassword(r.Context(), req.Email); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Please check your email for the reset link",
	})
}

func (h *Handler) ValidateResetLink(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	resetToken := chi.URLParam(r, "token")

	user, err := h.auth.ValidateResetToken(r.Context(), userID, resetToken)
	if err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"email":   user.Email,
	})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	resetToken := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.Error(w, usecase.ErrValidation)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), userID, resetToken, req.Password); err != nil {
		h.responder.Error(w, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset, please login",
	})
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, pair *token.TokenPair) {
	h.setCookie(w, accessCookieName, pair.AccessToken, pair.AccessExpiresAt)
	h.setCookie(w, refreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	h.setCookie(w, accessCookieName, "", expired)
	h.setCookie(w, refreshCookieName, "", expired)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: sameSiteFromConfig(h.cookies.SameSite),
	})
}

func sameSiteFromConfig(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func parseInt64(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
