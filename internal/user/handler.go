package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/otabek-olimov/uzshop-backend/internal/auth"
	"github.com/otabek-olimov/uzshop-backend/internal/flash"
	"github.com/otabek-olimov/uzshop-backend/internal/middleware"
	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// maxAvatarSize bounds the multipart form parse for photo uploads.
const maxAvatarSize = 10 << 20

// AccountStore defines the user persistence the handlers depend on.
type AccountStore interface {
	AccountChecker
	CreateUser(ctx context.Context, f models.RegisterForm, hashedPassword string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateContact(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
	UpdateAvatar(ctx context.Context, id, avatarKey string) error
}

// SessionManager defines the session lifecycle operations.
type SessionManager interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
	InvalidateOthers(ctx context.Context, userID, keepSID string) error
}

// AvatarStore defines profile photo object storage.
type AvatarStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Handler holds the account HTTP handlers.
type Handler struct {
	accounts AccountStore
	sessions SessionManager
	avatars  AvatarStore
	flash    *flash.Store
	log      zerolog.Logger
}

func NewHandler(accounts AccountStore, sessions SessionManager, avatars AvatarStore, fl *flash.Store, log zerolog.Logger) *Handler {
	return &Handler{accounts: accounts, sessions: sessions, avatars: avatars, flash: fl, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// currentUserID resolves the session cookie outside RequireAuth, for routes
// that only branch on "already authenticated".
func (h *Handler) currentUserID(r *http.Request) string {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return ""
	}
	uid, err := h.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return ""
	}
	return uid
}

func setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.SessionTTL / time.Second),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// ── registration ─────────────────────────────────────────

// RegisterPage returns the empty registration form context.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":    models.RegisterForm{},
		"notices": h.flash.Pop(w, r),
	})
}

// Register validates the form and creates the account. Success redirects to
// the login page; failure re-renders the form with field errors attached.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid form body"}`, http.StatusBadRequest)
		return
	}
	form := models.RegisterForm{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
		Phone:     r.PostFormValue("phone"),
		Address:   r.PostFormValue("address"),
	}

	errs, err := ValidateRegister(r.Context(), h.accounts, form)
	if err != nil {
		h.log.Error().Err(err).Msg("register validation")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !errs.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"form": form, "errors": errs})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password1), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	u, err := h.accounts.CreateUser(r.Context(), form, string(hashed))
	if err != nil {
		// A concurrent registration can still hit the UNIQUE constraints.
		h.log.Error().Err(err).Str("username", form.Username).Msg("create user")
		errs.Add("username", "Username already exists")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"form": form, "errors": errs})
		return
	}

	h.log.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	h.flash.Success(w, r, "You are registered! Don't forget to log in.")
	http.Redirect(w, r, "/user/login/", http.StatusSeeOther)
}

// ── login / logout ───────────────────────────────────────

// LoginPage returns the empty login form context. Already-authenticated
// visitors are sent home.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.currentUserID(r) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":    models.LoginForm{},
		"notices": h.flash.Pop(w, r),
	})
}

// Login authenticates the user and establishes a session. The `next` query
// parameter names the post-login redirect target; only local paths are
// honored.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.currentUserID(r) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid form body"}`, http.StatusBadRequest)
		return
	}
	form := models.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	u, errs, err := ValidateLogin(r.Context(), h.accounts, form)
	if err != nil {
		h.log.Error().Err(err).Msg("login validation")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !errs.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"form": form, "errors": errs})
		return
	}

	sid, err := h.sessions.Create(r.Context(), u.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("create session")
		http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, sid)

	h.log.Info().Str("user_id", u.ID).Msg("user logged in")
	h.flash.Success(w, r, "Hello "+u.Username+", you are logged in!")
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
}

// safeNext accepts only local absolute paths as redirect targets.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}

// Logout clears the session unconditionally. Behind RequireAuth.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	if err := h.sessions.Delete(r.Context(), sid); err != nil {
		h.log.Error().Err(err).Msg("delete session")
	}
	clearSessionCookie(w)

	h.flash.Warning(w, r, "You have been logged out!")
	http.Redirect(w, r, "/user/login/", http.StatusSeeOther)
}

// ── profile ──────────────────────────────────────────────

// Profile returns the owner's profile context. Behind RequireAuth.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.GetUserByID(r.Context(), middleware.UserID(r.Context()))
	if err != nil || u == nil {
		h.log.Error().Err(err).Msg("load profile")
		http.Error(w, `{"error":"user not found"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    u,
		"notices": h.flash.Pop(w, r),
	})
}

// UpdateProfile selectively overwrites contact fields: only supplied values
// replace stored ones, so resubmitting an empty form changes nothing.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid form body"}`, http.StatusBadRequest)
		return
	}
	form := models.ProfileForm{
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Address:   r.PostFormValue("address"),
	}

	errs, err := ValidateProfile(r.Context(), h.accounts, uid, form)
	if err != nil {
		h.log.Error().Err(err).Msg("profile validation")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !errs.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"form": form, "errors": errs})
		return
	}

	u, err := h.accounts.GetUserByID(r.Context(), uid)
	if err != nil || u == nil {
		h.log.Error().Err(err).Msg("load profile")
		http.Error(w, `{"error":"user not found"}`, http.StatusInternalServerError)
		return
	}
	if form.Email != "" {
		u.Email = form.Email
	}
	if form.Phone != "" {
		u.Phone = form.Phone
	}
	if form.FirstName != "" {
		u.FirstName = form.FirstName
	}
	if form.LastName != "" {
		u.LastName = form.LastName
	}
	if form.Address != "" {
		u.Address = form.Address
	}
	if err := h.accounts.UpdateContact(r.Context(), u); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("update contact")
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}

	h.flash.Success(w, r, "Your details have been updated!")
	http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
}

// UpdatePhoto replaces the profile photo. Only .jpg/.jpeg/.png filenames are
// accepted; the check is by suffix, not content sniffing.
func (h *Handler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		h.flash.Error(w, r, "Could not read the uploaded image!")
		http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.flash.Error(w, r, "Could not read the uploaded image!")
		http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := avatarContentTypes[ext]
	if !ok {
		h.flash.Error(w, r, "Invalid file format. Choose a JPG, JPEG or PNG image.")
		http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.flash.Error(w, r, "Could not read the uploaded image!")
		http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
		return
	}

	u, err := h.accounts.GetUserByID(r.Context(), uid)
	if err != nil || u == nil {
		h.log.Error().Err(err).Msg("load profile")
		http.Error(w, `{"error":"user not found"}`, http.StatusInternalServerError)
		return
	}

	key := uid + "/" + uuid.New().String() + ext
	if err := h.avatars.Upload(r.Context(), key, data, contentType); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("avatar upload")
		h.flash.Error(w, r, "Could not save the uploaded image!")
		http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
		return
	}
	if err := h.accounts.UpdateAvatar(r.Context(), uid, key); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("update avatar")
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	// Drop the replaced photo, best-effort.
	if u.AvatarKey != "" {
		if err := h.avatars.Remove(r.Context(), u.AvatarKey); err != nil {
			h.log.Warn().Err(err).Str("key", u.AvatarKey).Msg("remove old avatar")
		}
	}

	h.flash.Success(w, r, "Profile photo updated!")
	http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
}

var avatarContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ── password change ──────────────────────────────────────

// PasswordChangePage returns the empty password-change form context.
func (h *Handler) PasswordChangePage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":    struct{}{},
		"notices": h.flash.Pop(w, r),
	})
}

// PasswordChange rehashes and persists the new password, then revokes every
// other session of the user. The changing request's own session stays valid.
func (h *Handler) PasswordChange(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	sid := middleware.SessionID(r.Context())

	u, err := h.accounts.GetUserByID(r.Context(), uid)
	if err != nil || u == nil {
		h.log.Error().Err(err).Msg("load profile")
		http.Error(w, `{"error":"user not found"}`, http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid form body"}`, http.StatusBadRequest)
		return
	}
	form := models.PasswordChangeForm{
		Current: r.PostFormValue("current_password"),
		New:     r.PostFormValue("new_password"),
		Confirm: r.PostFormValue("confirm_new_password"),
	}

	if errs := ValidatePasswordChange(u, form); !errs.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.New), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if err := h.accounts.UpdatePassword(r.Context(), uid, string(hashed)); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("update password")
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	if err := h.sessions.InvalidateOthers(r.Context(), uid, sid); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("invalidate sessions")
	}

	h.log.Info().Str("user_id", uid).Msg("password changed")
	h.flash.Success(w, r, "Your password has been updated!")
	http.Redirect(w, r, "/user/profile/", http.StatusSeeOther)
}
