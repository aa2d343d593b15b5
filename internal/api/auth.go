package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tgadmin/internal/config"
)

const sessionCookie = "admin_session"

type authenticator struct {
	cfg    config.APIConfig
	logger *slog.Logger
	now    func() time.Time
}

func newAuthenticator(cfg config.APIConfig, logger *slog.Logger) *authenticator {
	return &authenticator{cfg: cfg, logger: logger, now: time.Now}
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *authenticator) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, a.logger, errors.New("invalid request body"))
		return
	}

	if !a.credentialsMatch(payload.Username, payload.Password) {
		a.logger.Warn("login rejected", slog.String("username", payload.Username))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := a.issueToken()
	if err != nil {
		writeErr(w, a.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  a.now().Add(a.cfg.SessionTTL),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeMsg(w, a.logger, "logged in")
}

func (a *authenticator) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeMsg(w, a.logger, "logged out")
}

// middleware пропускает только запросы с валидной сессионной кукой.
// Отказ — голый 401 без конверта, клиент по нему уходит на логин.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := a.verifyToken(cookie.Value); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *authenticator) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AdminPassword)) == 1
	return userOK && passOK
}

func (a *authenticator) issueToken() (string, error) {
	claims := jwt.MapClaims{
		"sub": a.cfg.AdminUser,
		"exp": a.now().Add(a.cfg.SessionTTL).Unix(),
		"iat": a.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.SessionSecret))
}

func (a *authenticator) verifyToken(raw string) error {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.cfg.SessionSecret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
