package token

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator issues and checks HS256 tokens for the admin endpoints.
// Users maps a username to its bcrypt password hash.
type Authenticator struct {
	SigningKey []byte
	Users      map[string]string
	TTL        time.Duration
	Now        func() time.Time
}

func NewAuthenticator(signingKey string, users map[string]string) *Authenticator {
	return &Authenticator{
		SigningKey: []byte(signingKey),
		Users:      users,
		TTL:        time.Hour,
		Now:        time.Now,
	}
}

func (a *Authenticator) Enabled() bool {
	return len(a.SigningKey) > 0 && len(a.Users) > 0
}

func (a *Authenticator) Issue(username, password string) (string, error) {
	storedHash, ok := a.Users[username]
	if !ok || !checkPasswordHash(password, storedHash) {
		return "", errors.New("invalid username or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      a.Now().Add(a.TTL).Unix(),
	})
	return token.SignedString(a.SigningKey)
}

func (a *Authenticator) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.SigningKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	username, _ := claims["username"].(string)
	return username, nil
}

func (a *Authenticator) GetToken(w http.ResponseWriter, r *http.Request) {
	if !a.Enabled() {
		http.Error(w, "Authentication is not configured", http.StatusServiceUnavailable)
		return
	}

	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	tokenString, err := a.Issue(user.Username, user.Password)
	if err != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": tokenString})
}

func (a *Authenticator) JwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !a.Enabled() {
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}

		username, err := a.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Warn("rejected token")
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the username set by JwtMiddleware.
func UserFromContext(ctx context.Context) string {
	username, _ := ctx.Value(ctxKey{}).(string)
	return username
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
