// Package main runs a self-contained authentication server backed by an
// in-memory user provider, exposing the authserver and sessionserver routes
// game launchers expect.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	YGG_ADDR               listen address (default :8080)
//	YGG_KEY_FILE           signing key location (default keys/private.pem)
//	YGG_TEXTURES_BASE_URL  public URL prefix for texture paths
//	YGG_REDIS_ADDR         optional Redis address for a fleet-shared login throttle
//
// Run:
//
//	go run ./cmd/yggauth-server
//
// Then:
//
//	curl -i -X POST localhost:8080/authserver/authenticate \
//	  -H 'Content-Type: application/json' \
//	  -d '{"username":"steve@example.com","password":"correct-horse-battery","requestUser":true}'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	yggauth "github.com/hollowell/yggauth"
	"github.com/hollowell/yggauth/password"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(os.Stderr, "yggauth-server: ", log.LstdFlags)

	cfg := yggauth.DefaultConfig()
	if keyFile := os.Getenv("YGG_KEY_FILE"); keyFile != "" {
		cfg.Signing.KeyFile = keyFile
	}
	cfg.Textures.BaseURL = os.Getenv("YGG_TEXTURES_BASE_URL")

	builder := yggauth.New().
		WithConfig(cfg).
		WithUserProvider(seedProvider(logger, cfg)).
		WithAuditSink(yggauth.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger)

	if addr := os.Getenv("YGG_REDIS_ADDR"); addr != "" {
		builder = builder.WithRedis(redis.NewClient(&redis.Options{Addr: addr}))
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Fatal(err)
	}
	defer engine.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authserver/authenticate", handleAuthenticate(engine))
	mux.HandleFunc("POST /authserver/refresh", handleRefresh(engine))
	mux.HandleFunc("POST /authserver/validate", handleValidate(engine))
	mux.HandleFunc("POST /authserver/invalidate", handleInvalidate(engine))
	mux.HandleFunc("POST /authserver/signout", handleSignout(engine))
	mux.HandleFunc("POST /sessionserver/session/minecraft/join", handleJoin(engine))
	mux.HandleFunc("GET /sessionserver/session/minecraft/hasJoined", handleHasJoined(engine))
	mux.HandleFunc("GET /sessionserver/session/minecraft/profile/{id}", handleProfile(engine))
	mux.HandleFunc("GET /publickey", handlePublicKey(engine))

	addr := os.Getenv("YGG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           withClientIP(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
}

// withClientIP copies the remote address into the request context so the
// engine can record it in handshakes and audit events.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(yggauth.WithClientIP(r.Context(), ip)))
	})
}

type authenticateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientToken string `json:"clientToken"`
	RequestUser bool   `json:"requestUser"`
}

func handleAuthenticate(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authenticateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := engine.Authenticate(r.Context(), req.Username, req.Password, req.ClientToken, req.RequestUser)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type refreshRequest struct {
	AccessToken     string `json:"accessToken"`
	ClientToken     string `json:"clientToken"`
	RequestUser     bool   `json:"requestUser"`
	SelectedProfile *struct {
		ID string `json:"id"`
	} `json:"selectedProfile"`
}

func handleRefresh(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var selected string
		if req.SelectedProfile != nil {
			selected = req.SelectedProfile.ID
		}

		result, err := engine.Refresh(r.Context(), req.AccessToken, req.ClientToken, selected, req.RequestUser)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type tokenRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
}

func handleValidate(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := engine.Validate(r.Context(), req.AccessToken, req.ClientToken); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleInvalidate(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := engine.Invalidate(r.Context(), req.AccessToken); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type signoutRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleSignout(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := engine.Signout(r.Context(), req.Username, req.Password); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type joinRequest struct {
	AccessToken     string `json:"accessToken"`
	SelectedProfile string `json:"selectedProfile"`
	ServerID        string `json:"serverId"`
}

func handleJoin(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := engine.Join(r.Context(), req.AccessToken, req.SelectedProfile, req.ServerID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHasJoined(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		profile, err := engine.HasJoined(r.Context(), q.Get("username"), q.Get("serverId"), q.Get("ip"))
		if err != nil {
			writeError(w, err)
			return
		}
		if profile == nil {
			// No handshake is the protocol's "no" answer, not an error.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func handleProfile(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signed := r.URL.Query().Get("unsigned") == "false"

		profile, err := engine.Profile(r.Context(), r.PathValue("id"), signed)
		if err != nil {
			if errors.Is(err, yggauth.ErrProfileNotFound) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func handlePublicKey(engine *yggauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pem, err := engine.SignatureKeyPEM()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-pem-file")
		_, _ = w.Write([]byte(pem))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, yggauth.APIError{
			Code:    "IllegalArgumentException",
			Message: "Malformed request body.",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := yggauth.APIErrorFor(err)

	status := http.StatusBadRequest
	if apiErr.Code == "ForbiddenOperationException" {
		status = http.StatusForbidden
	}
	writeJSON(w, status, apiErr)
}

// memoryProvider is a demo-only UserProvider holding seeded accounts.
type memoryProvider struct {
	mu       sync.RWMutex
	users    map[string]yggauth.UserRecord
	profiles map[string]yggauth.ProfileRecord
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		users:    make(map[string]yggauth.UserRecord),
		profiles: make(map[string]yggauth.ProfileRecord),
	}
}

func (p *memoryProvider) GetUserByIdentifier(_ context.Context, identifier string) (yggauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, user := range p.users {
		if strings.EqualFold(user.Identifier, identifier) {
			return user, nil
		}
	}
	return yggauth.UserRecord{}, errors.New("user not found")
}

func (p *memoryProvider) GetUserByID(_ context.Context, userID string) (yggauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	user, ok := p.users[userID]
	if !ok {
		return yggauth.UserRecord{}, errors.New("user not found")
	}
	return user, nil
}

func (p *memoryProvider) ProfilesByOwner(_ context.Context, userID string) ([]yggauth.ProfileRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var owned []yggauth.ProfileRecord
	for _, profile := range p.profiles {
		if profile.OwnerID == userID {
			owned = append(owned, profile)
		}
	}
	return owned, nil
}

func (p *memoryProvider) GetProfileByID(_ context.Context, profileID string) (yggauth.ProfileRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[profileID]
	if !ok {
		return yggauth.ProfileRecord{}, errors.New("profile not found")
	}
	return profile, nil
}

func (p *memoryProvider) UpdateSelectedProfile(_ context.Context, userID, profileID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.SelectedProfileID = profileID
	p.users[userID] = user
	return nil
}

// seedProvider builds the demo account: steve@example.com with one profile.
func seedProvider(logger *log.Logger, cfg yggauth.Config) yggauth.UserProvider {
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		logger.Fatal(err)
	}

	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		logger.Fatal(err)
	}

	provider := newMemoryProvider()
	provider.users["user-1"] = yggauth.UserRecord{
		UserID:            "user-1",
		Identifier:        "steve@example.com",
		PasswordHash:      hash,
		SelectedProfileID: "df24f4f4f4f44e68a7f9f3b1e0a2b4c8",
		PreferredLanguage: "en",
	}
	provider.profiles["df24f4f4f4f44e68a7f9f3b1e0a2b4c8"] = yggauth.ProfileRecord{
		ProfileID: "df24f4f4f4f44e68a7f9f3b1e0a2b4c8",
		Name:      "Steve",
		OwnerID:   "user-1",
		SkinPath:  "textures/steve-skin.png",
		CreatedAt: time.Now(),
	}

	return provider
}
