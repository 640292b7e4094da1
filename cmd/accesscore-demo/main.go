// Command accesscore-demo runs a small HTTP server exercising the engine:
// login, refresh rotation, logout, and the keypass lifecycle.
//
// Backends are picked from the environment. With REDIS_ADDR set, counters
// and the refresh allowlist go through Redis; with DATABASE_URL set,
// keypasses live in Postgres. Without either the demo runs entirely
// in-process.
//
// Environment:
//
//	TOKEN_SECRET  HMAC signing secret (required)
//	REDIS_ADDR    host:port of a Redis instance (optional)
//	DATABASE_URL  Postgres connection string (optional)
//	PORT          listen port, default 8080
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	accesscore "github.com/fraudlens/accesscore"
	"github.com/fraudlens/accesscore/keypass"
	"github.com/fraudlens/accesscore/middleware"
	"github.com/fraudlens/accesscore/password"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}

	cfg := accesscore.Config{}
	cfg.Token.PrivateKey = []byte(secret)

	builder := accesscore.New().
		WithConfig(cfg).
		WithLogger(log).
		WithAuditSink(zapAuditSink{log: log.Named("audit")})

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("redis ping failed", zap.Error(err))
		}
		builder.WithRedis(rdb)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		db, err := sql.Open("pgx", url)
		if err != nil {
			log.Fatal("open database failed", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal("ping database failed", zap.Error(err))
		}

		store := keypass.NewPGStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			log.Fatal("keypass migration failed", zap.Error(err))
		}
		builder.WithDatabase(db)
	}

	users, err := seedUsers()
	if err != nil {
		log.Fatal("seeding users failed", zap.Error(err))
	}
	builder.WithUserProvider(users)

	engine, err := builder.Build()
	if err != nil {
		log.Fatal("engine build failed", zap.Error(err))
	}
	defer engine.Close()

	mux := http.NewServeMux()
	mux.Handle("POST /login",
		middleware.RateLimit(engine, accesscore.BucketLogin)(handleLogin(engine)))
	mux.Handle("POST /refresh",
		middleware.RateLimit(engine, accesscore.BucketRefresh)(handleRefresh(engine)))
	mux.Handle("POST /logout", handleLogout(engine))
	mux.Handle("GET /me", middleware.RequireAccess(engine)(handleMe()))

	guard := middleware.RequireAccess(engine)
	mux.Handle("POST /keypasses", guard(handleGenerate(engine)))
	mux.Handle("POST /keypasses/use", handleUse(engine))
	mux.Handle("POST /keypasses/validate", handleValidate(engine))
	mux.Handle("POST /keypasses/revoke", guard(handleRevoke(engine)))
	mux.Handle("GET /keypasses/quota", guard(handleQuota(engine)))

	handler := middleware.RateLimit(engine, accesscore.BucketGlobal)(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("listening", zap.String("addr", ":"+port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// zapAuditSink writes audit events to the structured log.
type zapAuditSink struct {
	log *zap.Logger
}

func (s zapAuditSink) Emit(_ context.Context, event accesscore.AuditEvent) {
	s.log.Info(event.Event,
		zap.Time("at", event.Time),
		zap.String("identity", event.Identity),
		zap.String("org", event.OrgID),
		zap.Bool("success", event.Success),
		zap.String("detail", event.Detail),
	)
}

// memoryUsers is a demo-only user store seeded with one account.
type memoryUsers map[string]accesscore.UserRecord

func (m memoryUsers) GetByIdentity(_ context.Context, identity string) (accesscore.UserRecord, bool, error) {
	rec, ok := m[identity]
	return rec, ok, nil
}

func seedUsers() (memoryUsers, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		return nil, err
	}
	return memoryUsers{
		"alice@example.com": {ID: "user-1", Identity: "alice@example.com", PasswordHash: hash},
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := accesscore.Code(err)
	if code == "" {
		status = http.StatusInternalServerError
		code = "INTERNAL"
	}
	writeJSON(w, status, map[string]string{"error": code})
}

func handleLogin(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identity string `json:"identity"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		pair, err := engine.Login(r.Context(), req.Identity, req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	})
}

func handleRefresh(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		pair, err := engine.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	})
}

func handleLogout(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		if err := engine.Logout(r.Context(), req.RefreshToken); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := middleware.SubjectFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"subject": subject})
	})
}

func handleGenerate(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrgID         string `json:"org_id"`
			Quantity      int    `json:"quantity"`
			ExpiresInDays int    `json:"expires_in_days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		passes, err := engine.GenerateKeypasses(r.Context(), req.OrgID, req.Quantity, req.ExpiresInDays)
		if err != nil {
			writeError(w, keypassStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, passes)
	})
}

func handleUse(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		res, err := engine.UseKeypass(r.Context(), req.Code)
		if err != nil {
			writeError(w, keypassStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func handleValidate(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Codes []string `json:"codes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		type outcome struct {
			Code         string `json:"code"`
			Status       string `json:"status"`
			GraceWarning bool   `json:"grace_warning,omitempty"`
		}
		outcomes := make([]outcome, 0, len(req.Codes))
		for _, oc := range engine.ValidateKeypasses(r.Context(), req.Codes) {
			status := "available"
			if oc.Err != nil {
				status = accesscore.Code(oc.Err)
			}
			outcomes = append(outcomes, outcome{Code: oc.Code, Status: status, GraceWarning: oc.GraceWarning})
		}
		writeJSON(w, http.StatusOK, outcomes)
	})
}

func handleRevoke(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Codes []string `json:"codes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, accesscore.ErrValidation)
			return
		}

		outcome, err := engine.RevokeKeypasses(r.Context(), req.Codes)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	})
}

func handleQuota(engine *accesscore.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := r.URL.Query().Get("org_id")
		quota, err := engine.KeypassQuota(r.Context(), orgID)
		if err != nil {
			writeError(w, keypassStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, quota)
	})
}

func keypassStatus(err error) int {
	switch {
	case errors.Is(err, keypass.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, keypass.ErrNoPackage),
		errors.Is(err, keypass.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, keypass.ErrAlreadyUsed),
		errors.Is(err, keypass.ErrUsed),
		errors.Is(err, keypass.ErrRevoked),
		errors.Is(err, keypass.ErrExpired),
		errors.Is(err, keypass.ErrNotAvailable):
		return http.StatusConflict
	case errors.Is(err, keypass.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
