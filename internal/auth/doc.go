// Package auth authenticates requests to orbit-server.
//
// # API Keys
//
// Chat clients send an X-API-Key header. Keys look like
// "orbit_" followed by 40 hex characters; the first 14 characters are the
// public prefix used as the database key, and only a bcrypt hash of the full
// key is stored. GenerateAPIKey mints a key and Authenticator checks one:
//
//	authn := auth.NewAuthenticator(store, logger)
//	mux.Handle("/v1/chat", auth.APIKeyMiddleware(authn, cfg.Auth.RequireAPIKey, logger)(h))
//
// Deactivated keys are rejected even while their bcrypt comparison is cached.
//
// # Admin Tokens
//
// The /admin/api-keys endpoints take an HS256 JWT in the Authorization header.
// Tokens carry the operator name in "sub" and an "admin" scope and are issued
// by "orbit-server bootstrap":
//
//	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
//	token, err := verifier.Generate("owner", 30*24*time.Hour)
//
// # Request Context
//
// Both middlewares attach an AuthContext retrievable with FromContext.
// Errors are written as {"detail": "..."} JSON with status 401.
package auth
