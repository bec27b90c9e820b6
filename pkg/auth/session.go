// Package auth manages the session against the remote store's auth endpoint:
// password-grant login, refresh-token renewal, and an on-disk token so the
// process survives restarts without re-login.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenFile is where the obtained token (access + refresh) is stored inside
// the data directory.
const TokenFile = "token.json"

// ErrNotAuthenticated is returned when no usable session exists.
var ErrNotAuthenticated = fmt.Errorf("not authenticated")

// Profile is the remote user record the dashboard shows.
type Profile struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session holds the current credentials. Safe for concurrent use.
type Session struct {
	baseURL   string
	apiKey    string
	tokenPath string
	client    *http.Client

	mu     sync.Mutex
	token  *oauth2.Token
	userID string
}

// NewSession loads any previously saved token from dataDir and extracts the
// user id from its claims. A missing or expired token is not an error; it
// just means the session starts unauthenticated.
func NewSession(baseURL, apiKey, dataDir string) *Session {
	s := &Session{
		baseURL:   baseURL,
		apiKey:    apiKey,
		tokenPath: filepath.Join(dataDir, TokenFile),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	tok, err := tokenFromFile(s.tokenPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not load token file %s: %v", s.tokenPath, err)
		}
		return s
	}
	s.token = tok
	if uid, err := userIDFromToken(tok.AccessToken); err == nil {
		s.userID = uid
	}
	return s
}

// IsAuthenticated reports whether a session exists. An expired access token
// with a refresh token still counts: it renews on the next call.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return false
	}
	return s.token.Valid() || s.token.RefreshToken != ""
}

// UserID returns the owner id for remote scoping, or "" if unauthenticated.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// AccessToken returns a valid bearer token, renewing via the refresh token
// when the current one has expired.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return "", ErrNotAuthenticated
	}
	if s.token.Valid() {
		return s.token.AccessToken, nil
	}
	if s.token.RefreshToken == "" {
		return "", fmt.Errorf("%w: token expired and no refresh token", ErrNotAuthenticated)
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.token.AccessToken, nil
}

// Login performs the password grant and persists the resulting token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	tok, err := s.tokenRequest(ctx, "password", body)
	if err != nil {
		return err
	}
	s.adopt(tok)
	return nil
}

// Register creates a user on the auth endpoint, then logs in.
func (s *Session) Register(ctx context.Context, email, password, name string) error {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	if err := s.post(ctx, "/auth/v1/signup", payload, nil); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return s.Login(ctx, email, password)
}

// Logout revokes the session remotely (best effort) and forgets the token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	tok := s.token
	s.token = nil
	s.userID = ""
	s.mu.Unlock()

	if err := os.Remove(s.tokenPath); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not delete token file %s: %v", s.tokenPath, err)
	}
	if tok == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := s.client.Do(req)
	if err != nil {
		// Local logout already happened; the server session just expires.
		log.Printf("Warning: remote logout failed: %v", err)
		return nil
	}
	resp.Body.Close()
	return nil
}

// Profile fetches the current user record.
func (s *Session) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	token, err := s.AccessToken(ctx)
	if err != nil {
		return p, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return p, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.client.Do(req)
	if err != nil {
		return p, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return p, fmt.Errorf("profile fetch failed: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return p, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, nil
}

// UpdateProfile pushes metadata changes (display name and similar settings).
func (s *Session) UpdateProfile(ctx context.Context, metadata map[string]any) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{"data": metadata})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/auth/v1/user", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile update failed: status %d", resp.StatusCode)
	}
	return nil
}

func (s *Session) refreshLocked(ctx context.Context) error {
	body := map[string]string{"refresh_token": s.token.RefreshToken}
	tok, err := s.tokenRequest(ctx, "refresh_token", body)
	if err != nil {
		return fmt.Errorf("%w: token refresh failed: %v", ErrNotAuthenticated, err)
	}
	s.token = tok
	if uid, err := userIDFromToken(tok.AccessToken); err == nil {
		s.userID = uid
	}
	saveToken(s.tokenPath, tok)
	return nil
}

func (s *Session) adopt(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	if uid, err := userIDFromToken(tok.AccessToken); err == nil {
		s.userID = uid
	} else {
		log.Printf("Warning: could not read user id from access token: %v", err)
	}
	saveToken(s.tokenPath, tok)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Session) tokenRequest(ctx context.Context, grant string, body map[string]string) (*oauth2.Token, error) {
	var tr tokenResponse
	if err := s.post(ctx, "/auth/v1/token?grant_type="+grant, body, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("auth endpoint returned no access token")
	}
	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func (s *Session) post(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("auth request failed: status %d: %s", resp.StatusCode, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// userIDFromToken pulls the subject claim out of the access token. The
// signature is not checked here: the secret lives server-side and the server
// re-verifies every call; the client only needs the id for scoping.
func userIDFromToken(accessToken string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("access token has no subject claim")
	}
	return sub, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.Printf("Warning: could not create token directory: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Printf("Warning: unable to cache token to %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		log.Printf("Warning: unable to encode token: %v", err)
	}
}
