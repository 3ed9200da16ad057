// PKCE authorization flow for the Spotify accounts service.
//
// The flow is two independent entry points connected only by the verifier
// persisted in the session store: BeginLogin runs before the browser
// redirect, CompleteLogin after the redirect lands on the callback server.
// No in-memory continuation survives between them.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/nook/internal/shared"
	"github.com/desertthunder/nook/internal/store"
	"golang.org/x/oauth2"
)

// scopes requested at authorization: profile + listening history reads,
// streaming control, and playlist reads.
const spotifyScopes = "user-read-private user-read-recently-played user-top-read streaming " +
	"user-read-playback-state user-modify-playback-state playlist-read-private " +
	"playlist-read-collaborative user-read-email"

const (
	verifierLength = 128
	verifierChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// SessionSaver is the slice of the session store the authenticator needs:
// the verifier stash bridging the two login legs, and credential storage.
type SessionSaver interface {
	SaveVerifier(verifier string) error
	Verifier() (string, error)
	ClearVerifier() error
	Save(cred store.Credential) error
}

// Authenticator drives the PKCE login flow for a public OAuth client.
type Authenticator struct {
	config     *oauth2.Config
	sessions   SessionSaver
	httpClient *http.Client
	apiBaseURL string
}

// NewAuthenticator creates an authenticator for the given public client ID
// and redirect URI. No client secret is involved: the authorization code is
// bound to the PKCE verifier instead.
func NewAuthenticator(clientID, redirectURI string, sessions SessionSaver, httpClient *http.Client) (*Authenticator, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id must be set", shared.ErrInvalidConfig)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	config := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      []string{spotifyScopes},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &Authenticator{
		config:     config,
		sessions:   sessions,
		httpClient: httpClient,
		apiBaseURL: spotifyBaseURL,
	}, nil
}

// WithEndpoints overrides the token and API endpoints. Used by tests.
func (a *Authenticator) WithEndpoints(tokenURL, apiBaseURL string) *Authenticator {
	a.config.Endpoint.TokenURL = tokenURL
	a.apiBaseURL = apiBaseURL
	return a
}

// GenerateVerifier produces a 128-character PKCE verifier drawn from the
// unreserved character set.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verifier: %w", err)
	}
	out := make([]byte, verifierLength)
	for i, b := range buf {
		out[i] = verifierChars[int(b)%len(verifierChars)]
	}
	return string(out), nil
}

// Challenge derives the S256 code challenge: the base64url-encoded SHA-256
// digest of the verifier, without padding.
func Challenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// BeginLogin generates and persists a fresh verifier and returns the
// authorization URL plus the state token the callback must echo. The caller
// performs the actual redirect (browser open).
func (a *Authenticator) BeginLogin() (authURL, state string, err error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", "", err
	}
	if err := a.sessions.SaveVerifier(verifier); err != nil {
		return "", "", err
	}

	state, err = shared.GenerateState()
	if err != nil {
		return "", "", err
	}

	authURL = a.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", Challenge(verifier)),
	)
	return authURL, state, nil
}

// CompleteLogin finishes the flow from the redirect's query parameters.
//
// An error parameter fails with [shared.ErrAuthCancelled] before any network
// call. A missing stored verifier (storage cleared between the two legs)
// fails with [shared.ErrAuthStateMissing]. A rejected exchange fails with
// [shared.ErrTokenExchange] carrying the provider's error description. With
// neither code nor error present the call is a no-op and returns nil, nil.
//
// On success the credential is stored wholesale; the display name fetch is
// best-effort and never fails the login.
func (a *Authenticator) CompleteLogin(ctx context.Context, query url.Values) (*store.Credential, error) {
	if errParam := query.Get("error"); errParam != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthCancelled, errParam)
	}

	code := query.Get("code")
	if code == "" {
		return nil, nil
	}

	verifier, err := a.sessions.Verifier()
	if err != nil {
		return nil, err
	}
	if verifier == "" {
		return nil, shared.ErrAuthStateMissing
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := a.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			description := retrieveErr.ErrorDescription
			if description == "" {
				description = retrieveErr.ErrorCode
			}
			return nil, fmt.Errorf("%w: %s", shared.ErrTokenExchange, description)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	cred := store.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = time.Now().Add(time.Hour)
	}
	cred.DisplayName = a.fetchDisplayName(ctx, token.AccessToken)

	if err := a.sessions.Save(cred); err != nil {
		return nil, err
	}
	if err := a.sessions.ClearVerifier(); err != nil {
		return nil, err
	}

	return &cred, nil
}

// fetchDisplayName reads the authenticated user's display name, falling
// back to the account ID. Failures return "".
func (a *Authenticator) fetchDisplayName(ctx context.Context, accessToken string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/me", nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var user SpotifyUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return ""
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.ID
}
