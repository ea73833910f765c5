package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrEmailNotVerified rejects Google accounts without a verified email.
	ErrEmailNotVerified = errors.New("auth: google account email is not verified")
	// ErrInvalidState rejects callbacks whose state parameter cannot be decoded.
	ErrInvalidState = errors.New("auth: invalid oauth state")
)

// GoogleProfile is the subset of the Google userinfo response the service uses.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthState rides the OAuth state parameter through the provider round trip.
type OAuthState struct {
	Nonce     string `json:"nonce"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

// GoogleClientDeps configures NewGoogleClient.
type GoogleClientDeps struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// HTTPClient overrides the client used for the userinfo request, mainly in tests.
	HTTPClient *http.Client
}

// GoogleClient drives the Google authorization-code flow.
type GoogleClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewGoogleClient validates deps and constructs a GoogleClient.
func NewGoogleClient(deps GoogleClientDeps) (*GoogleClient, error) {
	if strings.TrimSpace(deps.ClientID) == "" {
		return nil, errors.New("auth: google client requires a client id")
	}
	if strings.TrimSpace(deps.ClientSecret) == "" {
		return nil, errors.New("auth: google client requires a client secret")
	}
	if strings.TrimSpace(deps.RedirectURL) == "" {
		return nil, errors.New("auth: google client requires a redirect url")
	}
	return &GoogleClient{
		config: &oauth2.Config{
			ClientID:     deps.ClientID,
			ClientSecret: deps.ClientSecret,
			RedirectURL:  deps.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		httpClient: deps.HTTPClient,
	}, nil
}

// AuthURL builds the provider redirect URL carrying the encoded state.
func (c *GoogleClient) AuthURL(state OAuthState) (string, error) {
	encoded, err := EncodeState(state)
	if err != nil {
		return "", err
	}
	return c.config.AuthCodeURL(encoded, oauth2.AccessTypeOnline), nil
}

// Exchange swaps the authorization code for a token and fetches the user profile.
func (c *GoogleClient) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: code exchange failed: %w", err)
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	client := c.config.Client(ctx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GoogleProfile{}, fmt.Errorf("auth: userinfo request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return GoogleProfile{}, fmt.Errorf("auth: userinfo response missing identity fields")
	}
	if !profile.VerifiedEmail {
		return GoogleProfile{}, ErrEmailNotVerified
	}
	return profile, nil
}

// NewStateNonce mints a random nonce for the OAuth state parameter.
func NewStateNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// EncodeState serialises the state for the provider round trip.
func EncodeState(state OAuthState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("auth: encoding oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState parses the state returned by the provider.
func DecodeState(encoded string) (OAuthState, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return OAuthState{}, ErrInvalidState
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return OAuthState{}, ErrInvalidState
	}
	var state OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return OAuthState{}, ErrInvalidState
	}
	if state.Nonce == "" {
		return OAuthState{}, ErrInvalidState
	}
	return state, nil
}
