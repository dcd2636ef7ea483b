// Package google signs users in with their Google account through the
// OAuth2 authorization code flow.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"paycalc/internal/auth"
	"paycalc/internal/log"
)

// CodeSource obtains an authorization code for authURL, checking that the
// callback carries state.
type CodeSource interface {
	AuthCode(ctx context.Context, authURL, state string) (string, error)
}

// Provider implements auth.Federated.
type Provider struct {
	config           *oauth2.Config
	codes            CodeSource
	userinfoEndpoint string
	logger           *log.Logger
}

var _ auth.Federated = (*Provider)(nil)

var scopes = []string{"openid", oauth2v2.UserinfoEmailScope, oauth2v2.UserinfoProfileScope}

// New builds a provider from an OAuth client id and secret.
func New(clientID, clientSecret, redirectURL string, codes CodeSource, logger *log.Logger) *Provider {
	return &Provider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleoauth.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		codes:  codes,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAuth),
	}
}

// NewFromJSON builds a provider from a downloaded OAuth client JSON file.
func NewFromJSON(clientJSON []byte, redirectURL string, codes CodeSource, logger *log.Logger) (*Provider, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return &Provider{
		config: cfg,
		codes:  codes,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAuth),
	}, nil
}

// WithEndpoints points the provider at other token and userinfo servers.
func (p *Provider) WithEndpoints(endpoint oauth2.Endpoint, userinfo string) *Provider {
	p.config.Endpoint = endpoint
	p.userinfoEndpoint = userinfo
	return p
}

// Authenticate runs the code flow and returns the Google account's identity.
// The UID is left empty; auth.Local assigns one.
func (p *Provider) Authenticate(ctx context.Context) (*auth.Identity, error) {
	if p.codes == nil {
		return nil, errors.New("no authorization code source")
	}
	state := uuid.NewString()
	authURL := p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)

	code, err := p.codes.AuthCode(ctx, authURL, state)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, tok))}
	if p.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userinfoEndpoint))
	}
	svc, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}

	p.logger.DebugContext(ctx, "Google account authenticated", "verified", info.VerifiedEmail != nil && *info.VerifiedEmail)
	return &auth.Identity{
		Email:       info.Email,
		DisplayName: info.Name,
		Provider:    auth.ProviderGoogle,
	}, nil
}

// LoopbackCodeSource prints the authorization URL and waits for Google to
// redirect the browser to a local /callback handler.
type LoopbackCodeSource struct {
	// Listener accepts the redirect. Required.
	Listener net.Listener
	// Prompt is called with the URL the user must open.
	Prompt  func(authURL string)
	Timeout time.Duration
}

// RedirectURL is the callback URL to register with the OAuth client.
func (s *LoopbackCodeSource) RedirectURL() string {
	return "http://" + s.Listener.Addr().String() + "/callback"
}

func (s *LoopbackCodeSource) AuthCode(ctx context.Context, authURL, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("no authorization code received")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(s.Listener) }()
	defer srv.Close()

	if s.Prompt != nil {
		s.Prompt(authURL)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.code, res.err
	case <-timer.C:
		return "", errors.New("authorization timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
