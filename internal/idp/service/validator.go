package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/nullprofile/internal/idp/domain"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

const (
	ResponseTypeCode = "code"
	ScopeOpenID      = "openid"
	PKCEMethodS256   = "S256"
	DefaultMaxState  = 1024
	DefaultMaxNonce  = 1024
	MinCodeChallenge = 43
	MaxCodeChallenge = 128
)

const promptLogin = "login"

var base64URLPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// unsupportedPrompts cannot be honoured without consent or account pickers.
var unsupportedPrompts = map[string]bool{
	"none":           true,
	"consent":        true,
	"select_account": true,
}

// RelyingPartyLookup resolves a client_id. store.RelyingParties satisfies it.
type RelyingPartyLookup interface {
	GetRelyingPartyByRPID(ctx context.Context, rpID string) (domain.RelyingParty, error)
}

// AuthorizationRequest holds the raw query parameters of /authorize.
type AuthorizationRequest struct {
	ResponseType        string
	Scope               string
	ClientID            string
	RedirectURI         string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	Prompt              string
}

// ValidatedRequest is an authorization request that passed every rule.
type ValidatedRequest struct {
	domain.AuthorizationParams
	RelyingParty domain.RelyingParty
	ForceLogin   bool
}

// ValidationError is an OAuth2 error produced by request validation.
// RedirectURI is only set once the client and its redirect URI have been
// verified; an empty RedirectURI means the error is answered directly.
type ValidationError struct {
	Code        string
	Description string
	RedirectURI string
	State       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Redirectable reports whether the error may be sent to the client's
// redirect URI.
func (e *ValidationError) Redirectable() bool { return e.RedirectURI != "" }

// ValidationResult is exactly one of a validated request or an error.
type ValidationResult struct {
	Request *ValidatedRequest
	Err     *ValidationError
}

func (r ValidationResult) OK() bool { return r.Err == nil && r.Request != nil }

type ValidatorConfig struct {
	MaxStateLength     int
	MaxNonceLength     int
	AllowHTTPLocalhost bool
}

// AuthorizationRequestValidator applies the authorization request rules in
// order. Only the relying party lookup touches anything outside the request.
type AuthorizationRequestValidator struct {
	RelyingParties RelyingPartyLookup
	Config         ValidatorConfig
}

func NewAuthorizationRequestValidator(lookup RelyingPartyLookup, cfg ValidatorConfig) *AuthorizationRequestValidator {
	if cfg.MaxStateLength <= 0 {
		cfg.MaxStateLength = DefaultMaxState
	}
	if cfg.MaxNonceLength <= 0 {
		cfg.MaxNonceLength = DefaultMaxNonce
	}
	return &AuthorizationRequestValidator{RelyingParties: lookup, Config: cfg}
}

// Validate returns a tagged result. The error return is reserved for lookup
// failures that are not the client's fault.
func (v *AuthorizationRequestValidator) Validate(ctx context.Context, req AuthorizationRequest) (ValidationResult, error) {
	log := slogx.FromContext(ctx)

	// Until the client and redirect URI are verified nothing is redirected.
	direct := func(code, desc string) (ValidationResult, error) {
		return ValidationResult{Err: &ValidationError{Code: code, Description: desc, State: req.State}}, nil
	}

	if req.ResponseType != ResponseTypeCode {
		return direct("unsupported_response_type", "Only response_type=code is supported")
	}
	if req.Scope != ScopeOpenID {
		return direct("invalid_scope", "Only scope=openid is supported")
	}
	if strings.TrimSpace(req.Nonce) == "" {
		return direct("invalid_request", "nonce parameter is required")
	}
	// Limits count characters, not bytes.
	if utf8.RuneCountInString(req.Nonce) > v.Config.MaxNonceLength {
		return direct("invalid_request", "nonce parameter is too long")
	}
	if utf8.RuneCountInString(req.State) > v.Config.MaxStateLength {
		return direct("invalid_request", "state parameter is too long")
	}
	if strings.TrimSpace(req.CodeChallenge) == "" {
		return direct("invalid_request", "code_challenge is required")
	}
	if n := len(req.CodeChallenge); n < MinCodeChallenge || n > MaxCodeChallenge {
		return direct("invalid_request", "code_challenge length is invalid")
	}
	if !base64URLPattern.MatchString(req.CodeChallenge) {
		return direct("invalid_request", "code_challenge must be base64url encoded")
	}
	if req.CodeChallengeMethod != PKCEMethodS256 {
		return direct("invalid_request", "Only code_challenge_method=S256 is supported")
	}

	if strings.TrimSpace(req.ClientID) == "" {
		return direct("invalid_request", "client_id is required")
	}
	rp, err := v.RelyingParties.GetRelyingPartyByRPID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("authorization request for unknown client", "client_id", req.ClientID)
			return direct("unauthorized_client", "Unknown client_id")
		}
		return ValidationResult{}, fmt.Errorf("lookup relying party: %w", err)
	}
	if !rp.IsActive() {
		log.Warn("authorization request for inactive client", "client_id", req.ClientID)
		return direct("unauthorized_client", "Unknown client_id")
	}

	if strings.TrimSpace(req.RedirectURI) == "" {
		return direct("invalid_request", "redirect_uri is required")
	}
	if !rp.HasRedirectURI(req.RedirectURI) {
		log.Warn("unregistered redirect_uri", "client_id", req.ClientID, "redirect_uri", req.RedirectURI)
		return direct("invalid_request", "redirect_uri is not registered for this client")
	}
	if desc := v.checkRedirectScheme(req.RedirectURI); desc != "" {
		log.Warn("rejected redirect_uri scheme", "client_id", req.ClientID, "redirect_uri", req.RedirectURI)
		return direct("invalid_request", desc)
	}

	forceLogin := false
	for _, p := range strings.Fields(req.Prompt) {
		switch {
		case unsupportedPrompts[p]:
			return ValidationResult{Err: &ValidationError{
				Code:        "invalid_request",
				Description: "Unsupported prompt value: " + p,
				RedirectURI: req.RedirectURI,
				State:       req.State,
			}}, nil
		case p == promptLogin:
			forceLogin = true
		default:
			log.Debug("ignoring unknown prompt value", "prompt", p)
		}
	}

	return ValidationResult{Request: &ValidatedRequest{
		AuthorizationParams: domain.AuthorizationParams{
			ClientID:            req.ClientID,
			RedirectURI:         req.RedirectURI,
			Scope:               req.Scope,
			State:               req.State,
			Nonce:               req.Nonce,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: req.CodeChallengeMethod,
		},
		RelyingParty: rp,
		ForceLogin:   forceLogin,
	}}, nil
}

// checkRedirectScheme returns a description of the problem, or "" when the
// scheme is acceptable.
func (v *AuthorizationRequestValidator) checkRedirectScheme(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redirect_uri is malformed"
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		return ""
	case "http":
		if v.Config.AllowHTTPLocalhost && isLoopbackHost(u.Hostname()) {
			return ""
		}
		return "redirect_uri must use https (except localhost in dev mode)"
	case "":
		return "redirect_uri must have a scheme"
	default:
		return "redirect_uri scheme not supported"
	}
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
