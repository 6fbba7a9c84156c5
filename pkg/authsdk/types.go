package authsdk

// ErrorResponse is the JSON body of a protocol error.
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_grant"`
	ErrorDescription string `json:"error_description,omitempty" example:"authorization code is invalid, expired or already used"`
}

// TokenResponse is the body of a successful code exchange.
type TokenResponse struct {
	IDToken   string `json:"id_token"`
	TokenType string `json:"token_type" example:"Bearer"`
	ExpiresIn int    `json:"expires_in" example:"3600"`
}

// DiscoveryDocument is the OpenID Provider metadata.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// CeremonyResponse is returned by the WebAuthn verify endpoints. Redirect is
// set when the ceremony was bound to an authorization transaction.
type CeremonyResponse struct {
	Status   string `json:"status" example:"ok"`
	Redirect string `json:"redirect,omitempty" example:"/authorize/resume?txn=2D3bXwq4YGxV9kRdJHzqfDL1m0a"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty" example:"1h23m45s"`
	Version string        `json:"version,omitempty" example:"v0.1.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of critical dependencies.
type HealthChecks struct {
	Database string `json:"database" example:"ok"`
	Signer   string `json:"signer" example:"ok"`
}

// SessionResponse is returned by GET /api/session/current.
type SessionResponse struct {
	UserID      string `json:"userId" example:"0b8a3a3e-5b7c-4c53-9d7b-2f4f1c0d9e11"`
	DisplayName string `json:"displayName,omitempty" example:"Alice"`
}

// CeremonyOptionsRequest starts a WebAuthn ceremony. Txn binds the ceremony
// to a pending authorization.
type CeremonyOptionsRequest struct {
	Txn         string `json:"txn,omitempty"`
	DisplayName string `json:"displayName,omitempty" example:"Alice"`
}

// PasskeyResponse describes one registered passkey.
type PasskeyResponse struct {
	ID         string  `json:"id" example:"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
	Name       string  `json:"name" example:"Work laptop"`
	CreatedAt  string  `json:"createdAt" example:"2025-01-01T12:00:00Z"`
	LastUsedAt *string `json:"lastUsedAt,omitempty" example:"2025-01-02T08:30:00Z"`
}

// RenamePasskeyRequest is the body of PUT /api/passkeys/{id}.
type RenamePasskeyRequest struct {
	Name string `json:"name" example:"Work laptop"`
}

// RelyingPartyRequest creates or updates a relying party.
type RelyingPartyRequest struct {
	Name           string   `json:"name" example:"Example App"`
	RedirectURIs   []string `json:"redirectUris" example:"https://app.example.com/callback"`
	SectorID       string   `json:"sectorId,omitempty" example:"app.example.com"`
	LogoURL        string   `json:"logoUrl,omitempty" example:"https://app.example.com/logo.png"`
	PrimaryColor   string   `json:"primaryColor,omitempty" example:"#1f6feb"`
	SecondaryColor string   `json:"secondaryColor,omitempty" example:"#ffffff"`
}

// RelyingPartySummary is one entry of GET /api/relying-parties.
type RelyingPartySummary struct {
	ID        string `json:"id" example:"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
	RPID      string `json:"rpId" example:"2D3bXwq4YGxV9kRdJHzqfDL1m0a"`
	Name      string `json:"name" example:"Example App"`
	Status    string `json:"status" example:"ACTIVE"`
	CreatedAt string `json:"createdAt" example:"2025-01-01T12:00:00Z"`
}

// RelyingPartyResponse is the full view of a relying party.
type RelyingPartyResponse struct {
	RelyingPartySummary

	RedirectURIs   []string `json:"redirectUris"`
	SectorID       string   `json:"sectorId" example:"app.example.com"`
	LogoURL        string   `json:"logoUrl,omitempty"`
	PrimaryColor   string   `json:"primaryColor,omitempty"`
	SecondaryColor string   `json:"secondaryColor,omitempty"`
	UpdatedAt      string   `json:"updatedAt" example:"2025-01-01T12:00:00Z"`
}

// BrandingResponse is what the login page shows for a pending transaction.
type BrandingResponse struct {
	RPName         string `json:"rpName" example:"Example App"`
	DisplayName    string `json:"displayName" example:"Example App"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
}
