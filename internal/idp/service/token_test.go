package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTokenExchange(t *testing.T) {
	t.Parallel()

	t.Run("issues a pairwise id token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := f.signedIn(t)
		pkce := newPKCE(t)

		res, err := f.token.Exchange(f.ctx(), f.tokenRequest(f.codeFor(t, sess, pkce), pkce))
		require.NoError(t, err)
		require.Equal(t, int(jwtx.DefaultIDTokenTTL/time.Second), res.ExpiresIn)

		claims, err := f.keys.KeySet().Verify(res.IDToken, testIssuer, f.rp.RPID)
		require.NoError(t, err)
		require.Equal(t, f.pairwise.Derive(sess.UserID, f.rp.SectorID), claims.Subject)
		require.Equal(t, "app.example.com", f.rp.SectorID)
		require.NotEqual(t, sess.UserID, claims.Subject)
		require.Equal(t, "n-0S6_WzA2Mj", claims.Nonce)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokenExchanges.WithLabelValues(OutcomeSuccess)))
	})

	t.Run("code is single use", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)

		_, err := f.token.Exchange(f.ctx(), req)
		require.NoError(t, err)
		_, err = f.token.Exchange(f.ctx(), req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("grant type is checked first", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.token.Exchange(f.ctx(), TokenRequest{GrantType: "client_credentials"})
		require.ErrorIs(t, err, ErrUnsupportedGrantType)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TokenExchanges.WithLabelValues("unsupported_grant_type")))
	})

	t.Run("missing parameters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		full := f.tokenRequest("code", pkce)

		for _, mutate := range []func(r *TokenRequest){
			func(r *TokenRequest) { r.Code = "" },
			func(r *TokenRequest) { r.ClientID = "  " },
			func(r *TokenRequest) { r.CodeVerifier = "" },
			func(r *TokenRequest) { r.RedirectURI = "" },
		} {
			req := full
			mutate(&req)
			_, err := f.token.Exchange(f.ctx(), req)
			require.ErrorIs(t, err, ErrInvalidRequest)
		}
	})

	t.Run("unknown client does not consume the code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)

		bad := req
		bad.ClientID = "nobody"
		_, err := f.token.Exchange(f.ctx(), bad)
		require.ErrorIs(t, err, ErrInvalidClient)

		_, err = f.token.Exchange(f.ctx(), req)
		require.NoError(t, err)
	})

	t.Run("failed pkce burns the code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)

		bad := req
		bad.CodeVerifier = newPKCE(t).verifier
		_, err := f.token.Exchange(f.ctx(), bad)
		require.ErrorIs(t, err, ErrInvalidGrant)

		_, err = f.token.Exchange(f.ctx(), req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("redirect uri must match", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)
		req.RedirectURI = "http://localhost:3000/cb"

		_, err := f.token.Exchange(f.ctx(), req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("code is bound to its client", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		other, err := f.rps.Create(f.ctx(), "", RelyingPartyInput{
			Name:         "Other",
			RedirectURIs: []string{testRedirectURI},
		})
		require.NoError(t, err)

		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)
		req.ClientID = other.RPID

		_, err = f.token.Exchange(f.ctx(), req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("expired code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pkce := newPKCE(t)
		req := f.tokenRequest(f.codeFor(t, f.signedIn(t), pkce), pkce)

		f.clock.Advance(DefaultCodeValidity)
		_, err := f.token.Exchange(f.ctx(), req)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("sector drives the subject", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sess := f.signedIn(t)

		shared, err := f.rps.Create(f.ctx(), "", RelyingPartyInput{
			Name:         "Same Sector",
			RedirectURIs: []string{"https://other.example.com/cb"},
			SectorID:     f.rp.SectorID,
		})
		require.NoError(t, err)

		pkce := newPKCE(t)
		first, err := f.token.Exchange(f.ctx(), f.tokenRequest(f.codeFor(t, sess, pkce), pkce))
		require.NoError(t, err)

		authReq := f.authRequest(pkce)
		authReq.ClientID = shared.RPID
		authReq.RedirectURI = "https://other.example.com/cb"
		location, err := f.authorize.Authorize(f.ctx(), sess, authReq)
		require.NoError(t, err)
		code, _, err := parseCallback(location)
		require.NoError(t, err)

		second, err := f.token.Exchange(f.ctx(), TokenRequest{
			GrantType:    GrantTypeAuthorizationCode,
			Code:         code,
			ClientID:     shared.RPID,
			CodeVerifier: pkce.verifier,
			RedirectURI:  "https://other.example.com/cb",
		})
		require.NoError(t, err)

		a, err := f.keys.KeySet().Verify(first.IDToken, testIssuer, f.rp.RPID)
		require.NoError(t, err)
		b, err := f.keys.KeySet().Verify(second.IDToken, testIssuer, shared.RPID)
		require.NoError(t, err)
		require.Equal(t, a.Subject, b.Subject)
	})
}
