// Package authsdk is the relying-party side client for the nullprofile
// identity provider.
//
// A relying party uses it to run the authorization code flow with PKCE:
//
//	client := authsdk.NewSDKClient("https://id.example.com")
//
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	nonce, _ := authsdk.GenerateNonce()
//	redirect := client.BuildAuthorizeURL(clientID, callbackURL, state, nonce, pkce)
//	// send the browser to redirect, then on the callback:
//
//	code, gotState, err := authsdk.ParseAuthorizationCallback(callbackURLWithQuery)
//	tokens, err := client.ExchangeAuthorizationCode(ctx, clientID, code, callbackURL, pkce.Verifier)
//
//	verifier, err := client.NewIDTokenVerifier(ctx, clientID)
//	idToken, err := verifier.Verify(tokens.IDToken, nonce)
//	// idToken.Subject is the pairwise subject for this relying party.
//
// The package also carries the wire types and OAuth2 error values shared with
// the server's HTTP handlers.
package authsdk
