// Package credential issues the verifiable credential that closes out a
// search request's provenance trail. No verifiable-credential library
// appears anywhere in the example corpus, so the credential is modeled as a
// signed JWT whose claims name the search request ID, the issuer and the
// issue/expiry times; the answer and its evidence are not included, so
// they are looked up from the service by that ID — grounded on
// the pack-wide use of github.com/golang-jwt/jwt for bearer-token issuance,
// generalized here from "who is allowed to call this API" to "what backs
// this answer".
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs a credential binding a search request id to the moment it
// was answered. Every LanguageModel backend embeds one so IssueCredential
// doesn't need a provider-specific implementation.
type Issuer struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
}

func NewIssuer(signingKey []byte, issuerName string, ttl time.Duration) Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return Issuer{SigningKey: signingKey, Issuer: issuerName, TTL: ttl}
}

// IssueCredential mints a compact JWS and returns it wrapped as a URN the
// caller can resolve and verify; the query pipeline stores this value
// verbatim on the SearchRequest as CredentialURL.
func (i Issuer) IssueCredential(ctx context.Context, searchID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": searchID,
		"iss": i.Issuer,
		"iat": now.Unix(),
		"exp": now.Add(i.TTL).Unix(),
		"vc": map[string]any{
			"type":    []string{"VerifiableCredential", "KnowledgeServiceSearchProvenance"},
			"subject": searchID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.SigningKey)
	if err != nil {
		return "", fmt.Errorf("issue credential: sign: %w", err)
	}
	return fmt.Sprintf("urn:knowledgeservice:credential:%s", signed), nil
}
