package identity

import (
	"crypto/rsa"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = eris.New("missing bearer token")
	// ErrInvalidToken indicates the bearer token failed verification.
	ErrInvalidToken = eris.New("invalid bearer token")
)

// VerifierOptions configures bearer-token verification. A PEM public key selects
// RS256 session tokens, otherwise Secret selects HS256.
type VerifierOptions struct {
	Secret       string
	PublicKeyPEM string
	Issuer       string
}

// Verifier validates identity-provider session tokens and extracts the caller.
type Verifier struct {
	hmacKey   []byte
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

// NewVerifier constructs a token verifier.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	v := &Verifier{}

	parserOptions := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer := strings.TrimSpace(opts.Issuer); issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}

	switch {
	case strings.TrimSpace(opts.PublicKeyPEM) != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(opts.PublicKeyPEM))
		if err != nil {
			return nil, eris.Wrap(err, "parsing identity public key")
		}
		v.publicKey = key
		parserOptions = append(parserOptions, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case opts.Secret != "":
		v.hmacKey = []byte(opts.Secret)
		parserOptions = append(parserOptions, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	default:
		return nil, eris.New("identity secret or public key is required")
	}

	v.parser = jwt.NewParser(parserOptions...)
	return v, nil
}

// Verify parses the token and returns the caller named by its subject claim.
func (v *Verifier) Verify(token string) (Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Caller{}, ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.key)
	if err != nil {
		return Caller{}, eris.Wrap(ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		return Caller{}, ErrInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Caller{}, eris.Wrap(ErrInvalidToken, "token subject is empty")
	}

	return Caller{ExternalID: subject}, nil
}

func (v *Verifier) key(_ *jwt.Token) (interface{}, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.hmacKey, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
