// Package auth decodes the bearer tokens issued by the SkyNet API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

const (
	roleClaimURI   = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	emailClaimURI  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	nameIDClaimURI = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	expiryLeeway   = 30 * time.Second
)

// ErrMalformedToken is returned when a token cannot be parsed or lacks a subject.
var ErrMalformedToken = errors.New("auth: malformed token")

// Decoder extracts identity claims from remote tokens. When a secret is
// configured the HS256 signature is verified; otherwise the payload is read
// without verification and the remote API stays the authority.
type Decoder struct {
	secret []byte
	now    func() time.Time
}

// NewDecoder constructs a Decoder. An empty secret disables signature checks.
func NewDecoder(secret string, now func() time.Time) *Decoder {
	if now == nil {
		now = time.Now
	}
	d := &Decoder{now: now}
	if s := strings.TrimSpace(secret); s != "" {
		d.secret = []byte(s)
	}
	return d
}

// Decode implements application.TokenDecoder.
func (d *Decoder) Decode(token string) (application.TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return application.TokenClaims{}, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	var err error
	if d.secret == nil {
		_, _, err = parser.ParseUnverified(token, claims)
	} else {
		_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return d.secret, nil
		}, jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{"HS256"}))
	}
	if err != nil {
		return application.TokenClaims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	out := application.TokenClaims{
		UserID: firstString(claims, "id", "sub", "nameid", nameIDClaimURI),
		Email:  strings.ToLower(firstString(claims, "email", emailClaimURI)),
		Roles:  roles(claims),
	}
	if out.UserID == "" {
		return application.TokenClaims{}, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
		if d.now().After(exp.Time.Add(expiryLeeway)) {
			return application.TokenClaims{}, jwt.ErrTokenExpired
		}
	}
	return out, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// roles reads "role" and falls back to the Microsoft role claim. Either may
// hold a single string or an array.
func roles(claims jwt.MapClaims) []string {
	for _, key := range []string{"role", "roles", roleClaimURI} {
		switch v := claims[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return []string{s}
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
