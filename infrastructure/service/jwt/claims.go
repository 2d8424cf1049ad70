package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// numericDate is a JWT NumericDate carried at millisecond precision and
// decoded exactly from its decimal text. jwt.NumericDate goes through a
// float64, which can land one millisecond early and break the ordering
// between a logout and a login inside the same second.
type numericDate struct {
	time.Time
}

func newNumericDate(t time.Time) *numericDate {
	return &numericDate{t.UTC().Truncate(time.Millisecond)}
}

func (d numericDate) MarshalJSON() ([]byte, error) {
	ms := d.UnixMilli()
	sec, frac := ms/1000, ms%1000
	if frac == 0 {
		return []byte(strconv.FormatInt(sec, 10)), nil
	}
	return []byte(fmt.Sprintf("%d.%03d", sec, frac)), nil
}

func (d *numericDate) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	if strings.ContainsAny(s, "eE") {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("numeric date: %w", err)
		}
		sec, frac := math.Modf(f)
		d.Time = time.Unix(int64(sec), int64(math.Round(frac*1e3))*int64(time.Millisecond)).UTC()
		return nil
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return fmt.Errorf("numeric date: %w", err)
	}
	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nanos, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return fmt.Errorf("numeric date: %w", err)
		}
		if sec < 0 {
			nanos = -nanos
		}
	}
	d.Time = time.Unix(sec, nanos).UTC().Truncate(time.Millisecond)
	return nil
}

func (d *numericDate) jwt() (*jwt.NumericDate, error) {
	if d == nil {
		return nil, nil
	}
	return &jwt.NumericDate{Time: d.Time}, nil
}

// tokenClaims is the wire claim-set. typ is absent on tokens minted
// before the access/refresh split.
type tokenClaims struct {
	Subject   string       `json:"sub"`
	Issuer    string       `json:"iss,omitempty"`
	IssuedAt  *numericDate `json:"iat"`
	ExpiresAt *numericDate `json:"exp"`
	Type      string       `json:"typ,omitempty"`
}

var _ jwt.Claims = (*tokenClaims)(nil)

func (c *tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt.jwt() }
func (c *tokenClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt.jwt() }
func (c *tokenClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *tokenClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *tokenClaims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c *tokenClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
