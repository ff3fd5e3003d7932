package l402

import (
	"net/http"
	"regexp"
	"strings"
)

// Challenge is a payment challenge parsed from a 402 response.
//
// The wire format is an RFC 7235 style WWW-Authenticate value:
//
//	L402 macaroon="<mac>", invoice="<bolt11>"
//
// The legacy LSAT scheme tag and unquoted parameter values are accepted,
// parameter order is free, and unknown parameters are ignored.
type Challenge struct {
	// Macaroon is the opaque credential identifier issued by the server.
	Macaroon string
	// Invoice is the BOLT11 payment request settling the challenge.
	Invoice string
	// Host is the normalized authority the challenge was issued by.
	Host string
}

var (
	challengeSchemeRe = regexp.MustCompile(`(?i)(?:^|[\s,])(?:l402|lsat)\s+`)
	challengeParamRe  = regexp.MustCompile(`(\w+)\s*=\s*(?:"([^"]*)"|([^\s",]+))`)
)

// ParseChallenge extracts a Challenge from a WWW-Authenticate header value.
// It returns a *ChallengeError when the value carries no usable challenge.
func ParseChallenge(header string) (*Challenge, error) {
	if strings.TrimSpace(header) == "" {
		return nil, &ChallengeError{Reason: "empty header", Header: header}
	}

	loc := challengeSchemeRe.FindStringIndex(header)
	if loc == nil {
		return nil, &ChallengeError{Reason: "no L402/LSAT challenge found", Header: header}
	}

	ch := &Challenge{}
	for _, m := range challengeParamRe.FindAllStringSubmatch(header[loc[1]:], -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		switch strings.ToLower(m[1]) {
		case "macaroon":
			ch.Macaroon = strings.TrimSpace(value)
		case "invoice":
			ch.Invoice = strings.TrimSpace(value)
		}
	}

	if ch.Macaroon == "" {
		return nil, &ChallengeError{Reason: "empty macaroon", Header: header}
	}
	if ch.Invoice == "" {
		return nil, &ChallengeError{Reason: "empty invoice", Header: header}
	}

	return ch, nil
}

// FindChallenge scans a 402 response for a payment challenge across all
// WWW-Authenticate values. The first parseable challenge wins.
func FindChallenge(resp *http.Response) (*Challenge, error) {
	values := resp.Header.Values("WWW-Authenticate")
	if len(values) == 0 {
		return nil, &ChallengeError{Reason: "missing WWW-Authenticate header"}
	}

	var lastErr error
	for _, v := range values {
		ch, err := ParseChallenge(v)
		if err == nil {
			return ch, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
