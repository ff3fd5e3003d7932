package l402

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestParseChallengeQuoted(t *testing.T) {
	header := `L402 macaroon="abc123mac", invoice="lnbc10u1ptest"`

	ch, err := ParseChallenge(header)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != "abc123mac" {
		t.Errorf("Expected macaroon 'abc123mac', got '%s'", ch.Macaroon)
	}
	if ch.Invoice != "lnbc10u1ptest" {
		t.Errorf("Expected invoice 'lnbc10u1ptest', got '%s'", ch.Invoice)
	}
}

func TestParseChallengeUnquoted(t *testing.T) {
	ch, err := ParseChallenge("L402 macaroon=abc123mac, invoice=lnbc10u1ptest")
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != "abc123mac" || ch.Invoice != "lnbc10u1ptest" {
		t.Errorf("Unexpected challenge: %+v", ch)
	}
}

func TestParseChallengeLSATCompat(t *testing.T) {
	ch, err := ParseChallenge(`LSAT macaroon="abc123mac", invoice="lnbc10u1ptest"`)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != "abc123mac" {
		t.Errorf("Expected LSAT scheme to parse, got '%s'", ch.Macaroon)
	}
}

func TestParseChallengeCaseInsensitiveScheme(t *testing.T) {
	for _, header := range []string{
		`l402 macaroon="m", invoice="i"`,
		`L402 MACAROON="m", INVOICE="i"`,
		`lsat macaroon="m", invoice="i"`,
	} {
		ch, err := ParseChallenge(header)
		if err != nil {
			t.Errorf("ParseChallenge(%q) failed: %v", header, err)
			continue
		}
		if ch.Macaroon != "m" || ch.Invoice != "i" {
			t.Errorf("ParseChallenge(%q) = %+v", header, ch)
		}
	}
}

func TestParseChallengeParameterOrderFree(t *testing.T) {
	ch, err := ParseChallenge(`L402 invoice="lnbc10u1ptest", macaroon="mac"`)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != "mac" || ch.Invoice != "lnbc10u1ptest" {
		t.Errorf("Unexpected challenge: %+v", ch)
	}
}

func TestParseChallengeIgnoresUnknownParams(t *testing.T) {
	header := `L402 realm="paywall", macaroon="mac", invoice="lnbc10u1ptest", scope="read"`
	ch, err := ParseChallenge(header)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != "mac" || ch.Invoice != "lnbc10u1ptest" {
		t.Errorf("Unexpected challenge: %+v", ch)
	}
}

func TestParseChallengeComplexMacaroon(t *testing.T) {
	mac := "AgEEbHNhdAJCAABhIGludm9pY2VfaWQ9dGVzdF8xMjM0NTY3ODkwAAAGIA"
	ch, err := ParseChallenge(`L402 macaroon="` + mac + `", invoice="lnbc500n1p0test"`)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}
	if ch.Macaroon != mac {
		t.Errorf("Expected full macaroon preserved, got '%s'", ch.Macaroon)
	}
}

func TestParseChallengeErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reason string
	}{
		{"empty header", "", "empty header"},
		{"whitespace only", "   ", "empty header"},
		{"wrong scheme", "Basic realm=test", "no L402/LSAT challenge found"},
		{"bearer scheme", "Bearer realm=api", "no L402/LSAT challenge found"},
		{"missing macaroon", `L402 invoice="lnbc10u1ptest"`, "empty macaroon"},
		{"empty macaroon value", `L402 macaroon="", invoice="lnbc10u1ptest"`, "empty macaroon"},
		{"missing invoice", `L402 macaroon="mac"`, "empty invoice"},
		{"empty invoice value", `L402 macaroon="mac", invoice=""`, "empty invoice"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseChallenge(test.header)
			var ce *ChallengeError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ChallengeError, got %v", err)
			}
			if ce.Reason != test.reason {
				t.Errorf("Expected reason '%s', got '%s'", test.reason, ce.Reason)
			}
		})
	}
}

func TestParseChallengeSchemeNameInsideValueIgnored(t *testing.T) {
	// A scheme tag must stand alone, not appear inside another value.
	_, err := ParseChallenge(`Basic realm="l402land"`)
	var ce *ChallengeError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ChallengeError, got %v", err)
	}
}

func TestFindChallengeSingleHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("WWW-Authenticate", `L402 macaroon="mac123", invoice="lnbc10u1p"`)

	ch, err := FindChallenge(resp)
	if err != nil {
		t.Fatalf("FindChallenge failed: %v", err)
	}
	if ch.Macaroon != "mac123" {
		t.Errorf("Expected macaroon 'mac123', got '%s'", ch.Macaroon)
	}
}

func TestFindChallengeFirstParseableWins(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("WWW-Authenticate", "Bearer realm=api")
	resp.Header.Add("WWW-Authenticate", `L402 macaroon="mac123", invoice="lnbc10u1p"`)
	resp.Header.Add("WWW-Authenticate", `L402 macaroon="other", invoice="lnbc20u1p"`)

	ch, err := FindChallenge(resp)
	if err != nil {
		t.Fatalf("FindChallenge failed: %v", err)
	}
	if ch.Macaroon != "mac123" {
		t.Errorf("Expected first parseable challenge, got '%s'", ch.Macaroon)
	}
}

func TestFindChallengeMissingHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}

	_, err := FindChallenge(resp)
	var ce *ChallengeError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ChallengeError, got %v", err)
	}
	if !strings.Contains(ce.Reason, "missing WWW-Authenticate") {
		t.Errorf("Expected missing header reason, got '%s'", ce.Reason)
	}
}

func TestFindChallengeUnparseableHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("WWW-Authenticate", "Bearer realm=test")

	_, err := FindChallenge(resp)
	var ce *ChallengeError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *ChallengeError, got %v", err)
	}
}

func TestChallengeRoundTripToAuthorization(t *testing.T) {
	ch, err := ParseChallenge(`L402 macaroon="mac123", invoice="lnbc10u1ptest"`)
	if err != nil {
		t.Fatalf("ParseChallenge failed: %v", err)
	}

	cred := &Credential{Macaroon: ch.Macaroon, Preimage: "deadbeef"}
	if got := cred.AuthorizationHeader(); got != "L402 mac123:deadbeef" {
		t.Errorf("Expected 'L402 mac123:deadbeef', got '%s'", got)
	}
}
