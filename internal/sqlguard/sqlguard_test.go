package sqlguard

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	policy := DefaultPolicy()
	queries := []string{
		"SELECT * FROM uber_trips",
		"select count(*) from uber_trips where booking_status = 'Success'",
		"  SELECT vehicle_type, AVG(booking_value) FROM uber_trips GROUP BY vehicle_type  ",
		"SELECT pickup_location FROM UBER_TRIPS LIMIT 5",
	}
	for _, q := range queries {
		if err := policy.Validate(q); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestValidateRejectsEveryDeniedToken(t *testing.T) {
	policy := DefaultPolicy()
	for _, token := range policy.DeniedTokens() {
		q := fmt.Sprintf("SELECT * FROM uber_trips WHERE note = '%s'", token)
		err := policy.Validate(q)
		var rej *RejectionError
		if !errors.As(err, &rej) {
			t.Fatalf("Validate with token %q: err = %v, want RejectionError", token, err)
		}
		if rej.Rule != RuleForbiddenKeyword {
			t.Fatalf("token %q: rule = %q", token, rej.Rule)
		}
		if !strings.Contains(rej.Reason, rej.Token) {
			t.Fatalf("token %q: reason %q does not name matched token %q", token, rej.Reason, rej.Token)
		}
	}
}

func TestValidateDenyScanIsCaseInsensitive(t *testing.T) {
	err := DefaultPolicy().Validate("select * from uber_trips where x = 'drop'")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if rej.Token != "DROP" {
		t.Fatalf("Token = %q, want DROP", rej.Token)
	}
	if rej.Reason != "Forbidden SQL keyword detected: DROP" {
		t.Fatalf("Reason = %q", rej.Reason)
	}
}

func TestValidateExecShadowsExecute(t *testing.T) {
	// EXEC precedes EXECUTE in the deny list and is a substring of it, so an
	// EXECUTE in the input is always reported as EXEC.
	err := DefaultPolicy().Validate("EXECUTE something")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if rej.Token != "EXEC" {
		t.Fatalf("Token = %q, want EXEC", rej.Token)
	}
}

func TestValidateChecksApplyInOrder(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		name string
		sql  string
		rule string
	}{
		// DROP is named even though the statement also is not a SELECT.
		{"deny list first", "DROP TABLE trips", RuleForbiddenKeyword},
		{"not a select", "SHOW TABLES", RuleNotSelect},
		{"two selects", "SELECT * FROM uber_trips WHERE id IN (SELECT id FROM uber_trips)", RuleMultipleStatements},
		{"missing from", "SELECT 1", RuleMissingFrom},
		{"wrong table", "SELECT * FROM customers", RuleWrongTable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.sql)
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("Validate(%q) = %v, want RejectionError", tc.sql, err)
			}
			if rej.Rule != tc.rule {
				t.Fatalf("Validate(%q) rule = %q, want %q", tc.sql, rej.Rule, tc.rule)
			}
		})
	}
}

func TestValidateSemicolonHitsDenyListBeforeMultipleStatements(t *testing.T) {
	err := DefaultPolicy().Validate("SELECT * FROM uber_trips; SELECT 1")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if rej.Rule != RuleForbiddenKeyword || rej.Token != ";" {
		t.Fatalf("rule = %q token = %q, want forbidden ;", rej.Rule, rej.Token)
	}
}

func TestValidateMultipleSelectCountIsCaseSensitive(t *testing.T) {
	// The statement counter runs over the raw text, so a lowercase nested
	// select passes while an uppercase one trips the rule.
	q := "SELECT * FROM uber_trips WHERE vehicle_type IN (select vehicle_type from uber_trips)"
	if err := DefaultPolicy().Validate(q); err != nil {
		t.Fatalf("Validate(%q) = %v, want nil", q, err)
	}

	q = "SELECT * FROM uber_trips WHERE vehicle_type IN (SELECT vehicle_type FROM uber_trips)"
	err := DefaultPolicy().Validate(q)
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("Validate(%q) = %v, want RejectionError", q, err)
	}
	if rej.Rule != RuleMultipleStatements {
		t.Fatalf("rule = %q, want %q", rej.Rule, RuleMultipleStatements)
	}
}

func TestValidateSubstringScanRejectsColumnNamesTooAggressively(t *testing.T) {
	// Known sharp edge of the lexical gate: created_at contains CREATE. The
	// scan is substring based, so this query is rejected even though it is a
	// harmless SELECT.
	err := DefaultPolicy().Validate("SELECT * FROM uber_trips WHERE created_at > '2024-01-01'")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if rej.Token != "CREATE" {
		t.Fatalf("Token = %q, want CREATE", rej.Token)
	}
}

func TestValidateRejectionMessages(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		sql    string
		reason string
	}{
		{"SHOW TABLES", "Only SELECT queries are allowed"},
		{"SELECT * FROM uber_trips WHERE a SELECT b", "Multiple statements not allowed"},
		{"SELECT 1", "SQL must contain FROM clause"},
		{"SELECT * FROM trips", "Query must reference uber_trips table"},
	}
	for _, tc := range tests {
		err := policy.Validate(tc.sql)
		if err == nil || err.Error() != tc.reason {
			t.Fatalf("Validate(%q) = %v, want %q", tc.sql, err, tc.reason)
		}
	}
}

func TestNewPolicyUppercasesTokensAndCopies(t *testing.T) {
	tokens := []string{"drop", "merge"}
	policy := NewPolicy(tokens, "rides")
	tokens[0] = "mutated"

	got := policy.DeniedTokens()
	if got[0] != "DROP" || got[1] != "MERGE" {
		t.Fatalf("DeniedTokens() = %v", got)
	}
	if policy.AllowedTable() != "rides" {
		t.Fatalf("AllowedTable() = %q", policy.AllowedTable())
	}

	err := policy.Validate("SELECT * FROM rides WHERE op = 'MERGE'")
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Token != "MERGE" {
		t.Fatalf("custom token not enforced: %v", err)
	}
}
