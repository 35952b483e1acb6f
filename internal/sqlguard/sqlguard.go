// Package sqlguard screens model-generated SQL before it reaches the trip
// store. It is a lexical gate, not a parser: checks are ordered substring
// rules, and the first violated rule determines the reported reason.
package sqlguard

import (
	"fmt"
	"strings"
)

// Rule names identify which check rejected a query.
const (
	RuleForbiddenKeyword   = "forbidden_keyword"
	RuleNotSelect          = "not_select"
	RuleMultipleStatements = "multiple_statements"
	RuleMissingFrom        = "missing_from"
	RuleWrongTable         = "wrong_table"
)

// RejectionError reports why a query failed validation. Token is set only for
// forbidden-keyword rejections.
type RejectionError struct {
	Rule   string
	Token  string
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Policy is an immutable validation policy: an ordered deny list and the
// single table queries may reference. The zero value rejects everything
// sensible; construct with NewPolicy or DefaultPolicy.
type Policy struct {
	deniedTokens []string
	allowedTable string
}

func NewPolicy(deniedTokens []string, allowedTable string) Policy {
	tokens := make([]string, len(deniedTokens))
	for i, token := range deniedTokens {
		tokens[i] = strings.ToUpper(token)
	}
	return Policy{deniedTokens: tokens, allowedTable: allowedTable}
}

// DefaultPolicy guards the uber_trips table. The deny list covers
// data-mutation verbs, privilege verbs, and statement-combination markers;
// scan order is part of the contract since the first match names the
// rejection. EXECUTE never matches before EXEC does, and is kept anyway so
// the list reads as the full set of banned verbs.
func DefaultPolicy() Policy {
	return NewPolicy([]string{
		"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE", "TRUNCATE",
		"EXEC", "EXECUTE", "GRANT", "REVOKE", "UNION", "--", ";",
	}, "uber_trips")
}

func (p Policy) AllowedTable() string {
	return p.allowedTable
}

func (p Policy) DeniedTokens() []string {
	tokens := make([]string, len(p.deniedTokens))
	copy(tokens, p.deniedTokens)
	return tokens
}

// Validate applies the checks in order and returns a *RejectionError for the
// first one that fails.
func (p Policy) Validate(sql string) error {
	upper := strings.TrimSpace(strings.ToUpper(sql))

	for _, token := range p.deniedTokens {
		if strings.Contains(upper, token) {
			return &RejectionError{
				Rule:   RuleForbiddenKeyword,
				Token:  token,
				Reason: fmt.Sprintf("Forbidden SQL keyword detected: %s", token),
			}
		}
	}

	if !strings.HasPrefix(upper, "SELECT") {
		return &RejectionError{Rule: RuleNotSelect, Reason: "Only SELECT queries are allowed"}
	}

	// The statement counter runs over the raw text: a lowercase nested
	// select does not count as a second statement.
	if strings.Contains(sql, ";") || strings.Count(sql, "SELECT") > 1 {
		return &RejectionError{Rule: RuleMultipleStatements, Reason: "Multiple statements not allowed"}
	}

	if !strings.Contains(upper, "FROM") {
		return &RejectionError{Rule: RuleMissingFrom, Reason: "SQL must contain FROM clause"}
	}

	if !strings.Contains(upper, strings.ToUpper(p.allowedTable)) {
		return &RejectionError{
			Rule:   RuleWrongTable,
			Reason: fmt.Sprintf("Query must reference %s table", p.allowedTable),
		}
	}

	return nil
}
