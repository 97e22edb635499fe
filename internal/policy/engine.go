// Package policy evaluates booking admission rules written in Rego.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Decision results a policy may return.
const (
	ResultAllow = "allow"
	ResultBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from Rego source. The module must define
// data.booking_policy.decision as {"result": ..., "reason": ...}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.booking_policy.decision"),
		rego.Module("booking_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Load builds an engine from the file at path, or from DefaultPolicy when path is empty.
func Load(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks a complete draft against the policy.
func (e *Engine) Evaluate(ctx context.Context, draft domain.BookingDraft) (domain.PolicyDecision, error) {
	input := map[string]interface{}{
		"name":  draft.Name,
		"email": draft.Email,
		"date":  draft.Date,
		"time":  draft.Time,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// Undefined decision: the policy has no default.
		return domain.PolicyDecision{Allowed: true}, nil
	}

	val, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return domain.PolicyDecision{}, fmt.Errorf("policy decision has unexpected type %T", results[0].Expressions[0].Value)
	}
	result, _ := val["result"].(string)
	reason, _ := val["reason"].(string)

	switch result {
	case ResultAllow:
		return domain.PolicyDecision{Allowed: true, Reason: reason}, nil
	case ResultBlock:
		return domain.PolicyDecision{Allowed: false, Reason: reason}, nil
	}
	return domain.PolicyDecision{}, fmt.Errorf("policy returned unknown result %q", result)
}

// DefaultPolicy rejects disposable email providers.
const DefaultPolicy = `
package booking_policy

default decision := {"result": "allow", "reason": ""}

disposable_domains := {
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"yopmail.com",
	"example.invalid",
}

email_domain := lower(split(input.email, "@")[1])

decision := {"result": "block", "reason": sprintf("Email addresses at %s are not accepted, please use another address.", [email_domain])} if {
	email_domain in disposable_domains
}
`
