package store

import (
	"fmt"
	"strings"

	"idhub/internal/credential/models"
	pkgerrors "idhub/pkg/domain-errors"
)

// Validate rejects predicates outside the enumerated query language before
// any implementation touches them, so memory and postgres behave identically
// on malformed input.
func (p Predicate) Validate() error {
	switch p.Op {
	case OpEq, OpContains:
	default:
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "unsupported query operator: "+string(p.Op))
	}
	switch {
	case p.Field == FieldIssuer, p.Field == FieldHolder, p.Field == FieldStatus, p.Field == FieldFormat:
	case strings.HasPrefix(p.Field, claimsPrefix) && len(p.Field) > len(claimsPrefix):
	default:
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "unsupported query field: "+p.Field)
	}
	return nil
}

// matches evaluates the predicate against an in-memory resource. The postgres
// implementation compiles the same semantics to SQL; keep the two in sync.
func (p Predicate) matches(res models.VerifiableCredentialResource) bool {
	if strings.HasPrefix(p.Field, claimsPrefix) {
		return p.matchesClaim(res.StructuredCredential[strings.TrimPrefix(p.Field, claimsPrefix)])
	}

	var value string
	switch p.Field {
	case FieldIssuer:
		value = res.IssuerID
	case FieldHolder:
		value = res.HolderID
	case FieldStatus:
		value = string(res.Status)
	case FieldFormat:
		value = res.Format.String()
	default:
		return false
	}
	if p.Op == OpEq {
		return value == p.Value
	}
	return strings.Contains(value, p.Value)
}

func (p Predicate) matchesClaim(claim interface{}) bool {
	switch v := claim.(type) {
	case nil:
		return false
	case string:
		if p.Op == OpEq {
			return v == p.Value
		}
		return strings.Contains(v, p.Value)
	case []interface{}:
		// "contains" on an array claim means membership.
		for _, item := range v {
			if fmt.Sprintf("%v", item) == p.Value {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == p.Value {
				return true
			}
		}
		return false
	default:
		return p.Op == OpEq && fmt.Sprintf("%v", v) == p.Value
	}
}

func matchesAll(res models.VerifiableCredentialResource, predicates []Predicate) bool {
	for _, p := range predicates {
		if !p.matches(res) {
			return false
		}
	}
	return true
}
