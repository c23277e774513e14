package models

import (
	"fmt"
	"time"
)

// Target identifies exactly one cacheable artifact: a company's filing, a category and, for
// statements, a consolidation scope.
type Target struct {
	Company  Company
	Filing   Filing
	Category Category
	Scope    Scope // empty for capital composition
}

// StatementTarget builds the target for one statement category and scope.
func StatementTarget(company Company, filing Filing, category Category, scope Scope) Target {
	return Target{Company: company, Filing: filing, Category: category, Scope: scope}
}

// CapitalTarget builds the capital-composition target of a filing.
func CapitalTarget(company Company, filing Filing) Target {
	return Target{Company: company, Filing: filing, Category: CategoryCapital}
}

// Targets lists every target of a filing: the six statement targets (individual first) followed
// by capital composition.
func Targets(company Company, filing Filing) []Target {
	targets := make([]Target, 0, len(Scopes)*len(StatementCategories)+1)
	for _, scope := range Scopes {
		for _, category := range StatementCategories {
			targets = append(targets, StatementTarget(company, filing, category, scope))
		}
	}
	return append(targets, CapitalTarget(company, filing))
}

func (t Target) String() string {
	scope := string(t.Scope)
	if scope == "" {
		scope = "-"
	}
	return fmt.Sprintf("%s %s/%s %s %s", t.Company.LegalName, t.Category, scope,
		t.Filing.Kind, t.Filing.ReferenceLabel())
}

// ArtifactState is the on-disk state of a target's artifact. It is recomputed on every check.
type ArtifactState struct {
	Exists    bool
	LastWrite time.Time
}
