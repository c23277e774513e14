package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	require.NoError(t, err)
	return parsed
}

func TestFiling_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filing  Filing
		wantErr bool
	}{
		{
			name: "regulator filing with sequence number",
			filing: Filing{
				Source:         SourceRegulator,
				Kind:           KindInterim,
				ReferenceDate:  date(t, "30/06/2009"),
				SubmissionDate: date(t, "14/08/2009"),
				SequenceNumber: 12345,
			},
		},
		{
			name: "legacy filing without sequence number",
			filing: Filing{
				Source:         SourceLegacy,
				Kind:           KindAnnual,
				ReferenceDate:  date(t, "31/12/2008"),
				SubmissionDate: date(t, "31/03/2009"),
			},
		},
		{
			name: "submission on the reference date",
			filing: Filing{
				Source:         SourceLegacy,
				Kind:           KindAnnual,
				ReferenceDate:  date(t, "31/12/2008"),
				SubmissionDate: date(t, "31/12/2008"),
			},
		},
		{
			name: "submitted before reference date",
			filing: Filing{
				Source:         SourceLegacy,
				Kind:           KindInterim,
				ReferenceDate:  date(t, "30/06/2009"),
				SubmissionDate: date(t, "01/06/2009"),
			},
			wantErr: true,
		},
		{
			name: "regulator filing missing sequence number",
			filing: Filing{
				Source:         SourceRegulator,
				Kind:           KindInterim,
				ReferenceDate:  date(t, "30/06/2009"),
				SubmissionDate: date(t, "14/08/2009"),
			},
			wantErr: true,
		},
		{
			name: "unknown kind",
			filing: Filing{
				Source:         SourceLegacy,
				Kind:           "xyz",
				ReferenceDate:  date(t, "30/06/2009"),
				SubmissionDate: date(t, "14/08/2009"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filing.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatementKind_Codes(t *testing.T) {
	assert.Equal(t, 4, KindInterim.SessionCode())
	assert.Equal(t, 2, KindAnnual.SessionCode())
	assert.Equal(t, 3, KindInterim.DocumentTypeCode())
	assert.Equal(t, 4, KindAnnual.DocumentTypeCode())
}

func TestParseSource(t *testing.T) {
	for input, want := range map[string]Source{
		"legacy":    SourceLegacy,
		"Bovespa":   SourceLegacy,
		"regulator": SourceRegulator,
		" CVM ":     SourceRegulator,
	} {
		got, err := ParseSource(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseSource("nasdaq")
	assert.Error(t, err)
}

func TestTargets_CoverEveryArtifact(t *testing.T) {
	company := Company{LegalName: "ACME SA", TradingName: "ACME", CVMCode: 906}
	filing := Filing{Source: SourceLegacy, Kind: KindInterim, ReferenceDate: date(t, "30/06/2009")}

	targets := Targets(company, filing)

	require.Len(t, targets, 7)
	assert.Equal(t, ScopeIndividual, targets[0].Scope)
	assert.Equal(t, CategoryAssets, targets[0].Category)
	assert.Equal(t, ScopeConsolidated, targets[5].Scope)
	assert.Equal(t, CategoryIncome, targets[5].Category)
	assert.Equal(t, CategoryCapital, targets[6].Category)
	assert.Empty(t, targets[6].Scope)
}

func TestAvailableDocs(t *testing.T) {
	docs := NewAvailableDocs()
	assert.True(t, docs.Consolidated(CategoryAssets))
	assert.False(t, docs.Consolidated(CategoryCapital))

	docs.ClearConsolidated()
	for _, category := range StatementCategories {
		assert.False(t, docs.Consolidated(category), category)
	}
}

func TestTargetError_CarriesContext(t *testing.T) {
	company := Company{LegalName: "ACME SA", TradingName: "ACME", CVMCode: 906}
	filing := Filing{Source: SourceRegulator, Kind: KindInterim, ReferenceDate: date(t, "30/06/2009")}
	fault := NewParseFault("statement table not found")

	err := fmt.Errorf("scrape: %w", &TargetError{
		Target: StatementTarget(company, filing, CategoryLiabilities, ScopeConsolidated),
		Err:    fault,
	})

	assert.Contains(t, err.Error(), "ACME SA")
	assert.Contains(t, err.Error(), "liabilities/consolidated")
	assert.Contains(t, err.Error(), "30/06/2009")
	assert.True(t, IsParseFault(err))
	assert.False(t, IsDataAbsent(err))
	assert.False(t, IsSessionFault(err))

	var targetErr *TargetError
	require.True(t, errors.As(err, &targetErr))
	assert.Equal(t, 906, targetErr.Target.Company.CVMCode)
}

func TestSessionFault_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TargetError{Err: &SessionFault{Source: SourceLegacy, Err: cause}}

	assert.True(t, IsSessionFault(err))
	assert.ErrorIs(t, err, cause)
}
