// Package domicile evaluates deemed-domicile status from residency history
// and owns the effective-dated domicile status records.
package domicile

import (
	"fmt"

	"dualtax/internal/domain"
	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

// YearVerdict is one UK tax year of residency history, oldest first when
// supplied in a slice.
type YearVerdict struct {
	TaxYear  string
	Resident bool
}

// Evaluation is the outcome of the deemed-domicile rule.
type Evaluation struct {
	Deemed bool

	// StartYear is the tax year in which the qualifying-year threshold was
	// reached. Empty when not deemed.
	StartYear string

	// ResidentYears counts resident years inside the lookback window.
	ResidentYears int
}

// EvaluateDeemedDomicile applies the 15-of-20 rule to a chronological
// residency history. Only the lookback window (the most recent 20 years)
// is considered; shorter histories are evaluated as supplied.
func EvaluateDeemedDomicile(history []YearVerdict, p policy.UKParams) Evaluation {
	window := history
	if len(window) > p.DeemedDomicileLookbackYears {
		window = window[len(window)-p.DeemedDomicileLookbackYears:]
	}

	var eval Evaluation
	for _, year := range window {
		if !year.Resident {
			continue
		}
		eval.ResidentYears++
		if eval.ResidentYears == p.DeemedDomicileResidentYears {
			eval.Deemed = true
			eval.StartYear = year.TaxYear
		}
	}
	return eval
}

// ValidateRemittanceElection rejects a remittance-basis election for anyone
// UK-domiciled, actual or deemed. Non-UK-domiciled individuals may elect.
func ValidateRemittanceElection(kind domain.DomicileKind) error {
	if !kind.IsValid() {
		return taxerrors.New(taxerrors.CodeValidation, fmt.Sprintf("unknown domicile status: %s", kind))
	}
	switch kind {
	case domain.DomicileUK:
		return taxerrors.New(taxerrors.CodeValidation,
			"remittance basis is not available to UK-domiciled individuals")
	case domain.DomicileDeemed:
		return taxerrors.New(taxerrors.CodeValidation,
			"remittance basis is not available once deemed domicile applies")
	case domain.DomicileNonUK:
		return nil
	}
	return nil
}
