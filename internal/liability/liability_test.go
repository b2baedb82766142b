package liability

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"dualtax/internal/policy"
	"dualtax/pkg/taxerrors"
)

type LiabilitySuite struct {
	suite.Suite

	uk policy.UKParams
	sa policy.SAParams
}

func TestLiabilitySuite(t *testing.T) {
	suite.Run(t, new(LiabilitySuite))
}

func (s *LiabilitySuite) SetupTest() {
	var err error
	s.uk, err = policy.UKForYear("2024/25")
	s.Require().NoError(err)
	s.sa, err = policy.SAForYear("2024/25")
	s.Require().NoError(err)
}

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *LiabilitySuite) equalMoney(want string, got decimal.Decimal) {
	s.T().Helper()
	s.True(got.Equal(money(want)), "got %s, want %s", got, want)
}

// ---------------------------------------------------------------------------
// Inheritance tax and estate duty
// ---------------------------------------------------------------------------

func (s *LiabilitySuite) TestUKInheritanceTax() {
	s.Run("estate above the nil-rate band is taxed at 40%", func() {
		res, err := UKInheritanceTax(UKEstateInput{NetEstate: money("500000")}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("175000", res.Taxable)
		s.equalMoney("70000", res.TaxDue)
		s.Require().Len(res.Rates, 1)
		s.Equal("standard", res.Rates[0].Name)
	})

	s.Run("residence band shelters a home passing to descendants", func() {
		res, err := UKInheritanceTax(UKEstateInput{
			NetEstate:            money("500000"),
			ResidenceBandApplies: true,
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("0", res.Taxable)
		s.equalMoney("0", res.TaxDue)
	})

	s.Run("transferable band from a spouse stacks on the nil-rate band", func() {
		res, err := UKInheritanceTax(UKEstateInput{
			NetEstate:               money("700000"),
			TransferableNilRateBand: money("325000"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("50000", res.Taxable)
		s.equalMoney("20000", res.TaxDue)
	})

	s.Run("charitable gifts at 10% of the baseline drop the rate to 36%", func() {
		res, err := UKInheritanceTax(UKEstateInput{
			NetEstate:       money("500000"),
			CharitableGifts: money("17500"),
		}, s.uk)
		s.Require().NoError(err)
		s.Require().Len(res.Rates, 1)
		s.Equal("reduced_charity", res.Rates[0].Name)
		s.equalMoney("63000", res.TaxDue)
	})

	s.Run("charitable gifts just under 10% keep the standard rate", func() {
		res, err := UKInheritanceTax(UKEstateInput{
			NetEstate:       money("500000"),
			CharitableGifts: money("17499.99"),
		}, s.uk)
		s.Require().NoError(err)
		s.Equal("standard", res.Rates[0].Name)
		s.equalMoney("70000", res.TaxDue)
	})

	s.Run("estate inside the bands owes nothing", func() {
		res, err := UKInheritanceTax(UKEstateInput{NetEstate: money("300000")}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("0", res.TaxDue)
		s.Require().Len(res.Allowances, 1)
		s.equalMoney("300000", res.Allowances[0].Amount)
	})

	s.Run("negative estate is rejected before computing", func() {
		_, err := UKInheritanceTax(UKEstateInput{NetEstate: money("-1")}, s.uk)
		s.Require().Error(err)
		s.True(taxerrors.HasCode(err, taxerrors.CodeValidation))
	})
}

func (s *LiabilitySuite) TestSAEstateDuty() {
	s.Run("dutiable amount below the threshold is taxed wholly at 20%", func() {
		res, err := SAEstateDuty(SAEstateInput{EstateValue: money("20000000")}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("16500000", res.Taxable)
		s.equalMoney("3300000", res.TaxDue)
		s.Require().Len(res.Rates, 1)
		s.Equal("lower", res.Rates[0].Name)
	})

	s.Run("excess over the threshold is taxed at 25%", func() {
		res, err := SAEstateDuty(SAEstateInput{EstateValue: money("50000000")}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("46500000", res.Taxable)
		// 30,000,000 at 20% plus 16,500,000 at 25%.
		s.equalMoney("10125000", res.TaxDue)
		s.Require().Len(res.Rates, 2)
	})

	s.Run("estate inside the abatement owes nothing", func() {
		res, err := SAEstateDuty(SAEstateInput{EstateValue: money("3000000")}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("0", res.TaxDue)
	})
}

// ---------------------------------------------------------------------------
// Capital gains
// ---------------------------------------------------------------------------

func (s *LiabilitySuite) TestUKCapitalGains() {
	s.Run("gain above the exempt amount is taxed at the flat rate", func() {
		res, err := UKCapitalGains(UKCapitalGainsInput{TotalGain: money("5000")}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("2000", res.Taxable)
		s.equalMoney("400", res.TaxDue)
	})

	s.Run("wrapper gains come off before the exempt amount", func() {
		res, err := UKCapitalGains(UKCapitalGainsInput{
			TotalGain:   money("5000"),
			WrapperGain: money("5000"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("5000", res.TaxFree)
		s.equalMoney("0", res.Taxable)
		s.equalMoney("0", res.TaxDue)
		// The exempt amount is untouched when the wrapper covers everything.
		s.equalMoney("0", res.Allowances[0].Amount)
	})

	s.Run("wrapper gain larger than the total is rejected", func() {
		_, err := UKCapitalGains(UKCapitalGainsInput{
			TotalGain:   money("100"),
			WrapperGain: money("200"),
		}, s.uk)
		s.True(taxerrors.HasCode(err, taxerrors.CodeValidation))
	})
}

func (s *LiabilitySuite) TestSACapitalGains() {
	s.Run("inclusion rate times marginal rate gives the effective rate", func() {
		res, err := SACapitalGains(SACapitalGainsInput{
			TotalGain:    money("3000"),
			MarginalRate: money("0.45"),
		}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("1200", res.Taxable)
		s.equalMoney("540", res.TaxDue)

		var effective decimal.Decimal
		for _, r := range res.Rates {
			if r.Name == "effective" {
				effective = r.Rate
			}
		}
		s.True(effective.Equal(money("0.18")), "effective %s", effective)
	})

	s.Run("marginal rate above one is rejected", func() {
		_, err := SACapitalGains(SACapitalGainsInput{
			TotalGain:    money("3000"),
			MarginalRate: money("1.45"),
		}, s.sa)
		s.True(taxerrors.HasCode(err, taxerrors.CodeValidation))
	})
}

// ---------------------------------------------------------------------------
// Dividends
// ---------------------------------------------------------------------------

func (s *LiabilitySuite) TestUKDividendTax() {
	s.Run("allowance then flat rate", func() {
		res, err := UKDividendTax(UKDividendInput{TotalDividends: money("10000")}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("9500", res.Taxable)
		s.equalMoney("831.25", res.TaxDue)
	})

	s.Run("earlier year carries a larger allowance", func() {
		p, err := policy.UKForYear("2022/23")
		s.Require().NoError(err)
		res, err := UKDividendTax(UKDividendInput{TotalDividends: money("10000")}, p)
		s.Require().NoError(err)
		s.equalMoney("8000", res.Taxable)
		s.equalMoney("700", res.TaxDue)
	})
}

func (s *LiabilitySuite) TestSADividendWithholding() {
	s.Run("flat withholding on dividends outside the wrapper", func() {
		res, err := SADividendWithholding(SADividendInput{
			TotalDividends:   money("10000"),
			WrapperDividends: money("2000"),
		}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("2000", res.TaxFree)
		s.equalMoney("8000", res.Taxable)
		s.equalMoney("1600", res.TaxDue)
		s.Empty(res.Allowances)
	})
}

// ---------------------------------------------------------------------------
// Savings interest
// ---------------------------------------------------------------------------

func (s *LiabilitySuite) TestUKSavingsInterestTax() {
	s.Run("starting rate allowance applies before the savings allowance", func() {
		res, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest:    money("6000"),
			NonSavingsIncome: money("13570"),
			Band:             BandBasic,
			MarginalRate:     money("0.20"),
		}, s.uk)
		s.Require().NoError(err)
		// Taper leaves 4,000 of starting rate; the basic allowance adds 1,000.
		s.Require().Len(res.Allowances, 2)
		s.Equal("starting_rate_allowance", res.Allowances[0].Name)
		s.equalMoney("4000", res.Allowances[0].Amount)
		s.equalMoney("1000", res.Allowances[1].Amount)
		s.equalMoney("1000", res.Taxable)
		s.equalMoney("200", res.TaxDue)
	})

	s.Run("non-savings income below the personal allowance keeps the full band", func() {
		res, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest:    money("5000"),
			NonSavingsIncome: money("10000"),
			Band:             BandBasic,
			MarginalRate:     money("0.20"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("5000", res.Allowances[0].Amount)
		s.equalMoney("0", res.TaxDue)
	})

	s.Run("income at the taper ceiling removes the starting rate entirely", func() {
		res, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest:    money("2000"),
			NonSavingsIncome: money("17570"),
			Band:             BandHigher,
			MarginalRate:     money("0.40"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("0", res.Allowances[0].Amount)
		s.equalMoney("500", res.Allowances[1].Amount)
		s.equalMoney("600", res.TaxDue)
	})

	s.Run("additional rate payers get no savings allowance", func() {
		res, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest:    money("2000"),
			NonSavingsIncome: money("200000"),
			Band:             BandAdditional,
			MarginalRate:     money("0.45"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("2000", res.Taxable)
		s.equalMoney("900", res.TaxDue)
	})

	s.Run("wrapper interest is excluded before any allowance", func() {
		res, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest:    money("3000"),
			WrapperInterest:  money("3000"),
			NonSavingsIncome: money("50000"),
			Band:             BandHigher,
			MarginalRate:     money("0.40"),
		}, s.uk)
		s.Require().NoError(err)
		s.equalMoney("3000", res.TaxFree)
		s.equalMoney("0", res.TaxDue)
	})

	s.Run("unknown band is rejected", func() {
		_, err := UKSavingsInterestTax(UKSavingsInput{
			TotalInterest: money("100"),
			Band:          TaxBand("platinum"),
			MarginalRate:  money("0.20"),
		}, s.uk)
		s.True(taxerrors.HasCode(err, taxerrors.CodeValidation))
	})
}

func (s *LiabilitySuite) TestSASavingsInterestTax() {
	s.Run("under the age threshold the lower exemption applies", func() {
		res, err := SASavingsInterestTax(SASavingsInput{
			TotalInterest: money("30000"),
			Age:           40,
			MarginalRate:  money("0.31"),
		}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("23800", res.Allowances[0].Amount)
		s.equalMoney("6200", res.Taxable)
		s.equalMoney("1922", res.TaxDue)
	})

	s.Run("at the age threshold the higher exemption applies", func() {
		res, err := SASavingsInterestTax(SASavingsInput{
			TotalInterest: money("30000"),
			Age:           65,
			MarginalRate:  money("0.31"),
		}, s.sa)
		s.Require().NoError(err)
		s.equalMoney("30000", res.Allowances[0].Amount)
		s.equalMoney("0", res.TaxDue)
	})
}

// ---------------------------------------------------------------------------
// Calculator contracts
// ---------------------------------------------------------------------------

func (s *LiabilitySuite) TestZeroInputsAreTotal() {
	s.Run("every calculator accepts all-zero input and owes nothing", func() {
		results := make([]Result, 0, 8)

		r, err := UKInheritanceTax(UKEstateInput{}, s.uk)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = SAEstateDuty(SAEstateInput{}, s.sa)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = UKCapitalGains(UKCapitalGainsInput{}, s.uk)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = SACapitalGains(SACapitalGainsInput{}, s.sa)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = UKDividendTax(UKDividendInput{}, s.uk)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = SADividendWithholding(SADividendInput{}, s.sa)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = UKSavingsInterestTax(UKSavingsInput{Band: BandBasic}, s.uk)
		s.Require().NoError(err)
		results = append(results, r)
		r, err = SASavingsInterestTax(SASavingsInput{}, s.sa)
		s.Require().NoError(err)
		results = append(results, r)

		for _, res := range results {
			s.True(res.TaxDue.IsZero(), "%s owes %s on zero input", res.Calculator, res.TaxDue)
			s.True(res.Taxable.IsZero(), "%s has taxable %s on zero input", res.Calculator, res.Taxable)
		}
	})
}

func (s *LiabilitySuite) TestRepeatCallsAreIdentical() {
	in := UKCapitalGainsInput{TotalGain: money("5000"), WrapperGain: money("1500")}

	first, err := UKCapitalGains(in, s.uk)
	s.Require().NoError(err)
	second, err := UKCapitalGains(in, s.uk)
	s.Require().NoError(err)

	s.Equal(first.TaxDue.String(), second.TaxDue.String())
	s.Equal(first.Taxable.String(), second.Taxable.String())
	s.Equal(first, second)
}
