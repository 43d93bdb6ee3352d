package excel

// Column names of the claims table, as written by Writer. The reader also
// accepts the aliases in headerAliases.
const (
	ColClaimID               = "claim_id"
	ColEvalDate              = "eval_date"
	ColDevelopmentAge        = "development_age"
	ColStatus                = "status"
	ColCaseReserve           = "case_reserve"
	ColPaidIncremental       = "paid_incremental"
	ColFutureStatus          = "future_status"
	ColFuturePaidIncremental = "future_paid_incremental"
)

// ClaimColumns is the canonical column order
var ClaimColumns = []string{
	ColClaimID,
	ColEvalDate,
	ColDevelopmentAge,
	ColStatus,
	ColCaseReserve,
	ColPaidIncremental,
	ColFutureStatus,
	ColFuturePaidIncremental,
}

// headerAliases maps normalized header spellings found in claim extracts to
// the canonical column names
var headerAliases = map[string]string{
	"claim_id":                ColClaimID,
	"claim_number":            ColClaimID,
	"claim_no":                ColClaimID,
	"claim":                   ColClaimID,
	"id":                      ColClaimID,
	"eval_date":               ColEvalDate,
	"evaluation_date":         ColEvalDate,
	"valuation_date":          ColEvalDate,
	"development_age":         ColDevelopmentAge,
	"devt":                    ColDevelopmentAge,
	"dev_age":                 ColDevelopmentAge,
	"age":                     ColDevelopmentAge,
	"status":                  ColStatus,
	"claim_status":            ColStatus,
	"case_reserve":            ColCaseReserve,
	"case":                    ColCaseReserve,
	"reserve":                 ColCaseReserve,
	"paid_incremental":        ColPaidIncremental,
	"tot_pd_incr":             ColPaidIncremental,
	"paid":                    ColPaidIncremental,
	"future_status":           ColFutureStatus,
	"status_act":              ColFutureStatus,
	"future_paid_incremental": ColFuturePaidIncremental,
	"tot_pd_incr_act":         ColFuturePaidIncremental,
}
