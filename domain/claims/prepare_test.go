package claims

import (
	"errors"
	"testing"
	"time"

	"claimsim/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) core.EvalDate {
	return core.NewEvalDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func historical(id string, eval core.EvalDate, age int, status, future Status, paid float64) Claim {
	return Claim{
		ClaimID:               core.ClaimID(id),
		EvalDate:              eval,
		DevelopmentAge:        age,
		Status:                status,
		CaseReserve:           1000,
		PaidIncremental:       50,
		HasActuals:            true,
		FutureStatus:          future,
		FuturePaidIncremental: paid,
	}
}

func TestPrepare_SplitsTrainingAndPrediction(t *testing.T) {
	pred := date(2023, 12, 31)
	rows := []Claim{
		historical("A", date(2021, 12, 31), 12, StatusOpen, StatusOpen, 100),
		historical("B", date(2022, 12, 31), 12, StatusClosed, StatusClosed, 0),
		historical("C", date(2022, 12, 31), 24, StatusOpen, StatusClosed, 10), // wrong age
		{ClaimID: "Z", EvalDate: pred, DevelopmentAge: 12, Status: StatusOpen, CaseReserve: 500},
		{ClaimID: "Y", EvalDate: pred, DevelopmentAge: 12, Status: StatusClosed},
	}

	prepared, err := Prepare(rows, Window{DevelopmentAge: 12, PredictionDate: pred})
	require.NoError(t, err)

	assert.Len(t, prepared.Training, 2)
	assert.Equal(t, []core.ClaimID{"Y", "Z"}, IDs(prepared.Prediction), "prediction rows sorted by claim id")
	assert.Equal(t, 1, prepared.Skipped)
}

func TestPrepare_ValidatesOnlyRowsInWindow(t *testing.T) {
	pred := date(2023, 12, 31)
	valid := []Claim{
		historical("A", date(2022, 12, 31), 12, StatusOpen, StatusOpen, 100),
		{ClaimID: "P", EvalDate: pred, DevelopmentAge: 12, Status: StatusOpen},
	}

	outside := append([]Claim{{ClaimID: "X", EvalDate: pred, DevelopmentAge: 24, Status: "pending"}}, valid...)
	prepared, err := Prepare(outside, Window{DevelopmentAge: 12, PredictionDate: pred})
	require.NoError(t, err)
	assert.Equal(t, 1, prepared.Skipped)

	inside := append([]Claim{{ClaimID: "X", EvalDate: pred, DevelopmentAge: 12, Status: "pending"}}, valid...)
	_, err = Prepare(inside, Window{DevelopmentAge: 12, PredictionDate: pred})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestPrepare_TrainingBounds(t *testing.T) {
	pred := date(2023, 12, 31)
	rows := []Claim{
		historical("A", date(2019, 12, 31), 12, StatusOpen, StatusOpen, 100),
		historical("B", date(2021, 12, 31), 12, StatusOpen, StatusOpen, 100),
		historical("C", date(2022, 12, 31), 12, StatusOpen, StatusOpen, 100),
		{ClaimID: "P", EvalDate: pred, DevelopmentAge: 12, Status: StatusOpen},
	}

	prepared, err := Prepare(rows, Window{
		DevelopmentAge: 12,
		PredictionDate: pred,
		TrainingFrom:   date(2020, 1, 1),
		TrainingTo:     date(2021, 12, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, []core.ClaimID{"B"}, IDs(prepared.Training))
}

func TestPrepare_Errors(t *testing.T) {
	pred := date(2023, 12, 31)

	t.Run("no training rows", func(t *testing.T) {
		_, err := Prepare([]Claim{{ClaimID: "P", EvalDate: pred, DevelopmentAge: 12, Status: StatusOpen}},
			Window{DevelopmentAge: 12, PredictionDate: pred})
		assert.True(t, errors.Is(err, core.ErrInsufficientData))
	})

	t.Run("no prediction rows", func(t *testing.T) {
		_, err := Prepare([]Claim{historical("A", date(2021, 12, 31), 12, StatusOpen, StatusOpen, 1)},
			Window{DevelopmentAge: 12, PredictionDate: pred})
		assert.True(t, errors.Is(err, core.ErrInsufficientData))
	})

	t.Run("duplicate prediction claim", func(t *testing.T) {
		rows := []Claim{
			historical("A", date(2021, 12, 31), 12, StatusOpen, StatusOpen, 1),
			{ClaimID: "P", EvalDate: pred, DevelopmentAge: 12, Status: StatusOpen},
			{ClaimID: "P", EvalDate: pred, DevelopmentAge: 12, Status: StatusClosed},
		}
		_, err := Prepare(rows, Window{DevelopmentAge: 12, PredictionDate: pred})
		assert.True(t, errors.Is(err, core.ErrDuplicateClaim))
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := Prepare(nil, Window{DevelopmentAge: 0, PredictionDate: pred})
		assert.Error(t, err)
	})
}

func TestTrainingSubsets(t *testing.T) {
	d := date(2021, 12, 31)
	training := []Claim{
		historical("cc", d, 12, StatusClosed, StatusClosed, 0),
		historical("co", d, 12, StatusClosed, StatusOpen, 0),
		historical("oo", d, 12, StatusOpen, StatusOpen, 250),
		historical("oc", d, 12, StatusOpen, StatusClosed, -20),
	}

	assert.Equal(t, []core.ClaimID{"co", "oo", "oc"}, IDs(ZeroPaymentTraining(training)))
	assert.Equal(t, []core.ClaimID{"oo"}, IDs(PaymentTraining(training)))
}

func TestComputeActuals(t *testing.T) {
	d := date(2021, 12, 31)
	cs := []Claim{
		historical("a", d, 12, StatusOpen, StatusOpen, 100),
		historical("b", d, 12, StatusOpen, StatusClosed, 25),
	}
	assert.Equal(t, Actuals{Known: true, OpenCount: 1, TotalPaid: 125}, ComputeActuals(cs))

	cs = append(cs, Claim{ClaimID: "c", Status: StatusOpen})
	assert.False(t, ComputeActuals(cs).Known)
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"O", "Open", " open "} {
		s, err := ParseStatus(in)
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, s)
	}
	for _, in := range []string{"C", "Closed"} {
		s, err := ParseStatus(in)
		require.NoError(t, err)
		assert.Equal(t, StatusClosed, s)
	}
	_, err := ParseStatus("pending")
	assert.Error(t, err)
}
