package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for evaluation dates
const DateLayout = "2006-01-02"

// EvalDate is a calendar evaluation date, truncated to midnight UTC
type EvalDate time.Time

// NewEvalDate truncates t to its UTC calendar day
func NewEvalDate(t time.Time) EvalDate {
	t = t.UTC()
	return EvalDate(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// ParseEvalDate accepts YYYY-MM-DD, RFC3339 and M/D/YYYY
func ParseEvalDate(s string) (EvalDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EvalDate{}, fmt.Errorf("evaluation date cannot be empty")
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "1/2/2006", "01-02-06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewEvalDate(t), nil
		}
	}
	return EvalDate{}, fmt.Errorf("unrecognized evaluation date %q", s)
}

func (d EvalDate) Time() time.Time { return time.Time(d) }

func (d EvalDate) IsZero() bool { return time.Time(d).IsZero() }

func (d EvalDate) Before(u EvalDate) bool { return d.Time().Before(u.Time()) }

func (d EvalDate) After(u EvalDate) bool { return d.Time().After(u.Time()) }

func (d EvalDate) Equal(u EvalDate) bool { return d.Time().Equal(u.Time()) }

// AddMonths shifts the date by whole months
func (d EvalDate) AddMonths(n int) EvalDate {
	return NewEvalDate(d.Time().AddDate(0, n, 0))
}

func (d EvalDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalText renders the date as YYYY-MM-DD
func (d EvalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses any layout accepted by ParseEvalDate
func (d *EvalDate) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = EvalDate{}
		return nil
	}
	parsed, err := ParseEvalDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
