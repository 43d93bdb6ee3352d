package excel

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/internal/logger"
	"claimsim/ports"
)

// ClaimSource loads the claims table from an Excel or CSV file
type ClaimSource struct {
	reader *DataReader
}

var _ ports.ClaimSource = (*ClaimSource)(nil)

// NewClaimSource creates a claim source for the file at path
func NewClaimSource(path string) *ClaimSource {
	return &ClaimSource{reader: NewDataReader(path)}
}

// LoadClaims reads and parses every row
func (s *ClaimSource) LoadClaims(ctx context.Context) ([]claims.Claim, error) {
	data, err := s.reader.ReadData(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := ParseClaims(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.reader.filePath, err)
	}
	logger.FromContext(ctx).Infof("[ClaimSource] loaded %d claims from %s", len(cs), s.reader.filePath)
	return cs, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", ".", "_", "-", "_").Replace(h)
}

// columnMap resolves canonical column names to the file's headers
func columnMap(headers []string) (map[string]string, error) {
	cols := make(map[string]string)
	for _, h := range headers {
		canonical, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; !dup {
			cols[canonical] = h
		}
	}
	for _, required := range []string{ColClaimID, ColEvalDate, ColDevelopmentAge, ColStatus, ColCaseReserve, ColPaidIncremental} {
		if _, ok := cols[required]; !ok {
			return nil, core.NewValidationError("columns", "missing "+required)
		}
	}
	return cols, nil
}

// ParseClaims converts raw rows into claims. A row carries actuals when its
// future status is filled in.
func ParseClaims(data *ExcelData) ([]claims.Claim, error) {
	cols, err := columnMap(data.Headers)
	if err != nil {
		return nil, err
	}

	out := make([]claims.Claim, 0, len(data.Rows))
	for i, row := range data.Rows {
		line := i + 2
		get := func(col string) string {
			if h, ok := cols[col]; ok {
				return row[h]
			}
			return ""
		}

		c := claims.Claim{ClaimID: core.ClaimID(get(ColClaimID))}
		if c.EvalDate, err = core.ParseEvalDate(get(ColEvalDate)); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		age, err := parseNumber(get(ColDevelopmentAge))
		if err != nil {
			return nil, fmt.Errorf("row %d: development age: %w", line, err)
		}
		c.DevelopmentAge = int(age)
		if c.Status, err = claims.ParseStatus(get(ColStatus)); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if c.CaseReserve, err = parseNumber(get(ColCaseReserve)); err != nil {
			return nil, fmt.Errorf("row %d: case reserve: %w", line, err)
		}
		if c.PaidIncremental, err = parseNumber(get(ColPaidIncremental)); err != nil {
			return nil, fmt.Errorf("row %d: paid incremental: %w", line, err)
		}

		if future := get(ColFutureStatus); future != "" {
			c.HasActuals = true
			if c.FutureStatus, err = claims.ParseStatus(future); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			if c.FuturePaidIncremental, err = parseNumber(get(ColFuturePaidIncremental)); err != nil {
				return nil, fmt.Errorf("row %d: future paid incremental: %w", line, err)
			}
		}

		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseNumber reads amounts as exported by spreadsheets: blanks are zero and
// currency symbols, thousands separators and accounting parentheses are
// accepted
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", core.ErrInvalidPredictor, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite amount", core.ErrInvalidPredictor, s)
	}
	if negative {
		v = -v
	}
	return v, nil
}
