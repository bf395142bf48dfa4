package sca

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

// DuplicatePolicy decides what happens to source rows that repeat an occupation code.
type DuplicatePolicy string

const (
	// DuplicatesLast keeps the values of the last row with a code at the position
	// of the first one.
	DuplicatesLast DuplicatePolicy = "last"
	// DuplicatesFirst keeps the first row with a code and drops the rest.
	DuplicatesFirst DuplicatePolicy = "first"
	// DuplicatesError fails the run on the first repeated code.
	DuplicatesError DuplicatePolicy = "error"
	// DuplicatesKeep leaves every row in place. Only the linear join supports it.
	DuplicatesKeep DuplicatePolicy = "keep"
)

// DuplicatePolicies lists the accepted policy names.
var DuplicatePolicies = []DuplicatePolicy{DuplicatesLast, DuplicatesFirst, DuplicatesError, DuplicatesKeep}

// Valid reports whether p is a known policy.
func (p DuplicatePolicy) Valid() bool {
	for _, known := range DuplicatePolicies {
		if p == known {
			return true
		}
	}
	return false
}

// Dedupe applies policy to records and returns the surviving records in
// first-occurrence order plus the number of rows dropped. Under DuplicatesError a
// repeated code returns an errkind.KindParse error naming the code.
func Dedupe(records []model.RateRecord, policy DuplicatePolicy) ([]model.RateRecord, int, error) {
	if !policy.Valid() {
		return nil, 0, eris.Errorf("sca: unknown duplicate policy %q", policy)
	}
	if policy == DuplicatesKeep {
		return records, 0, nil
	}

	log := zap.L().With(zap.String("component", "sca.dedupe"))

	index := make(map[string]int, len(records))
	out := make([]model.RateRecord, 0, len(records))
	for i, r := range records {
		pos, seen := index[r.OccupationCode]
		if !seen {
			index[r.OccupationCode] = len(out)
			out = append(out, r)
			continue
		}

		switch policy {
		case DuplicatesError:
			return nil, 0, errkind.Parse(eris.Errorf("sca: duplicate occupation code %q at data row %d", r.OccupationCode, i+1))
		case DuplicatesLast:
			out[pos] = r
		}
		log.Debug("duplicate occupation code",
			zap.String("occupation_code", r.OccupationCode),
			zap.String("policy", string(policy)),
		)
	}

	dropped := len(records) - len(out)
	if dropped > 0 {
		log.Warn("duplicate occupation codes removed",
			zap.Int("dropped", dropped),
			zap.String("policy", string(policy)),
		)
	}
	return out, dropped, nil
}
