package sca

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/db"
	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/fetcher"
	"github.com/sells-group/sca-rates/internal/model"
)

// JoinStrategy selects how prior-year descriptions are matched to records.
type JoinStrategy string

const (
	// JoinKeyed builds an occupation code index over the records (O(n)) and looks
	// each description row up in O(1), O(n+m) overall. Records must have unique codes.
	JoinKeyed JoinStrategy = "keyed"
	// JoinLinear scans the records for each description row and updates only the
	// first match, O(n*m) overall. Duplicate codes are allowed; later duplicates
	// never receive a description.
	JoinLinear JoinStrategy = "linear"
)

// Valid reports whether s is a known strategy.
func (s JoinStrategy) Valid() bool {
	return s == JoinKeyed || s == JoinLinear
}

// EnrichmentOptions configures the prior-year export reader.
type EnrichmentOptions struct {
	Path       string
	Delimiter  rune   // default ','
	Encoding   string // WHATWG label, default utf-8
	TrimSpace  bool
	LazyQuotes bool
	Comment    rune // 0 = none
	Strategy   JoinStrategy
}

// JoinStats counts how description rows were applied.
type JoinStats struct {
	Rows      int // description rows read
	Matched   int // rows that updated a record
	Unmatched int // rows whose code matched no record
}

// ReadDescriptions loads the prior-year export. Each description has its single
// quotes doubled here, once, so the emitter can embed it verbatim.
func ReadDescriptions(ctx context.Context, opts EnrichmentOptions) ([]model.PriorDescription, error) {
	var descs []model.PriorDescription
	err := decodeDelimited(ctx, opts.Path, opts.Encoding, fetcher.CSVOptions{
		Delimiter:  orDefault(opts.Delimiter, ','),
		Comment:    opts.Comment,
		LazyQuotes: opts.LazyQuotes,
		TrimSpace:  opts.TrimSpace,
	}, func(_ int, d model.PriorDescription) error {
		d.Description = db.EscapeLiteral(d.Description)
		descs = append(descs, d)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sca: read descriptions %s", opts.Path)
	}
	return descs, nil
}

// Join copies descriptions onto records in place. Descriptions whose code matches
// no record are counted and ignored. Records are never added or removed.
func Join(records []model.RateRecord, descs []model.PriorDescription, strategy JoinStrategy) (JoinStats, error) {
	stats := JoinStats{Rows: len(descs)}

	switch strategy {
	case JoinKeyed:
		index := make(map[string]int, len(records))
		for i, r := range records {
			if _, dup := index[r.OccupationCode]; dup {
				return stats, errkind.Parse(eris.Errorf("sca: keyed join requires unique occupation codes, %q repeats", r.OccupationCode))
			}
			index[r.OccupationCode] = i
		}
		for _, d := range descs {
			i, ok := index[d.OccupationCode]
			if !ok {
				stats.Unmatched++
				continue
			}
			records[i].Description = d.Description
			stats.Matched++
		}

	case JoinLinear:
		for _, d := range descs {
			found := false
			for i := range records {
				if records[i].OccupationCode == d.OccupationCode {
					records[i].Description = d.Description
					found = true
					break
				}
			}
			if found {
				stats.Matched++
			} else {
				stats.Unmatched++
			}
		}

	default:
		return stats, eris.Errorf("sca: unknown join strategy %q", strategy)
	}

	return stats, nil
}

// Enrich reads the prior-year export and joins it onto records.
func Enrich(ctx context.Context, records []model.RateRecord, opts EnrichmentOptions) (JoinStats, error) {
	log := zap.L().With(zap.String("component", "sca.enrich"), zap.String("path", opts.Path))

	descs, err := ReadDescriptions(ctx, opts)
	if err != nil {
		return JoinStats{}, err
	}

	stats, err := Join(records, descs, opts.Strategy)
	if err != nil {
		return stats, err
	}

	log.Debug("descriptions joined",
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("rows", stats.Rows),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched),
	)
	return stats, nil
}
