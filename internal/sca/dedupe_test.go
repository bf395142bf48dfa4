package sca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sca-rates/internal/errkind"
	"github.com/sells-group/sca-rates/internal/model"
)

func dupRecords() []model.RateRecord {
	return []model.RateRecord{
		{OccupationCode: "A1", Title: "Cook", Rate: 12},
		{OccupationCode: "B2", Title: "Baker", Rate: 14},
		{OccupationCode: "A1", Title: "Cook II", Rate: 13},
		{OccupationCode: "C3", Title: "Janitor", Rate: 10},
		{OccupationCode: "A1", Title: "Cook III", Rate: 15},
	}
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		policy      DuplicatePolicy
		wantCodes   []string
		wantFirst   model.RateRecord
		wantDropped int
	}{
		{DuplicatesLast, []string{"A1", "B2", "C3"}, model.RateRecord{OccupationCode: "A1", Title: "Cook III", Rate: 15}, 2},
		{DuplicatesFirst, []string{"A1", "B2", "C3"}, model.RateRecord{OccupationCode: "A1", Title: "Cook", Rate: 12}, 2},
		{DuplicatesKeep, []string{"A1", "B2", "A1", "C3", "A1"}, model.RateRecord{OccupationCode: "A1", Title: "Cook", Rate: 12}, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			out, dropped, err := Dedupe(dupRecords(), tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDropped, dropped)

			var codes []string
			for _, r := range out {
				codes = append(codes, r.OccupationCode)
			}
			assert.Equal(t, tt.wantCodes, codes)
			assert.Equal(t, tt.wantFirst, out[0])
			assert.Equal(t, len(dupRecords())-tt.wantDropped, len(out))
		})
	}
}

func TestDedupe_Error(t *testing.T) {
	_, _, err := Dedupe(dupRecords(), DuplicatesError)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse))
	assert.Contains(t, err.Error(), `"A1"`)
	assert.Contains(t, err.Error(), "data row 3")
}

func TestDedupe_UniqueInputUnchanged(t *testing.T) {
	in := []model.RateRecord{{OccupationCode: "A1"}, {OccupationCode: "B2"}}
	for _, p := range DuplicatePolicies {
		out, dropped, err := Dedupe(in, p)
		require.NoError(t, err, p)
		assert.Equal(t, in, out, p)
		assert.Zero(t, dropped, p)
	}
}

func TestDedupe_UnknownPolicy(t *testing.T) {
	_, _, err := Dedupe(nil, DuplicatePolicy("random"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown duplicate policy")
}
