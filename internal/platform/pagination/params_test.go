package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Params
		wantErr error
	}{
		{name: "defaults", query: "", want: Params{Limit: DefaultLimit, Sort: domain.SortDesc}},
		{name: "explicit", query: "limit=5&offset=10&sort=ASC", want: Params{Limit: 5, Offset: 10, Sort: domain.SortAsc}},
		{name: "clamped", query: "limit=1000", want: Params{Limit: MaxLimit, Sort: domain.SortDesc}},
		{name: "zero limit", query: "limit=0", wantErr: ErrInvalidLimit},
		{name: "text limit", query: "limit=ten", wantErr: ErrInvalidLimit},
		{name: "negative offset", query: "offset=-1", wantErr: ErrInvalidOffset},
		{name: "unknown sort", query: "sort=price", wantErr: ErrInvalidSort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			got, err := Parse(values)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewResponse(t *testing.T) {
	double := func(v int) int { return v * 2 }

	resp := NewResponse(domain.Page[int]{Items: []int{1, 2}, Limit: 2, Offset: 4, HasMore: true}, double)
	assert.Equal(t, []int{2, 4}, resp.Items)
	require.NotNil(t, resp.NextOffset)
	assert.Equal(t, 6, *resp.NextOffset)

	last := NewResponse(domain.Page[int]{Limit: 2, Offset: 6}, double)
	assert.NotNil(t, last.Items)
	assert.Empty(t, last.Items)
	assert.Nil(t, last.NextOffset)
}
