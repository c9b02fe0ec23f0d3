package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name    string
		limit   string
		offset  string
		want    Page
		wantErr bool
	}{
		{name: "defaults", want: Page{Limit: DefaultPageLimit}},
		{name: "explicit", limit: "5", offset: "10", want: Page{Limit: 5, Offset: 10}},
		{name: "zero limit falls back to default", limit: "0", want: Page{Limit: DefaultPageLimit}},
		{name: "limit capped", limit: "1000", want: Page{Limit: MaxPageLimit}},
		{name: "padded values", limit: " 7 ", offset: " 3", want: Page{Limit: 7, Offset: 3}},
		{name: "non-numeric limit", limit: "ten", wantErr: true},
		{name: "negative limit", limit: "-1", wantErr: true},
		{name: "non-numeric offset", offset: "x", wantErr: true},
		{name: "negative offset", offset: "-5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePage(tt.limit, tt.offset)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, CodeValidation, ErrorCodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageSlice(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		n         int
		wantStart int
		wantEnd   int
	}{
		{name: "first page", page: Page{Limit: 2}, n: 5, wantStart: 0, wantEnd: 2},
		{name: "last partial page", page: Page{Limit: 2, Offset: 4}, n: 5, wantStart: 4, wantEnd: 5},
		{name: "beyond the end", page: Page{Limit: 2, Offset: 9}, n: 5, wantStart: 5, wantEnd: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Slice(tt.n)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
