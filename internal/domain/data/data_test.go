package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	ts time.Time
	id int
}

func (q quote) Timestamp() time.Time { return q.ts }

type trade struct {
	ts time.Time
	id int
}

func (t trade) Timestamp() time.Time { return t.ts }
func (t trade) SizeBytes() int       { return 128 }

func TestGroupByType(t *testing.T) {
	now := time.Unix(0, 0).UTC()
	items := []Data{
		trade{ts: now, id: 1},
		quote{ts: now, id: 2},
		trade{ts: now.Add(time.Second), id: 3},
		quote{ts: now.Add(time.Second), id: 4},
	}

	groups := GroupByType(items)
	require.Len(t, groups, 2)

	// Groups come back in ascending type-name order with item order
	// preserved inside each group.
	assert.Equal(t, "data.quote", groups[0].TypeName)
	assert.Equal(t, 2, groups[0].Items[0].(quote).id)
	assert.Equal(t, 4, groups[0].Items[1].(quote).id)

	assert.Equal(t, "data.trade", groups[1].TypeName)
	assert.Equal(t, 1, groups[1].Items[0].(trade).id)
	assert.Equal(t, 3, groups[1].Items[1].(trade).id)
}

func TestGroupByType_Empty(t *testing.T) {
	assert.Nil(t, GroupByType(nil))
}

func TestEstimateSize(t *testing.T) {
	now := time.Unix(0, 0).UTC()

	assert.Equal(t, 128, EstimateSize(trade{ts: now}))
	assert.Equal(t, DefaultItemSize, EstimateSize(quote{ts: now}))
}
