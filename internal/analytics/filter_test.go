package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"geointel/internal/event/domain"
)

func TestFilter_Apply(t *testing.T) {
	events := []domain.Event{
		ev("a", 0, 30, 70, "Group A", "North"),
		ev("b", 1, 30, 70, "Group B", "South"),
		ev("c", 2, 30, 70, "Group A", "South"),
		ev("d", 10, 30, 70, "Group C", "North"),
	}

	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps all", Filter{}, []string{"a", "b", "c", "d"}},
		{"groups", Filter{Groups: []string{"Group A"}}, []string{"a", "c"}},
		{"regions", Filter{Regions: []string{"South"}}, []string{"b", "c"}},
		{"groups and regions", Filter{Groups: []string{"Group A", "Group C"}, Regions: []string{"North"}}, []string{"a", "d"}},
		{"unknown group", Filter{Groups: []string{"Group Z"}}, []string{}},
		{
			"date range end inclusive",
			Filter{Start: now.AddDate(0, 0, -2), End: now.AddDate(0, 0, -1)},
			[]string{"b", "c"},
		},
		{"only end keeps all", Filter{End: now.AddDate(0, 0, -2)}, []string{"a", "b", "c", "d"}},
		{"only start keeps all", Filter{Start: now.AddDate(0, 0, -1)}, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.filter.Apply(events)))
		})
	}
}

func TestFilter_Window(t *testing.T) {
	f := Filter{
		Start: time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 12, 1, 0, 0, 0, time.UTC),
	}
	from, to := f.Window()
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 12, 23, 59, 59, 0, time.UTC), to)

	for _, half := range []Filter{{}, {Start: f.Start}, {End: f.End}} {
		from, to = half.Window()
		assert.True(t, from.IsZero())
		assert.True(t, to.IsZero())
	}
}

func TestFilter_LastSecondOfEndDay(t *testing.T) {
	end := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	f := Filter{Start: end, End: end}
	in := domain.Event{Date: time.Date(2025, 1, 12, 23, 59, 59, 0, time.UTC), Group: "g", Region: "r"}
	out := domain.Event{Date: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), Group: "g", Region: "r"}
	assert.True(t, f.Match(&in))
	assert.False(t, f.Match(&out))
}
