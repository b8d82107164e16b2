package idx_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/pkg/idx"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = idx.Parse("  ")
	require.ErrorIs(t, err, idx.ErrInvalid)

	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestOrdering(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0))
	b := idx.NewAt(time.Unix(2, 0))

	require.Equal(t, -1, idx.Compare(a, b))
	require.Equal(t, 1, idx.Compare(b, a))
	require.Equal(t, 0, idx.Compare(a, a))
}

func TestSameMillisecondStaysSorted(t *testing.T) {
	now := time.Now()
	ids := make([]string, 0, 50)
	for range 50 {
		ids = append(ids, idx.NewAt(now).String())
	}
	require.True(t, sort.StringsAreSorted(ids))
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
	require.True(t, idx.Zero.Time().IsZero())
}

func TestMustParse(t *testing.T) {
	require.NotPanics(t, func() { idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV") })
	require.Panics(t, func() { idx.MustParse("bogus") })
}
