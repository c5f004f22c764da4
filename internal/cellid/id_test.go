package cellid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		rawID     string
		expectErr bool
		expected  ID
	}{
		{name: "simple", rawID: "c1", expected: "c1"},
		{name: "multi digit", rawID: "c42", expected: "c42"},
		{name: "error - empty", rawID: "", expectErr: true},
		{name: "error - zero", rawID: "c0", expectErr: true},
		{name: "error - leading zero", rawID: "c01", expectErr: true},
		{name: "error - missing prefix", rawID: "12", expectErr: true},
		{name: "error - trailing garbage", rawID: "c1x", expectErr: true},
		{name: "error - out of range", rawID: "c99999999999999999999", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Parse(tc.rawID)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}
}

func TestID_SeqAndLess(t *testing.T) {
	assert.Equal(t, 7, New(7).Seq())
	assert.Equal(t, 0, ID("bogus").Seq())
	assert.Equal(t, 0, ID("c99999999999999999999").Seq())
	assert.True(t, Less(New(2), New(10)))
	assert.False(t, Less(New(10), New(2)))
}

func TestAllocator_NeverReuses(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, ID("c1"), a.Next())
	assert.Equal(t, ID("c2"), a.Next())

	a.Observe(New(10))
	assert.Equal(t, ID("c11"), a.Next())

	// Observing an older id does not rewind the allocator.
	a.Observe(New(3))
	assert.Equal(t, ID("c12"), a.Next())
}
