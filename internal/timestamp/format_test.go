package timestamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00"},
		{999, "00:00"},
		{59000, "00:59"},
		{59999, "00:59"},
		{60000, "01:00"},
		{25 * 60000, "25:00"},
		{3599999, "59:59"},
		{3600000, "01:00:00"},
		{3661000, "01:01:01"},
		{100 * 3600000, "100:00:00"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.ms), "ms=%d", tc.ms)
	}
}
