package sequences

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		prefix  string
		padding int
		n       int64
		want    string
	}{
		{"REQ/", 4, 7, "REQ/0007"},
		{"WH/INT/", 5, 123, "WH/INT/00123"},
		{"", 4, 12345, "12345"},
		{"HO/", 0, 3, "HO/3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.prefix, tt.padding, tt.n))
	}
}
