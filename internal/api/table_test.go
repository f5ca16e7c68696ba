package api

import (
	"testing"

	"github.com/avolkova/keepsafe/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	for _, tbl := range Tables() {
		got, err := ParseTable(string(tbl))
		require.NoError(t, err)
		assert.Equal(t, tbl, got)
	}
}

func TestParseTable_Unknown(t *testing.T) {
	for _, name := range []string{"", "passwords", "Links", "links "} {
		_, err := ParseTable(name)
		assert.ErrorIs(t, err, common.ErrUnknownTable, "name %q", name)
	}
}
