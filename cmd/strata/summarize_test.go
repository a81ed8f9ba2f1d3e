package main

import (
	"testing"

	"github.com/stratadb/strata/agg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	spec, err := parseSpec([]string{"total=sum(bytes)", "c=n()", "m=mean(x)"})
	require.NoError(t, err)
	require.Len(t, spec, 3)
	assert.Equal(t, []string{"total", "c", "m"}, spec.Columns())
	assert.Equal(t, "sum(bytes)", spec[0].Expr.String())
	assert.IsType(t, &agg.Count{}, spec[1].Expr)
	assert.Equal(t, "mean(x)", spec[2].Expr.String())
}

func TestParseSpecMalformed(t *testing.T) {
	for _, s := range []string{"sum(bytes)", "=sum(bytes)", "t=sum", "t=sum(x"} {
		_, err := parseSpec([]string{s})
		assert.Error(t, err, s)
	}
}
