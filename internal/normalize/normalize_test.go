package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-screener/internal/catalog"
)

func TestText_ExactMatchOnly(t *testing.T) {
	c := Map{"AAPL": "Apple Inc."}

	got := Text("I like $AAPL and $AA", c)
	assert.Equal(t, "I like Apple Inc. and $AA", got)
}

func TestText_PassThrough(t *testing.T) {
	c := Map{"AAPL": "Apple Inc.", "TSLA": "Tesla, Inc."}

	cases := map[string]string{
		"no dollar":      "AAPL to the moon",
		"unknown symbol": "$GME squeeze",
		"prefix":         "$AAPLX is not apple",
		"lowercase":      "$aapl stays",
		"trailing punct": "bought $AAPL, sold $TSLA.",
		"bare dollar":    "$ sign alone",
		"embedded":       "x$AAPL",
		"double dollar":  "$$AAPL",
		"empty":          "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, strings.Join(strings.Fields(in), " "), Text(in, c))
		})
	}
}

func TestText_CollapsesWhitespace(t *testing.T) {
	c := Map{"TSLA": "Tesla, Inc."}

	got := Text("  $TSLA\tearnings\n\nbeat  ", c)
	assert.Equal(t, "Tesla, Inc. earnings beat", got)
}

func TestText_Idempotent(t *testing.T) {
	c := Map{"AAPL": "Apple Inc.", "MSFT": "MICROSOFT CORP", "A": "Agilent"}

	inputs := []string{
		"$AAPL vs $MSFT which one?",
		"$A $AA $AAA",
		"nothing to replace here",
		"  spaced   out  $MSFT ",
		"$GME $AMC",
	}
	for _, in := range inputs {
		once := Text(in, c)
		assert.Equal(t, once, Text(once, c), "input %q", in)
	}
}

func TestText_IdempotentWithLoadedCatalog(t *testing.T) {
	c, err := catalog.Load(strings.NewReader(`[
		{"ticker":"Y","title":"Big   Co"},
		{"ticker":"Z","title":"  Tab\tSeparated \n Corp  "}
	]`))
	require.NoError(t, err)

	for _, in := range []string{"buy $Y now", "a $Z b", "$Y$Z", "$Y $Z $Y"} {
		once := Text(in, c)
		assert.Equal(t, once, Text(once, c), "input %q", in)
	}
	assert.Equal(t, "buy Big Co now", Text("buy $Y now", c))
}

func TestText_NilLookup(t *testing.T) {
	assert.Equal(t, "$AAPL up", Text("$AAPL  up", nil))
}

func TestText_WithCatalog(t *testing.T) {
	c, err := catalog.Load(strings.NewReader(`[{"ticker":"NVDA","title":"NVIDIA CORP"}]`))
	assert.NoError(t, err)

	assert.Equal(t, "NVIDIA CORP earnings", Text("$NVDA earnings", c))
	assert.Equal(t, "$NVDA earnings", Text("$NVDA earnings", catalog.Empty()))
}

func TestLines(t *testing.T) {
	c := Map{"AAPL": "Apple Inc."}

	got := Lines([]string{"$AAPL up", "flat day", "$AAPL down"}, c)
	assert.Equal(t, []string{"Apple Inc. up", "flat day", "Apple Inc. down"}, got)
}
