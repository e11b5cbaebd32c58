package recommend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/core"
)

func TestPreferenceReaderValued(t *testing.T) {
	input := "1,100,2.5\n2\t200\t1.0\n\n3,300,-4\n"
	r := NewPreferenceReader(strings.NewReader(input), false)

	prefs, err := ReadAllPreferences(r)
	require.NoError(t, err)
	assert.Equal(t, []Preference{
		{UserID: 1, ItemID: 100, Value: 2.5},
		{UserID: 2, ItemID: 200, Value: 1.0},
		{UserID: 3, ItemID: 300, Value: -4},
	}, prefs)
}

func TestPreferenceReaderBoolean(t *testing.T) {
	input := "1,100\n2,200,3.5\n"
	r := NewPreferenceReader(strings.NewReader(input), true)

	prefs, err := ReadAllPreferences(r)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, 1.0, prefs[0].Value, "boolean data implies value 1.0")
	assert.Equal(t, 1.0, prefs[1].Value, "an explicit value is ignored in boolean mode")
}

func TestPreferenceReaderMalformed(t *testing.T) {
	cases := map[string]string{
		"missing value":     "1,100\n",
		"too many fields":   "1,100,2,9\n",
		"non-numeric user":  "x,100,1\n",
		"non-numeric item":  "1,y,1\n",
		"non-numeric value": "1,100,z\n",
		"single field":      "42\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewPreferenceReader(strings.NewReader(input), false)
			_, err := ReadAllPreferences(r)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestPreferenceReaderReportsLineNumber(t *testing.T) {
	r := NewPreferenceReader(strings.NewReader("1,100,1\n\nbad line\n"), false)
	_, err := ReadAllPreferences(r)
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadUserFilter(t *testing.T) {
	filter, err := ReadUserFilter(strings.NewReader("7\n\n42\n7\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, filter.GetCardinality())

	assert.True(t, UserEligible(filter, core.UserID(7)))
	assert.True(t, UserEligible(filter, core.UserID(42)))
	assert.False(t, UserEligible(filter, core.UserID(8)))
	assert.True(t, UserEligible(nil, core.UserID(8)), "nil filter admits everyone")
}

func TestReadUserFilterMalformed(t *testing.T) {
	_, err := ReadUserFilter(strings.NewReader("7\nnot-a-number\n"))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
