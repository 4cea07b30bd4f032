package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warningPaths(ws []Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Path
	}
	return out
}

func TestLint_Clean(t *testing.T) {
	ws, err := Lint(`{
		"Applicant": {
			"_sectionTitle": "Applicant",
			"_order": 1,
			"_colspan": 6,
			"_collapsed": false,
			"name": "Name",
			"phone": {"label": "Phone", "type": "phone", "colspan": 4},
			"Items": [{"n": "N"}, {"n": "Number"}]
		}
	}`)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestLint_Problems(t *testing.T) {
	ws, err := Lint(`{
		"_sectionTitle": "stray",
		"Flat": "not a section",
		"Field": {"label": "Looks like a field"},
		"S": {
			"_order": "first",
			"_colspan": 20,
			"_collapsed": "yes",
			"_color": "red",
			"count": 3,
			"blank": " ",
			"wide": {"label": "Wide", "type": "money", "colspan": 2.5},
			"mixed": {"label": "Mixed", "extra": "x"},
			"Empty": [],
			"Rows": [{"a": "A"}, {"b": "B"}]
		}
	}`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"_sectionTitle",
		"Flat",
		"Field",
		"S._order",
		"S._colspan",
		"S._collapsed",
		"S._color",
		"S.count",
		"S.blank",
		"S.wide.type",
		"S.wide.colspan",
		"S.mixed",
		"S.Empty",
		"S.Rows[1]",
	}, warningPaths(ws))
	assert.Contains(t, ws[9].Message, "money")
}

func TestLint_MalformedDocument(t *testing.T) {
	_, err := Lint(`{"S": `)
	var mie *MalformedInputError
	require.ErrorAs(t, err, &mie)

	ws, err := Lint(nil)
	require.NoError(t, err)
	assert.Empty(t, ws)
}
