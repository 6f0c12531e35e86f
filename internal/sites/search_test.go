package sites

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitenav/internal/resil"
	"sitenav/internal/types"
)

func buildSearchBody(wrapped bool, rows ...map[string]string) []byte {
	rowObjs := make([]map[string]any, 0, len(rows))
	for _, cells := range rows {
		cellObjs := make([]map[string]any, 0, len(cells))
		for k, v := range cells {
			cellObjs = append(cellObjs, map[string]any{"Key": k, "Value": v})
		}
		rowObjs = append(rowObjs, map[string]any{"Cells": cellObjs})
	}
	result := map[string]any{
		"PrimaryQueryResult": map[string]any{
			"RelevantResults": map[string]any{
				"Table": map[string]any{"Rows": rowObjs},
			},
		},
	}
	if wrapped {
		result = map[string]any{"d": map[string]any{"postquery": result}}
	}
	b, _ := json.Marshal(result)
	return b
}

func TestParseSearchRowsBareEnvelope(t *testing.T) {
	body := buildSearchBody(false,
		map[string]string{"Title": "Team A", "Path": "https://x/sites/a"},
	)
	rows, err := parseSearchRows(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Team A", rows[0]["Title"])
	assert.Equal(t, "https://x/sites/a", rows[0]["Path"])
}

func TestParseSearchRowsWrappedEnvelope(t *testing.T) {
	body := buildSearchBody(true,
		map[string]string{"Title": "Team B", "Path": "https://x/sites/b"},
	)
	rows, err := parseSearchRows(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Team B", rows[0]["Title"])
}

func TestParseSearchRowsRejectsUnknownShape(t *testing.T) {
	_, err := parseSearchRows([]byte(`{"something":"else"}`))
	require.Error(t, err)
	assert.Equal(t, types.CategoryValidation, resil.Classify(err))

	_, err = parseSearchRows([]byte(`not json at all`))
	require.Error(t, err)
	assert.Equal(t, types.CategoryValidation, resil.Classify(err))
}

func TestMapRowsPipeline(t *testing.T) {
	rows := []map[string]string{
		// kept
		{"Title": "Team A", "Path": "https://x/sites/a", "SiteId": "s-a", "WebId": "w-a", "Description": "alpha"},
		// dropped stage 1: no Path value even though Title is present
		{"Title": "No Path"},
		// dropped stage 1: no Title field at all
		{"Path": "https://x/sites/untitled"},
		// dropped stage 3: no SiteId candidate
		{"Title": "No Id", "Path": "https://x/sites/noid"},
		// kept, empty title maps to the placeholder
		{"Title": "", "Path": "https://x/sites/blank", "SiteId": "s-b"},
	}
	mapped := mapRows(rows)
	require.Len(t, mapped, 2)

	assert.Equal(t, types.SiteID("s-a"), mapped[0].ID)
	assert.Equal(t, types.WebID("w-a"), mapped[0].WebID)
	assert.Equal(t, "alpha", mapped[0].Description)

	assert.Equal(t, types.UntitledSiteTitle, mapped[1].Title)
	assert.Equal(t, types.SiteID("s-b"), mapped[1].ID)
	assert.Equal(t, types.WebID(""), mapped[1].WebID)
}
