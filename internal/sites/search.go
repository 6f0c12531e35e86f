package sites

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
	log "github.com/sirupsen/logrus"

	"sitenav/internal/ports"
	"sitenav/internal/resil"
	"sitenav/internal/types"
)

const searchPath = "/_api/search/postquery"

// Cell keys consumed from the search result rows.
const (
	cellTitle             = "Title"
	cellPath              = "Path"
	cellDescription       = "Description"
	cellSiteID            = "SiteId"
	cellWebID             = "WebId"
	cellSiteCollectionURL = "SiteCollectionUrl"
)

// rowsExprs locate the result rows inside the response. The API serves the
// result either bare or wrapped in a "d.postquery" envelope depending on the
// OData mode; both shapes are probed before giving up.
var rowsExprs = []string{
	"PrimaryQueryResult.RelevantResults.Table.Rows",
	"d.postquery.PrimaryQueryResult.RelevantResults.Table.Rows",
}

type searchRequest struct {
	Querytext        string   `json:"Querytext"`
	SelectProperties []string `json:"SelectProperties"`
	RowLimit         int      `json:"RowLimit"`
	TrimDuplicates   bool     `json:"TrimDuplicates"`
}

type searchRequestEnvelope struct {
	Request searchRequest `json:"request"`
}

// querySites issues one POST to the search endpoint and returns the raw result
// rows as key/value cell maps. Errors carry an explicit category tag.
func querySites(ctx context.Context, session ports.Session, cfg types.SearchConfig) ([]map[string]string, error) {
	body, err := json.Marshal(searchRequestEnvelope{Request: searchRequest{
		Querytext:        cfg.QueryText,
		SelectProperties: cfg.SelectProperties,
		RowLimit:         cfg.RowLimit,
		TrimDuplicates:   cfg.TrimDuplicates,
	}})
	if err != nil {
		return nil, types.NewCategorized(types.CategoryValidation, 0, "marshal search request", err)
	}

	url := strings.TrimRight(session.BaseURL(), "/") + searchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewCategorized(types.CategoryValidation, 0, "create search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := session.Doer().Do(req)
	if err != nil {
		return nil, types.NewCategorized(types.CategoryNetwork, 0, "search call", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, types.NewCategorized(types.CategoryNetwork, 0, "read search response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resil.FromStatus(resp.StatusCode,
			fmt.Sprintf("search returned http %d", resp.StatusCode), nil)
	}
	return parseSearchRows(raw)
}

// parseSearchRows unwraps the response envelope and flattens each row's cell
// list into a key/value map. A response that fits neither envelope shape is a
// Validation failure, never a partially-trusted object.
func parseSearchRows(raw []byte) ([]map[string]string, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, types.NewCategorized(types.CategoryValidation, 0, "parse search response", err)
	}

	var rowsAny []any
	for _, expr := range rowsExprs {
		v, err := jmespath.Search(expr, payload)
		if err != nil {
			continue
		}
		if rows, ok := v.([]any); ok {
			rowsAny = rows
			break
		}
	}
	if rowsAny == nil {
		return nil, types.NewCategorized(types.CategoryValidation, 0,
			"search response has no result table", types.ErrMalformedResult)
	}

	out := make([]map[string]string, 0, len(rowsAny))
	for i, rowAny := range rowsAny {
		row, ok := rowAny.(map[string]any)
		if !ok {
			log.WithField("row", i).Warn("search row is not an object, skipping")
			continue
		}
		cellsAny, ok := row["Cells"].([]any)
		if !ok {
			log.WithField("row", i).Warn("search row has no cells, skipping")
			continue
		}
		cells := make(map[string]string, len(cellsAny))
		for _, cellAny := range cellsAny {
			cell, ok := cellAny.(map[string]any)
			if !ok {
				continue
			}
			key, _ := cell["Key"].(string)
			if key == "" {
				continue
			}
			// Values arrive as strings; anything else is stringified the
			// same way the cell list itself carries them.
			switch v := cell["Value"].(type) {
			case string:
				cells[key] = v
			case nil:
				// absent value, leave unset
			default:
				cells[key] = fmt.Sprintf("%v", v)
			}
		}
		out = append(out, cells)
	}
	return out, nil
}

// mapRows runs the three-stage pipeline: filter raw rows on path+title
// presence, map cells to records, then keep only records with both url and id.
// Volume is logged at each stage; an empty final stage from a non-empty input
// is reported by the caller as an anomaly.
func mapRows(rows []map[string]string) []types.SiteRecord {
	filtered := make([]map[string]string, 0, len(rows))
	for _, cells := range rows {
		if cells[cellPath] == "" {
			continue
		}
		if _, ok := cells[cellTitle]; !ok {
			continue
		}
		filtered = append(filtered, cells)
	}

	mapped := make([]types.SiteRecord, 0, len(filtered))
	for _, cells := range filtered {
		rec := types.SiteRecord{
			Title:             cells[cellTitle],
			URL:               cells[cellPath],
			Description:       cells[cellDescription],
			SiteCollectionURL: cells[cellSiteCollectionURL],
		}
		if rec.Title == "" {
			rec.Title = types.UntitledSiteTitle
		}
		// Identifiers are derived only from non-empty candidates so an empty
		// cell never produces a bogus typed id.
		if v := cells[cellSiteID]; v != "" {
			rec.ID = types.SiteID(v)
		}
		if v := cells[cellWebID]; v != "" {
			rec.WebID = types.WebID(v)
		}
		mapped = append(mapped, rec)
	}

	final := make([]types.SiteRecord, 0, len(mapped))
	for _, rec := range mapped {
		if rec.URL == "" || rec.ID == "" {
			continue
		}
		final = append(final, rec)
	}

	log.WithFields(log.Fields{
		"raw":      len(rows),
		"filtered": len(filtered),
		"mapped":   len(mapped),
		"final":    len(final),
	}).Debug("site mapping pipeline")
	return final
}
