package api

import (
	"fmt"

	"github.com/legisbr/consolida/internal/config"
	"github.com/legisbr/consolida/pkg/openapi"
)

// buildSpec assembles the OpenAPI document served at /openapi.json.
func buildSpec(cfg *config.Config) ([]byte, error) {
	var oc openapi.Config
	if err := oc.Finalize(nil); err != nil {
		return nil, err
	}

	spec := openapi.NewSpec(oc.Title, cfg.Version)
	spec.SetDescription(oc.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Norm": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":               {Type: "string", Format: "uuid"},
				"kind":             {Type: "string", Example: "lei"},
				"number":           {Type: "string", Example: "8078"},
				"year":             {Type: "integer", Example: 1990},
				"summary":          {Type: "string"},
				"publication_date": {Type: "string", Format: "date"},
				"effective_date":   {Type: "string", Format: "date"},
				"status":           {Type: "string", Enum: []any{"acquired", "text_extracted", "segmented", "events_extracted", "consolidated", "needs_manual_segmentation", "failed"}},
				"needs_review":     {Type: "boolean"},
			},
		},
		"AmendmentEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                    {Type: "string", Format: "uuid"},
				"source_norm_id":        {Type: "string", Format: "uuid"},
				"target_norm_id":        {Type: "string", Format: "uuid"},
				"target_device_id":      {Type: "string", Format: "uuid"},
				"action":                {Type: "string", Enum: []any{"revoke", "replace_text", "insert_device", "renumber"}},
				"effective_date":        {Type: "string", Format: "date"},
				"extraction_confidence": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
				"review_state":          {Type: "string", Enum: []any{"needs_review", "auto_applied", "rejected", "applied_manual"}},
			},
		},
		"ConsolidatedTree": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"norm_id":        {Type: "string", Format: "uuid"},
				"as_of":          {Type: "string", Format: "date-time"},
				"latency_period": {Type: "boolean", Description: "Published but not yet binding at as_of"},
				"roots":          {Type: "array", Items: &openapi.Schema{Type: "object"}},
			},
		},
	})

	asOf := openapi.QueryParam("as_of", "string", "Projection date (defaults to now)", false)

	spec.Paths["/norms"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List norms",
			Tags:    []string{"norms"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paginated norms", "Norm"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Register a norm",
			Tags:        []string{"norms"},
			RequestBody: openapi.RequestBodyJSON("Norm", true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Created norm", "Norm"),
				400: openapi.ResponseRef("BadRequest"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	spec.Paths["/norms/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a norm",
			Tags:       []string{"norms"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Norm identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The norm", "Norm"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/norms/{id}/segment"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Segment a norm's raw text into its device tree",
			Tags:       []string{"norms"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Norm identifier")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Segmentation report"},
				409: openapi.ResponseRef("Conflict"),
				422: {Description: "Markers cannot form a consistent hierarchy; norm flagged for manual segmentation"},
			},
		},
	}

	spec.Paths["/norms/{id}/consolidated"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Render the consolidated tree as of a date",
			Tags:       []string{"consolidation"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Norm identifier"), asOf},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Consolidated tree", "ConsolidatedTree"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/norms/{id}/consolidate"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Replay amendment events up to a date",
			Tags:       []string{"consolidation"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Norm identifier"), asOf},
			Responses: map[int]*openapi.Response{
				200: {Description: "Consolidation report"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/devices/{id}/history"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Full version history of a device",
			Tags:       []string{"devices"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Device identifier")},
			Responses: map[int]*openapi.Response{
				200: {Description: "Device with ordered versions"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/events"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List amendment events",
			Tags:    []string{"events"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paginated events", "AmendmentEvent"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Record a candidate amendment event",
			Tags:        []string{"events"},
			RequestBody: openapi.RequestBodyJSON("AmendmentEvent", true),
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Recorded event (possibly rejected)", "AmendmentEvent"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/events/{id}/resolve"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:    "Apply or reject an event after human review",
			Tags:       []string{"events"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Event identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Resolved event", "AmendmentEvent"),
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}

func floatPtr(f float64) *float64 {
	return &f
}
