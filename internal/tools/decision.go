package tools

import (
	"context"

	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/domain"
)

// decisionRecordSchema is the worked example from spec §4.3: rationale,
// impactLevel, and alternativesConsidered each accept declared synonym
// aliases the validator rewrites before type-checking.
func decisionRecordSchema() catalog.Schema {
	return catalog.Schema{Fields: []catalog.Field{
		{Name: "projectId", Type: catalog.TypeString},
		{Name: "title", Type: catalog.TypeString, Required: true},
		{Name: "description", Type: catalog.TypeString},
		{Name: "rationale", Type: catalog.TypeString, Aliases: []string{"reasoning", "reason", "why"}},
		{Name: "impactLevel", Type: catalog.TypeEnum,
			EnumValues: []string{"low", "medium", "high", "critical"},
			Aliases:    []string{"impact", "severity", "priority"}},
		{Name: "decisionType", Type: catalog.TypeString, EnumValues: domain.DecisionTypes},
		{Name: "alternativesConsidered", Type: catalog.TypeArray, ElementType: catalog.TypeString,
			Aliases: []string{"options", "alternatives", "choices"}},
	}}
}

func registerDecisionTools(d *dispatcher.Dispatcher, deps Deps) {
	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "decision_record",
		Description: "Records a new technical decision.",
		Category:    catalog.CategoryDecision,
		Schema:      decisionRecordSchema(),
		Examples: []catalog.Example{{
			Description: "Synonym acceptance (spec worked example)",
			Arguments: map[string]interface{}{
				"title": "X", "description": "Y", "reasoning": "Z",
				"impact": "high", "decisionType": "architecture",
			},
		}},
	})
	mustRegisterHandler(d, "decision_record", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		dec := &domain.TechnicalDecision{
			ProjectID:              stringArg(args, "projectId"),
			Title:                  stringArg(args, "title"),
			Problem:                stringArg(args, "description"),
			Decision:               stringArg(args, "title"),
			Rationale:              stringArg(args, "rationale"),
			AlternativesConsidered: stringSliceArg(args, "alternativesConsidered"),
			ImpactLevel:            domain.ImpactLevel(stringArg(args, "impactLevel")),
			DecisionType:           stringArg(args, "decisionType"),
			Status:                 domain.DecisionActive,
		}
		if dec.ImpactLevel == "" {
			dec.ImpactLevel = domain.ImpactMedium
		}
		if err := deps.DB.CreateDecision(ctx, dec); err != nil {
			return nil, err
		}
		return dec, nil
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "decision_supersede",
		Description: "Marks one decision superseded by another (invariant: status=superseded requires a successor).",
		Category:    catalog.CategoryDecision,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "decisionId", Type: catalog.TypeString, Required: true},
			{Name: "supersededBy", Type: catalog.TypeString, Required: true},
		}},
	})
	mustRegisterHandler(d, "decision_supersede", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		err := deps.DB.SupersedeDecision(ctx, stringArg(args, "decisionId"), stringArg(args, "supersededBy"))
		return nil, err
	})

	d.RegisterCatalog(&catalog.ToolDefinition{
		Name:        "decision_list",
		Description: "Lists technical decisions recorded for a project.",
		Category:    catalog.CategoryDecision,
		Schema: catalog.Schema{Fields: []catalog.Field{
			{Name: "projectId", Type: catalog.TypeString},
		}},
	})
	mustRegisterHandler(d, "decision_list", func(ctx context.Context, sessionKey string, args map[string]interface{}) (interface{}, error) {
		return deps.DB.ListDecisions(ctx, stringArg(args, "projectId"))
	})
}
