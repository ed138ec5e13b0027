package aiquery

import "aiquery-workers/internal/models"

// TemplateInfo describes one template for prompt construction.
type TemplateInfo struct {
	Name        models.TemplateName    `json:"name"`
	Description string                 `json:"description"`
	CrossOrg    bool                   `json:"crossOrg"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// AvailableTemplates lists the templates qc may call: every org-scoped one, plus
// the cross-org ones for contexts that may compare orgs.
func AvailableTemplates(qc models.AIQueryContext) []models.TemplateName {
	names := models.OrgScopedTemplateNames()
	if CanQueryCrossOrg(qc) {
		names = append(names, models.CrossOrgTemplateNames()...)
	}
	return names
}

// DescribeTemplates returns AvailableTemplates with descriptions and parameter schemas.
func DescribeTemplates(qc models.AIQueryContext) []TemplateInfo {
	names := AvailableTemplates(qc)
	out := make([]TemplateInfo, 0, len(names))
	for _, name := range names {
		spec := templateSpecs[name]
		out = append(out, TemplateInfo{
			Name:        name,
			Description: spec.description,
			CrossOrg:    name.IsCrossOrg(),
			Parameters:  copySchema(spec.schema),
		})
	}
	return out
}

// copySchema deep-copies a schema so callers cannot edit the shared tables.
func copySchema(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copySchemaValue(v)
	}
	return out
}

func copySchemaValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copySchema(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copySchemaValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
