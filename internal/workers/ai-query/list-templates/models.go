// internal/workers/ai-query/list-templates/models.go
package listtemplates

import (
	"aiquery-workers/internal/aiquery"
	"aiquery-workers/internal/models"
)

type Input struct {
	Context *models.ContextPayload `json:"context"`
}

type Output struct {
	Templates []models.TemplateName `json:"templates"`
	Catalog   []aiquery.TemplateInfo `json:"catalog"`
}
