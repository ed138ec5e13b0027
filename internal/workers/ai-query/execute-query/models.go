// internal/workers/ai-query/execute-query/models.go
package executequery

import (
	"encoding/json"

	"aiquery-workers/internal/models"
)

type Input struct {
	Context  *models.ContextPayload `json:"context"`
	Template string                 `json:"template"`
	Params   json.RawMessage        `json:"params,omitempty"`
}

type Output struct {
	QueryResult models.QueryResult `json:"queryResult"`
}
