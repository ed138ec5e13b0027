package listtemplates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"aiquery-workers/internal/aiquery"
	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/common/logger"
)

const (
	TaskType = "list-ai-templates"

	sendTimeout = 10 * time.Second
)

var ErrMissingContext = errors.New("context variable is required")

// Handler publishes the templates a caller may use, for prompt construction.
type Handler struct {
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	output, err := h.execute(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("encode job variables: %v", err))
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return apperrors.NewBrokerError("complete job", err, true)
	}
	return nil
}

func (h *Handler) execute(variables string) (*Output, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewParseError(fmt.Errorf("parse input: %w", err))
	}
	if input.Context == nil {
		return nil, apperrors.NewInvalidContextError(ErrMissingContext)
	}
	qc, err := input.Context.ToContext()
	if err != nil {
		return nil, apperrors.NewInvalidContextError(err)
	}

	output := &Output{
		Templates: aiquery.AvailableTemplates(qc),
		Catalog:   aiquery.DescribeTemplates(qc),
	}
	h.logger.Debug("templates listed", map[string]interface{}{
		"userId": qc.UserID(),
		"count":  len(output.Templates),
	})
	return output, nil
}
