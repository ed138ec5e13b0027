package executequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/common/logger"
	"aiquery-workers/internal/models"
)

const (
	TaskType = "execute-ai-query"
)

var ErrMissingContext = errors.New("context variable is required")

// QueryEngine is the part of aiquery.Engine the worker needs.
type QueryEngine interface {
	ExecuteQuery(ctx context.Context, qc models.AIQueryContext, name models.TemplateName, params json.RawMessage) models.QueryResult
}

type Handler struct {
	config       *Config
	engine       QueryEngine
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, engine QueryEngine, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// Handle completes the job with the query result. Only a malformed payload or
// context fails the job; template errors travel inside queryResult.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	return h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewParseError(fmt.Errorf("parse input: %w", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Context == nil {
		return nil, apperrors.NewInvalidContextError(ErrMissingContext)
	}
	qc, err := input.Context.ToContext()
	if err != nil {
		return nil, apperrors.NewInvalidContextError(err)
	}

	name := models.TemplateName(strings.TrimSpace(input.Template))
	result := h.engine.ExecuteQuery(ctx, qc, name, input.Params)

	h.logger.Info("query finished", map[string]interface{}{
		"template": logger.SanitizeString(string(name), logger.MaxSearchTermLength),
		"userId":   qc.UserID(),
		"ok":       result.OK(),
	})
	return &Output{QueryResult: result}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return apperrors.NewInternalError(fmt.Sprintf("encode job variables: %v", err))
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return apperrors.NewBrokerError("complete job", err, true)
	}
	return nil
}
