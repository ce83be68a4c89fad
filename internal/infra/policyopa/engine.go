package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bioshield/internal/domain"
	"bioshield/internal/usecase"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.bioshield.trigger.result"

// Engine evaluates whether an oracle data point satisfies a coverage's
// trigger conditions using a rego bundle. The bundle is compiled once
// at startup; evaluation is pure with respect to the input document.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type triggerInput struct {
	Conditions []triggerCondition `json:"conditions"`
	DataPoint  triggerDataPoint   `json:"data_point"`
}

type triggerCondition struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}

type triggerDataPoint struct {
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

type triggerResult struct {
	Satisfied bool `json:"satisfied"`
}

func (e *Engine) Satisfied(ctx context.Context, conditions []domain.TriggerCondition, point domain.DataPoint) (bool, error) {
	if e == nil {
		return false, errors.New("policy engine is nil")
	}
	input := triggerInput{
		DataPoint: triggerDataPoint{
			Type:      string(point.Type),
			Value:     point.Value,
			Source:    point.Source,
			Timestamp: point.Timestamp,
		},
	}
	for _, cond := range conditions {
		input.Conditions = append(input.Conditions, triggerCondition{
			Type:    string(cond.Type),
			Outcome: cond.Outcome,
		})
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, errors.New("empty policy result")
	}
	result, err := decodeTriggerResult(results[0].Expressions[0].Value)
	if err != nil {
		return false, err
	}
	return result.Satisfied, nil
}

func decodeTriggerResult(value any) (triggerResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return triggerResult{}, err
	}
	var result triggerResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return triggerResult{}, err
	}
	return result, nil
}

var _ usecase.TriggerPolicy = (*Engine)(nil)
