package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() *metadata.MapProvider {
	return metadata.NewMapProvider(
		&metadata.AdapterSchema{
			Provider: "scheduler",
			Operations: map[string]*metadata.OperationSchema{
				"scheduled_job": {
					Name: "scheduled_job",
					Kind: "trigger",
					Input: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"interval": map[string]any{"type": "string"},
							"cron":     map[string]any{"type": "string", "format": "cron"},
						},
					},
				},
			},
		},
		&metadata.AdapterSchema{
			Provider: "http",
			Operations: map[string]*metadata.OperationSchema{
				"get_request": {
					Name: "get_request",
					Kind: "action",
					Input: map[string]any{
						"type":     "object",
						"required": []any{"url"},
						"properties": map[string]any{
							"url":     map[string]any{"type": "string"},
							"retries": map[string]any{"type": "integer", "minimum": 0},
						},
					},
				},
				"post_request": {Name: "post_request", Kind: "action"},
			},
		},
	)
}

type failingProvider struct{}

func (failingProvider) AdapterSchema(context.Context, string) (*metadata.AdapterSchema, error) {
	return nil, errors.New("connection refused")
}

func validateWith(t *testing.T, p metadata.Provider, doc map[string]any) *schema.ValidationResult {
	t.Helper()
	return mustValidator(t, Options{Metadata: p}).Validate(context.Background(), doc)
}

func TestAdapter_ValidInput(t *testing.T) {
	result := validateWith(t, testMetadata(), recipeDoc(
		httpGet(map[string]any{"url": "https://api.example.com/data", "retries": 3.0}),
		map[string]any{"provider": "http", "name": "post_request", "input": map[string]any{"anything": true}},
	))
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestAdapter_UnknownOperation(t *testing.T) {
	result := validateWith(t, testMetadata(), recipeDoc(
		map[string]any{"provider": "http", "name": "delete_request", "input": map[string]any{}},
	))

	require.Len(t, result.Errors, 1)
	e := result.Errors[0]
	assert.Equal(t, schema.ErrInputInvalidByAdapter, e.Type)
	assert.Equal(t, []string{"name"}, e.FieldPath)
	assert.Equal(t, 1, e.LineNumber())
	assert.Equal(t, `provider "http" has no operation "delete_request" (known: get_request, post_request)`, e.Message)
}

func TestAdapter_SchemaViolations(t *testing.T) {
	result := validateWith(t, testMetadata(), recipeDoc(
		httpGet(map[string]any{"url": "https://example.com", "retries": "three"}),
		httpGet(map[string]any{"retries": -1.0}),
	))

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 1, result.Errors[0].LineNumber())
	assert.Equal(t, []string{"retries"}, result.Errors[0].FieldPath)
	assert.Contains(t, result.Errors[0].Message, "want integer")

	assert.Equal(t, 2, result.Errors[1].LineNumber())
	assert.Empty(t, result.Errors[1].FieldPath)
	assert.Contains(t, result.Errors[1].Message, "missing property")

	assert.Equal(t, []string{"retries"}, result.Errors[2].FieldPath)
	for _, e := range result.Errors {
		assert.Equal(t, schema.ErrInputInvalidByAdapter, e.Type)
	}
}

func TestAdapter_DynamicValuesAreNotTypeChecked(t *testing.T) {
	result := validateWith(t, testMetadata(), recipeDoc(
		httpGet(map[string]any{"url": "#{_dp('trigger.url')}", "retries": "=1 + 2"}),
	))
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
}

func TestAdapter_CronFormat(t *testing.T) {
	doc := recipeDoc(staticAction())
	doc["trigger"].(map[string]any)["input"] = map[string]any{"cron": "*/15 * * * *"}
	assert.True(t, validateWith(t, testMetadata(), doc).IsValid())

	doc["trigger"].(map[string]any)["input"] = map[string]any{"cron": "every day"}
	result := validateWith(t, testMetadata(), doc)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].LineNumber())
	assert.Equal(t, []string{"cron"}, result.Errors[0].FieldPath)
	assert.Contains(t, result.Errors[0].Message, "cron")
}

func TestAdapter_KindMismatch(t *testing.T) {
	result := validateWith(t, testMetadata(), recipeDoc(scheduler()))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "scheduler/scheduled_job is a trigger operation, used as action", result.Errors[0].Message)
	assert.Equal(t, []string{"name"}, result.Errors[0].FieldPath)
}

func TestAdapter_UnknownProviderWarnsOnce(t *testing.T) {
	slack := map[string]any{"provider": "slack", "name": "post_message", "input": map[string]any{"text": 1.0}}
	result := validateWith(t, testMetadata(), recipeDoc(slack, slack))

	assert.True(t, result.IsValid())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.ErrInputInvalidByAdapter, result.Warnings[0].Type)
	assert.Contains(t, result.Warnings[0].Message, `"slack"`)
}

func TestAdapter_LookupFailureDegrades(t *testing.T) {
	result := validateWith(t, failingProvider{}, recipeDoc(
		httpGet(map[string]any{"id": "#{_dp('5.id')}"}),
	))

	assert.Equal(t, []schema.ErrorType{schema.ErrPillReferenceInvalid}, errorTypes(result))
	require.Len(t, result.Warnings, 2, "one per provider: scheduler and http")
	assert.Contains(t, result.Warnings[0].Message, "connection refused")
}

func TestAdapter_UnusableInputSchema(t *testing.T) {
	p := metadata.NewMapProvider(&metadata.AdapterSchema{
		Provider: "http",
		Operations: map[string]*metadata.OperationSchema{
			"get_request": {Name: "get_request", Input: map[string]any{"type": 5}},
		},
	})
	result := validateWith(t, p, recipeDoc(staticAction()))

	assert.True(t, result.IsValid())
	var messages []string
	for _, w := range result.Warnings {
		messages = append(messages, w.Message)
	}
	assert.Contains(t, messages[len(messages)-1], "input schema of http/get_request is unusable")
}

func TestAdapter_SkipsLinesThatFailedConstruction(t *testing.T) {
	broken := map[string]any{"provider": "jira", "name": 5.0, "input": map[string]any{}}
	result := validateWith(t, testMetadata(), recipeDoc(broken))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ErrStructureInvalid, result.Errors[0].Type)
	assert.Empty(t, result.Warnings, "no lookup for providers of broken lines")
}
