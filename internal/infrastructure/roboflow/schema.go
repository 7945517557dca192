package roboflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"ecotachos/internal/domain/entity"
)

// Ответ workflow: outputs может отсутствовать, но если есть, это массив объектов.
const workflowSchemaJSON = `{
	"type": "object",
	"properties": {
		"outputs": {
			"type": "array",
			"items": {"type": "object"}
		}
	}
}`

// Ответ классификатора: predictions обязателен.
const modelSchemaJSON = `{
	"type": "object",
	"required": ["predictions"],
	"properties": {
		"predictions": {
			"type": ["array", "object"]
		}
	}
}`

var (
	workflowSchema = mustCompile("workflow.json", workflowSchemaJSON)
	modelSchema    = mustCompile("model.json", modelSchemaJSON)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// validate проверяет конверт ответа по схеме.
func validate(schema *jsonschema.Schema, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrBackendMalformedResponse, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrBackendMalformedResponse, err)
	}
	return nil
}
