package llm

import "fmt"

// Model is the closed set of supported answer models. Selection is
// validated at the API/CLI boundary so an invalid choice never reaches
// retrieval logic.
type Model string

const (
	ModelQwenMax   Model = "qwen-max"
	ModelQwenPlus  Model = "qwen-plus"
	ModelQwenTurbo Model = "qwen-turbo"
)

// DefaultModel balances answer quality against latency and cost.
const DefaultModel = ModelQwenPlus

// ParseModel resolves a model selector to a Model. It accepts the model
// name, a short alias (max/plus/turbo), or the legacy numeric selector
// (1/2/3) used by older clients. An empty selector yields DefaultModel.
func ParseModel(selector string) (Model, error) {
	switch selector {
	case "":
		return DefaultModel, nil
	case "qwen-max", "max", "1":
		return ModelQwenMax, nil
	case "qwen-plus", "plus", "2":
		return ModelQwenPlus, nil
	case "qwen-turbo", "turbo", "3":
		return ModelQwenTurbo, nil
	default:
		return "", fmt.Errorf("invalid llm_model %q: must be one of qwen-max, qwen-plus, qwen-turbo", selector)
	}
}
