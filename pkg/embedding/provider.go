package embedding

// Task types passed to providers that distinguish document vs query vectors.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

type Vector struct {
	Values []float32 `json:"values"`
}

// Provider generates a text embedding for one input.
type Provider interface {
	Generate(text string, taskType string) (*Vector, error)
}
