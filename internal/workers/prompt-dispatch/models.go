package promptdispatch

type Input struct {
	Prompt string                 `json:"prompt"`
	Params map[string]interface{} `json:"params"`
}

type Output struct {
	RequestID  string      `json:"requestId"`
	Intent     string      `json:"intent"`
	Confidence float64     `json:"confidence"`
	Status     string      `json:"status"`
	Data       interface{} `json:"data,omitempty"`
}
