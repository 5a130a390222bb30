package model

import "strings"

const (
	ResultHired    = "hired"
	ResultRejected = "rejected"
)

var resultAliases = map[string]string{
	"pass":     ResultHired,
	"approved": ResultHired,
	"fail":     ResultRejected,
	"rejected": ResultRejected,
}

// FinalResult maps the result of the last execution to the final result of
// the instance. Unknown results are used verbatim.
func FinalResult(executionResult string) string {
	if mapped, ok := resultAliases[strings.ToLower(strings.TrimSpace(executionResult))]; ok {
		return mapped
	}
	return executionResult
}
