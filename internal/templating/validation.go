package templating

import (
	"github.com/nikolalohinski/gonja/v2"
)

// ValidateTemplate validates template syntax without executing it. It only
// checks syntax correctness and does not execute the template or require
// context variables.
func ValidateTemplate(templateStr string, engineType EngineType) error {
	if engineType != EngineTypeGonja {
		return NewUnsupportedEngineError(engineType)
	}

	_, err := gonja.FromString(templateStr)
	if err != nil {
		return NewCompilationError("template", templateStr, err)
	}

	return nil
}
