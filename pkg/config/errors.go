package config

import (
	"errors"
	"fmt"
)

// ErrMalformed marks every config rejection: schema violations, unresolvable
// includes, unknown element types after aliasing, broken pipe escapes and
// missing referenced files. Callers branch with errors.Is.
var ErrMalformed = errors.New("config: malformed")

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
