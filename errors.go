package codegen

import (
	"fmt"
	"log/slog"
	"os"
)

// panicOrError returns err unchanged, unless PANIC_ON_ALL_ERRORS or
// PANIC_ON_CODEGEN_ERRORS is set in the environment, in which case it
// panics. A debugging aid that turns soft/hard errors into stack traces
// during development without changing the normal caller-facing contract.
func panicOrError(err error) error {
	if err != nil {
		if os.Getenv("PANIC_ON_ALL_ERRORS") == "true" || os.Getenv("PANIC_ON_CODEGEN_ERRORS") == "true" {
			panic(err)
		}
	}
	return err
}

// logWarn emits a soft-failure warning (missing schema key, missing
// include, failed git call, shape violation) via log/slog rather than
// aborting the compile.
func logWarn(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}
