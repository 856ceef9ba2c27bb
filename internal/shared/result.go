package shared

// Result is the structured outcome returned to callers of every operation.
//
// Callers check Success; Details carries either the payload or a diagnostic string.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OK builds a successful [Result].
func OK(message string, details any) Result {
	return Result{Success: true, Message: message, Details: details}
}

// Fail builds a failed [Result] whose details are the error text.
func Fail(message string, err error) Result {
	r := Result{Success: false, Message: message}
	if err != nil {
		r.Details = err.Error()
	}
	return r
}

// ResultOf picks [OK] or [Fail] depending on err.
func ResultOf(message string, details any, err error) Result {
	if err != nil {
		return Fail(message, err)
	}
	return OK(message, details)
}
