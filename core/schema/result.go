package schema

import "strings"

// ErrorDetail describes one validation failure.
type ErrorDetail struct {
	KeywordLocation  string `json:"keywordLocation"`
	InstanceLocation string `json:"instanceLocation"`
	Message          string `json:"error"`
	Data             any    `json:"data,omitempty"`
}

// Keyword returns the keyword that produced the failure, the last segment
// of KeywordLocation.
func (d ErrorDetail) Keyword() string {
	i := strings.LastIndexByte(d.KeywordLocation, '/')
	if i < 0 {
		return d.KeywordLocation
	}
	return pointerUnescaper.Replace(d.KeywordLocation[i+1:])
}

// Result holds the outcome of a validation. Errors is never nil.
type Result struct {
	Valid  bool          `json:"valid"`
	Errors []ErrorDetail `json:"errors"`
}

func validResult() Result {
	return Result{Valid: true, Errors: []ErrorDetail{}}
}

// AddError records a failure.
func (r *Result) AddError(d ErrorDetail) {
	r.Valid = false
	r.Errors = append(r.Errors, d)
}

// Merge appends the failures of other.
func (r *Result) Merge(other Result) {
	if other.Valid {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, other.Errors...)
}

// Error returns a combined error message.
func (r Result) Error() string {
	if r.Valid {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, loc+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// rebase prefixes every location in r with the given pointers.
func (r Result) rebase(keywordBase, instanceBase string) Result {
	if r.Valid {
		return validResult()
	}
	out := Result{Errors: make([]ErrorDetail, len(r.Errors))}
	for i, e := range r.Errors {
		e.KeywordLocation = keywordBase + e.KeywordLocation
		e.InstanceLocation = instanceBase + e.InstanceLocation
		out.Errors[i] = e
	}
	return out
}
