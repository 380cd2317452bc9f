package form

import "net/url"

// Input is the submitted values of a form request: the raw, not yet validated
// user input and the values earlier validation already accepted.
type Input struct {
	Live      url.Values
	Submitted map[string][]string
}

// NewInput wraps raw request values. Submitted may be nil.
func NewInput(live url.Values, submitted map[string][]string) Input {
	if live == nil {
		live = url.Values{}
	}
	return Input{Live: live, Submitted: submitted}
}

// LiveInput returns the user input for name when it is non-empty.
func (in Input) LiveInput(name string) (string, bool) {
	v := in.Live.Get(name)
	return v, v != ""
}

// SubmittedValue returns the validated value for name, a sequence for
// multi-valued fields.
func (in Input) SubmittedValue(name string) ([]string, bool) {
	v, ok := in.Submitted[name]
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}
