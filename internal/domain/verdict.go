package domain

// VerdictStatus is the outcome of an AI quality-control evaluation.
type VerdictStatus string

// Possible verdict status values
const (
	VerdictPass VerdictStatus = "pass"
	VerdictFail VerdictStatus = "fail"
)

// QCVerdict is the result of evaluating generated content. It is an
// ephemeral value: it travels with the attempt that produced it and is
// embedded in the version persisted on pass, never stored on its own.
type QCVerdict struct {
	Status VerdictStatus   `json:"status"`
	Issues []string        `json:"issues,omitempty"`
	Flags  map[string]bool `json:"flags,omitempty"`
}

// Passed reports whether the AI verdict is a pass.
func (v *QCVerdict) Passed() bool {
	return v != nil && v.Status == VerdictPass
}
