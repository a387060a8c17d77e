package context

type Key string

const (
	Admission Key = "admission"
	Params    Key = "params"
)
