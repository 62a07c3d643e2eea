package dto

// Status is the body of every non-data response.
type Status struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
