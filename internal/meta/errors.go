package meta

import "fmt"

// APIError is the uniform upstream error shape every Graph call surfaces.
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FbtraceID    string `json:"fbtrace_id"`
	HTTPStatus   int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrorSubcode != 0 {
		return fmt.Sprintf("graph api error (code %d, subcode %d): %s", e.Code, e.ErrorSubcode, e.Message)
	}
	if e.Code != 0 {
		return fmt.Sprintf("graph api error (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("graph api error: %s", e.Message)
}

type errorResponse struct {
	Error APIError `json:"error"`
}
