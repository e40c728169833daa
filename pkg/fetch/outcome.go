package fetch

import "net/http"

// Result tags which variant of Outcome is populated.
type Result string

const (
	// ResultSuccess marks a 2xx response.
	ResultSuccess Result = "success"

	// ResultError marks a non-2xx response or a transport failure.
	ResultError Result = "error"
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures (timeout, DNS, reset, abort).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents non-2xx statuses outside 4xx/5xx (1xx, 3xx).
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// Outcome is the result of fetching one target.
//
// Exactly one variant is populated, selected by Result:
//   - success: Status is the 2xx code, Data the decoded body
//   - error:   Status is the response code, or 0 when no response was received
type Outcome struct {
	// URL is the fetched target.
	URL string `json:"url"`

	// Result is the variant tag.
	Result Result `json:"result"`

	// Status is the HTTP status code; 0 means absent (transport failure).
	Status int `json:"status,omitempty"`

	// Data is the body decoded as JSON when possible, otherwise the raw text.
	// For transport failures it holds the error text.
	Data any `json:"data"`

	// Class classifies failures; empty on success.
	Class ErrorClass `json:"class,omitempty"`

	// Error is the transport error text; empty when a response was received.
	Error string `json:"error,omitempty"`
}

// Success builds the success variant.
func Success(url string, status int, data any) Outcome {
	return Outcome{
		URL:    url,
		Result: ResultSuccess,
		Status: status,
		Data:   data,
	}
}

// Failure builds the error variant for a received non-2xx response.
func Failure(url string, status int, data any) Outcome {
	return Outcome{
		URL:    url,
		Result: ResultError,
		Status: status,
		Data:   data,
		Class:  ClassifyStatus(status),
	}
}

// TransportFailure builds the error variant for a request that got no response.
func TransportFailure(url string, err error) Outcome {
	msg := "unknown transport error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{
		URL:    url,
		Result: ResultError,
		Data:   msg,
		Class:  ErrorClassNetwork,
		Error:  msg,
	}
}

// OK reports whether the outcome is the success variant.
func (o Outcome) OK() bool {
	return o.Result == ResultSuccess
}

// HasStatus reports whether a response status was received.
func (o Outcome) HasStatus() bool {
	return o.Status != 0
}

// IsSuccessStatus reports whether status is in the 2xx range.
func IsSuccessStatus(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// ClassifyStatus categorizes an HTTP status for observability.
// 2xx statuses have no class.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == 0:
		return ErrorClassNetwork
	case IsSuccessStatus(status):
		return ""
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
