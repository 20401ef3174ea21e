package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure; values travel on the wire, so append only
type ErrorCode uint16

const (
	ErrorCodeUnknown         ErrorCode = iota // unclassified
	ErrorCodePanic                            // recovered panic
	ErrorCodeUnavailable                      // transient; retry may succeed
	ErrorCodeTimeout                          // deadline exceeded
	ErrorCodeConflict                         // write-once violation or ambiguous lookup
	ErrorCodeInvalidArgument                  // bad parameter or configuration
	ErrorCodeValidation                       // request body failed validation
	ErrorCodeJSON                             // request body is not JSON
	ErrorCodeNotFound                         // absent resource or calibration record
	ErrorCodeDB                               // other database failure
	ErrorCodeMalformed                        // unparsable header card or value
	ErrorCodeMismatch                         // input disagrees with what was declared
	ErrorCodeContract                         // caller broke an API contract
	ErrorCodeIntegrity                        // checksum or digest failed verification
)

var codes = [...]struct {
	kind   string
	status int
}{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeTimeout:         {"timeout", http.StatusGatewayTimeout},
	ErrorCodeConflict:        {"conflict", http.StatusConflict},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeJSON:            {"json", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeMalformed:       {"malformed", http.StatusUnprocessableEntity},
	ErrorCodeMismatch:        {"mismatch", http.StatusUnprocessableEntity},
	ErrorCodeContract:        {"contract", http.StatusInternalServerError},
	ErrorCodeIntegrity:       {"integrity", http.StatusInternalServerError},
}

// String is the stable snake_case kind reported to API clients
func (c ErrorCode) String() string {
	if int(c) < len(codes) {
		return codes[c].kind
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// HTTPStatusCode maps c to a response status; unknown codes are 500
func HTTPStatusCode(c ErrorCode) int {
	if int(c) < len(codes) {
		return codes[c].status
	}
	return http.StatusInternalServerError
}
