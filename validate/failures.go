package validate

import (
	"encoding/json"
	"net/http"

	"github.com/mockrecon/mockrecon/core"
)

type resultBody struct {
	ResultCode core.ResultCode `json:"result_code"`
}

// jsonFailure builds a Failure whose body is {"result_code": code}, the
// shape every non-HTML domain failure in this service uses.
func jsonFailure(status int, code core.ResultCode) *core.Failure {
	body, _ := json.Marshal(resultBody{ResultCode: code})
	return &core.Failure{
		Status: status,
		Body:   body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// The named failure constructors below correspond one-to-one with the
// validators that raise them.
var (
	ContentLengthHeaderNotInt = func() *core.Failure {
		f := jsonFailure(http.StatusBadRequest, core.ResultMalformedRequest)
		f.Headers["Connection"] = "close"
		return f
	}
	ContentLengthHeaderTooLarge = func() *core.Failure { return jsonFailure(http.StatusRequestEntityTooLarge, core.ResultImageTooLarge) }
	RequestEntityTooLarge       = func() *core.Failure { return jsonFailure(http.StatusRequestEntityTooLarge, core.ResultImageTooLarge) }
	DateHeaderNotGiven          = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultDateRangeError) }
	DateFormatNotValid          = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultDateRangeError) }
	RequestTimeTooSkewed        = func() *core.Failure { return jsonFailure(http.StatusForbidden, core.ResultRequestTimeTooSkewed) }
	InactiveProjectVWS          = func() *core.Failure { return jsonFailure(http.StatusForbidden, core.ResultInactiveProject) }
	InactiveProjectVWQ          = func() *core.Failure { return jsonFailure(http.StatusUnprocessableEntity, core.ResultInactiveProject) }

	Fail                 = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	TargetNameExist      = func() *core.Failure { return jsonFailure(http.StatusForbidden, core.ResultTargetNameExist) }
	UnknownTarget        = func() *core.Failure { return jsonFailure(http.StatusNotFound, core.ResultUnknownTarget) }
	ImageTooLarge        = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultImageTooLarge) }
	MetadataTooLarge     = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultMetadataTooLarge) }
	TargetStatusNotSucc  = func() *core.Failure { return jsonFailure(http.StatusForbidden, core.ResultTargetStatusNotSuccess) }

	// UnsupportedMediaType omits Content-Type entirely: the 415 carries
	// no content-type header at all, not an empty one.
	UnsupportedMediaType = func() *core.Failure {
		body, _ := json.Marshal(resultBody{ResultCode: core.ResultFail})
		return &core.Failure{Status: http.StatusUnsupportedMediaType, Body: body}
	}
	NoBoundaryFound          = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	BoundaryNotInBody        = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	InvalidMaxNumResults     = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	MaxNumResultsOutOfRange  = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	InvalidIncludeTargetData = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultFail) }
	InvalidAcceptHeader      = func() *core.Failure { return jsonFailure(http.StatusNotAcceptable, core.ResultFail) }
	BadImage                 = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultBadImage) }
	QueryOutOfBounds         = func() *core.Failure { return jsonFailure(http.StatusBadRequest, core.ResultImageTooLarge) }
)
