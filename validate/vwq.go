package validate

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/imgutil"
)

// Query-side constants.
const (
	MinMaxNumResults         = 1
	MaxMaxNumResults         = 50
	DefaultMaxResults        = 1
	DefaultIncludeTargetData = "top"
	MaxQueryImageDimension   = MaxImageDimension
)

var validIncludeTargetData = map[string]bool{"top": true, "all": true, "none": true}

// VWQBody is what the VWQ body validators decode out of a /v1/query
// multipart request.
type VWQBody struct {
	Image             []byte
	MaxNumResults     int
	IncludeTargetData string
}

// VWQBodyChain returns the ordered, body-specific validators for the
// query endpoint, meant to run immediately after CommonChain.
func VWQBodyChain() Chain {
	return Chain{
		vwqContentType,
		vwqBoundaryParam,
		vwqBoundaryInBody,
		vwqParseMultipart,
		vwqMaxNumResults,
		vwqMaxNumResultsRange,
		vwqIncludeTargetData,
		vwqAcceptHeader,
		vwqImageFormat,
		vwqImageDimensions,
	}
}

func vwqContentType(ctx *Context) *core.Failure {
	ct := ctx.Request.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		return UnsupportedMediaType()
	}
	return nil
}

func vwqBoundaryParam(ctx *Context) *core.Failure {
	_, params, err := mime.ParseMediaType(ctx.Request.Header.Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		return NoBoundaryFound()
	}
	return nil
}

func vwqBoundaryInBody(ctx *Context) *core.Failure {
	_, params, _ := mime.ParseMediaType(ctx.Request.Header.Get("Content-Type"))
	boundary := params["boundary"]
	if !bytes.Contains(ctx.Body, []byte("--"+boundary)) {
		return BoundaryNotInBody()
	}
	return nil
}

// vwqParseMultipart walks the multipart body, extracting exactly one
// "image" part plus the optional "max_num_results" and
// "include_target_data" form fields. A missing or duplicated image
// part is a Fail.
func vwqParseMultipart(ctx *Context) *core.Failure {
	_, params, _ := mime.ParseMediaType(ctx.Request.Header.Get("Content-Type"))
	reader := multipart.NewReader(bytes.NewReader(ctx.Body), params["boundary"])

	ctx.VWQ = &VWQBody{
		MaxNumResults:     DefaultMaxResults,
		IncludeTargetData: DefaultIncludeTargetData,
	}

	var imageParts int
	var rawMaxNumResults string
	var hasMaxNumResults bool
	var rawIncludeTargetData string
	var hasIncludeTargetData bool

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Fail()
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return Fail()
		}
		switch part.FormName() {
		case "image":
			imageParts++
			ctx.VWQ.Image = data
		case "max_num_results":
			rawMaxNumResults = string(data)
			hasMaxNumResults = true
		case "include_target_data":
			rawIncludeTargetData = string(data)
			hasIncludeTargetData = true
		}
	}

	if imageParts != 1 {
		return Fail()
	}

	if hasMaxNumResults {
		n, err := strconv.Atoi(strings.TrimSpace(rawMaxNumResults))
		if err != nil {
			return InvalidMaxNumResults()
		}
		ctx.VWQ.MaxNumResults = n
	}
	if hasIncludeTargetData {
		ctx.VWQ.IncludeTargetData = strings.TrimSpace(rawIncludeTargetData)
	}
	return nil
}

func vwqMaxNumResults(ctx *Context) *core.Failure {
	// Parsing already happened in vwqParseMultipart; nothing further.
	return nil
}

func vwqMaxNumResultsRange(ctx *Context) *core.Failure {
	n := ctx.VWQ.MaxNumResults
	if n < MinMaxNumResults || n > MaxMaxNumResults {
		return MaxNumResultsOutOfRange()
	}
	return nil
}

func vwqIncludeTargetData(ctx *Context) *core.Failure {
	if !validIncludeTargetData[ctx.VWQ.IncludeTargetData] {
		return InvalidIncludeTargetData()
	}
	return nil
}

func vwqAcceptHeader(ctx *Context) *core.Failure {
	accept := ctx.Request.Header.Get("Accept")
	if accept == "" || accept == "application/json" || accept == "*/*" {
		return nil
	}
	return InvalidAcceptHeader()
}

func vwqImageFormat(ctx *Context) *core.Failure {
	if !imgutil.Decodable(ctx.VWQ.Image) {
		return BadImage()
	}
	return nil
}

func vwqImageDimensions(ctx *Context) *core.Failure {
	w, h, err := imgutil.Dimensions(ctx.VWQ.Image)
	if err != nil {
		return BadImage()
	}
	if w > MaxQueryImageDimension || h > MaxQueryImageDimension {
		return QueryOutOfBounds()
	}
	return nil
}
