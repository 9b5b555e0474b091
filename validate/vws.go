package validate

import (
	"encoding/base64"
	"encoding/json"
	"unicode"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/imgutil"
)

// Size and dimension caps enforced by the VWS body validators.
const (
	MaxNameLength           = 64
	MaxImageDecodedBytes    = 2359293
	MaxMetadataDecodedBytes = 1 << 20 // 1,048,576
	MaxImageDimension       = 2048
)

// vwsAllowedFields is the closed set of top-level JSON fields POST
// /targets and PUT /targets/{id} accept. Anything else is a Fail (not
// an UnknownParameters-style code; the management endpoints use Fail
// for this).
var vwsAllowedFields = map[string]bool{
	"name":                 true,
	"width":                true,
	"image":                true,
	"active_flag":          true,
	"application_metadata": true,
}

// VWSBody is what the VWS body validators decode out of a target
// create/update JSON request. Pointer fields distinguish "absent" from
// "present with zero value," since PUT accepts any subset of fields.
type VWSBody struct {
	Name                   *string
	Width                  *float64
	Image                  []byte
	HasImage               bool
	ActiveFlag             *bool
	ApplicationMetadata    []byte
	HasApplicationMetadata bool
}

// VWSBodyChain returns the ordered, body-specific validators for the
// target create (create=true) or update (create=false) endpoints,
// meant to run immediately after CommonChain.
func VWSBodyChain(create bool) Chain {
	return Chain{
		parseVWSBody,
		requiredVWSFields(create),
		vwsFieldTypes,
		vwsWidthPositive,
		vwsNameShape,
		vwsImageDecodable,
		vwsImageFormat,
		vwsImageDimensions,
		vwsImageSizeCap,
		vwsActiveFlagType,
		vwsMetadataShape,
		vwsUnknownFields,
	}
}

func parseVWSBody(ctx *Context) *core.Failure {
	if len(ctx.Body) == 0 {
		ctx.rawVWS = map[string]json.RawMessage{}
		ctx.VWS = &VWSBody{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(ctx.Body, &raw); err != nil {
		return Fail()
	}
	ctx.rawVWS = raw
	ctx.VWS = &VWSBody{}
	return nil
}

func requiredVWSFields(create bool) Validator {
	return func(ctx *Context) *core.Failure {
		if !create {
			return nil
		}
		for _, field := range []string{"name", "width", "image"} {
			if _, ok := ctx.rawVWS[field]; !ok {
				return Fail()
			}
		}
		return nil
	}
}

func vwsFieldTypes(ctx *Context) *core.Failure {
	if raw, ok := ctx.rawVWS["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return Fail()
		}
		ctx.VWS.Name = &name
	}
	if raw, ok := ctx.rawVWS["width"]; ok {
		var width float64
		if err := json.Unmarshal(raw, &width); err != nil {
			return Fail()
		}
		ctx.VWS.Width = &width
	}
	if raw, ok := ctx.rawVWS["image"]; ok {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return Fail()
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return BadImage()
		}
		ctx.VWS.Image = decoded
		ctx.VWS.HasImage = true
	}
	if raw, ok := ctx.rawVWS["active_flag"]; ok {
		var active bool
		if err := json.Unmarshal(raw, &active); err != nil {
			return Fail()
		}
		ctx.VWS.ActiveFlag = &active
	}
	if raw, ok := ctx.rawVWS["application_metadata"]; ok {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return Fail()
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Fail()
		}
		ctx.VWS.ApplicationMetadata = decoded
		ctx.VWS.HasApplicationMetadata = true
	}
	return nil
}

func vwsWidthPositive(ctx *Context) *core.Failure {
	if ctx.VWS.Width != nil && *ctx.VWS.Width <= 0 {
		return Fail()
	}
	return nil
}

func vwsNameShape(ctx *Context) *core.Failure {
	if ctx.VWS.Name == nil {
		return nil
	}
	name := *ctx.VWS.Name
	if len(name) < 1 || len(name) > MaxNameLength {
		return Fail()
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return Fail()
		}
	}
	return nil
}

func vwsImageDecodable(ctx *Context) *core.Failure {
	// Base64 decoding already happened in vwsFieldTypes, where a
	// malformed payload raises BadImage; kept as a distinct step so
	// the chain reads in check order.
	return nil
}

func vwsImageFormat(ctx *Context) *core.Failure {
	if !ctx.VWS.HasImage {
		return nil
	}
	if !imgutil.Decodable(ctx.VWS.Image) {
		return BadImage()
	}
	return nil
}

func vwsImageDimensions(ctx *Context) *core.Failure {
	if !ctx.VWS.HasImage {
		return nil
	}
	w, h, err := imgutil.Dimensions(ctx.VWS.Image)
	if err != nil {
		return BadImage()
	}
	if w > MaxImageDimension || h > MaxImageDimension {
		return ImageTooLarge()
	}
	return nil
}

func vwsImageSizeCap(ctx *Context) *core.Failure {
	if !ctx.VWS.HasImage {
		return nil
	}
	if len(ctx.VWS.Image) > MaxImageDecodedBytes {
		return ImageTooLarge()
	}
	return nil
}

func vwsActiveFlagType(ctx *Context) *core.Failure {
	// Type-checked in vwsFieldTypes; nothing further to verify.
	return nil
}

func vwsMetadataShape(ctx *Context) *core.Failure {
	if !ctx.VWS.HasApplicationMetadata {
		return nil
	}
	if len(ctx.VWS.ApplicationMetadata) > MaxMetadataDecodedBytes {
		return MetadataTooLarge()
	}
	return nil
}

func vwsUnknownFields(ctx *Context) *core.Failure {
	for field := range ctx.rawVWS {
		if !vwsAllowedFields[field] {
			return Fail()
		}
	}
	return nil
}
