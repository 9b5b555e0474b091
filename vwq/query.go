package vwq

import (
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/store"
	"github.com/mockrecon/mockrecon/validate"
	"github.com/mockrecon/mockrecon/wire"
)

type queryResultTargetData struct {
	TargetTimestamp     int64   `json:"target_timestamp"`
	Name                string  `json:"name"`
	ApplicationMetadata *string `json:"application_metadata"`
}

type queryResult struct {
	TargetID   string                  `json:"target_id"`
	TargetData *queryResultTargetData  `json:"target_data,omitempty"`
}

type queryResponse struct {
	ResultCode core.ResultCode `json:"result_code"`
	Results    []queryResult   `json:"results"`
	QueryID    string          `json:"query_id"`
}

// query implements POST /v1/query.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		wire.WriteFailure(w, s.Clk, validate.Fail())
		return
	}
	now := s.Clk.Now()
	ctx := &validate.Context{
		Request:        r,
		Body:           body,
		Now:            now,
		Store:          s.Store,
		AllowClientKey: true,
	}
	chain := validate.CommonChain(s.Resolver, true, validate.InactiveProjectVWQ)
	if f := chain.Run(ctx); f != nil {
		wire.WriteFailure(w, s.Clk, f)
		return
	}
	if f := validate.VWQBodyChain().Run(ctx); f != nil {
		wire.WriteFailure(w, s.Clk, f)
		return
	}

	recognitionWindow := time.Duration(s.RecognitionWindow * float64(time.Second))
	processingWindow := time.Duration(s.ProcessingWindow * float64(time.Second))

	var notDeletedMatches, deletionNotRecognized, deleteProcessing, processingMatches []*core.Target

	for _, t := range ctx.Database.Targets {
		phase := t.Phase(now, recognitionWindow, processingWindow)
		if t.ManagementDeleted() {
			if phase == core.Expired {
				continue
			}
		} else if t.Status(now) == core.StatusFailed {
			continue
		}
		if !s.Matcher.Matches(t.Image, ctx.VWQ.Image) {
			continue
		}

		switch {
		// A target still inside its processing window counts as a
		// processing match whether or not it has since been deleted.
		case t.Status(now) == core.StatusProcessing:
			processingMatches = append(processingMatches, t)
		case !t.ManagementDeleted() && t.Status(now) == core.StatusSuccess:
			if t.ActiveFlag {
				notDeletedMatches = append(notDeletedMatches, t)
			}
		case t.ManagementDeleted() && phase == core.RecognitionWindow:
			if t.ActiveFlag {
				deletionNotRecognized = append(deletionNotRecognized, t)
			}
		case t.ManagementDeleted() && phase == core.ProcessingWindow:
			if t.ActiveFlag {
				deleteProcessing = append(deleteProcessing, t)
			}
		}
	}

	if len(processingMatches)+len(deleteProcessing) > 0 {
		wire.WriteFailure(w, s.Clk, wire.InternalError())
		return
	}

	matches := append(append([]*core.Target{}, notDeletedMatches...), deletionNotRecognized...)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].RecoRating != matches[j].RecoRating {
			return matches[i].RecoRating > matches[j].RecoRating
		}
		return matches[i].LastModified.After(matches[j].LastModified)
	})

	maxResults := ctx.VWQ.MaxNumResults
	if maxResults > len(matches) {
		maxResults = len(matches)
	}
	matches = matches[:maxResults]

	results := make([]queryResult, 0, len(matches))
	for i, t := range matches {
		res := queryResult{TargetID: t.ID}
		include := ctx.VWQ.IncludeTargetData == "all" || (ctx.VWQ.IncludeTargetData == "top" && i == 0)
		if include {
			var metadata *string
			if t.ApplicationMetadata != nil {
				encoded := wire.EncodeMetadata(t.ApplicationMetadata)
				metadata = &encoded
			}
			res.TargetData = &queryResultTargetData{
				TargetTimestamp:     t.LastModified.Unix(),
				Name:                t.Name,
				ApplicationMetadata: metadata,
			}
		}
		results = append(results, res)
	}

	wire.WriteJSON(w, s.Clk, http.StatusOK, queryResponse{
		ResultCode: core.ResultSuccess,
		Results:    results,
		QueryID:    store.NewID(),
	})
}
