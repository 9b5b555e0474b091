package vws

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/logging"
	"github.com/mockrecon/mockrecon/store"
	"github.com/mockrecon/mockrecon/validate"
	"github.com/mockrecon/mockrecon/wire"
)

type createdResponse struct {
	ResultCode    core.ResultCode `json:"result_code"`
	TransactionID string          `json:"transaction_id"`
	TargetID      string          `json:"target_id"`
}

type statusResponse struct {
	ResultCode    core.ResultCode `json:"result_code"`
	TransactionID string          `json:"transaction_id"`
}

// createTarget implements POST /targets.
func (s *Server) createTarget(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	if f := validate.VWSBodyChain(true).Run(ctx); f != nil {
		wire.WriteFailure(w, s.Clk, f)
		return
	}

	active := true
	if ctx.VWS.ActiveFlag != nil {
		active = *ctx.VWS.ActiveFlag
	}
	var metadata []byte
	if ctx.VWS.HasApplicationMetadata {
		metadata = ctx.VWS.ApplicationMetadata
	}

	now := ctx.Now
	t := &core.Target{
		ID:                    store.NewID(),
		Name:                  *ctx.VWS.Name,
		Width:                 *ctx.VWS.Width,
		Image:                 ctx.VWS.Image,
		ActiveFlag:            active,
		ApplicationMetadata:   metadata,
		CreatedAt:             now,
		LastModified:          now,
		ProcessingTimeSeconds: ctx.Database.ProcessingTimeSeconds,
		RecoRating:            -1,
	}

	if err := s.Store.CreateTarget(ctx.Database.Name, t); err != nil {
		if err == core.ErrNameExists {
			wire.WriteFailure(w, s.Clk, validate.TargetNameExist())
			return
		}
		logging.Get().WithField("path", r.URL.Path).Err(err, "target create failed")
		wire.WriteFailure(w, s.Clk, wire.InternalError())
		return
	}

	wire.WriteJSON(w, s.Clk, http.StatusCreated, createdResponse{
		ResultCode:    core.ResultTargetCreated,
		TransactionID: store.NewID(),
		TargetID:      t.ID,
	})
}

// listTargets implements GET /targets: every non-deleted target
// identifier. The deletion-window hiding that applies to query-time
// matching does not apply here — a deleted target is absent from this
// list immediately.
func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	ids := make([]string, 0, len(ctx.Database.Targets))
	for _, t := range ctx.Database.Targets {
		if t.ManagementDeleted() {
			continue
		}
		ids = append(ids, t.ID)
	}
	wire.WriteJSON(w, s.Clk, http.StatusOK, struct {
		ResultCode    core.ResultCode `json:"result_code"`
		TransactionID string          `json:"transaction_id"`
		Results       []string        `json:"results"`
	}{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
		Results:       ids,
	})
}

type targetRecordFields struct {
	TargetID            string  `json:"target_id"`
	ActiveFlag          bool    `json:"active_flag"`
	Name                string  `json:"name"`
	Width               float64 `json:"width"`
	TrackingRating      int     `json:"tracking_rating"`
	ApplicationMetadata *string `json:"application_metadata,omitempty"`
}

// getTarget implements GET /targets/{id}.
func (s *Server) getTarget(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	t := ctx.Database.FindByID(id)
	if t == nil || t.ManagementDeleted() {
		wire.WriteFailure(w, s.Clk, validate.UnknownTarget())
		return
	}
	wire.WriteJSON(w, s.Clk, http.StatusOK, struct {
		ResultCode    core.ResultCode   `json:"result_code"`
		TransactionID string            `json:"transaction_id"`
		TargetRecord  targetRecordFields `json:"target_record"`
		Status        core.TargetStatus `json:"status"`
	}{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
		TargetRecord:  recordFields(t),
		Status:        t.Status(ctx.Now),
	})
}

func recordFields(t *core.Target) targetRecordFields {
	f := targetRecordFields{
		TargetID:       t.ID,
		ActiveFlag:     t.ActiveFlag,
		Name:           t.Name,
		Width:          t.Width,
		TrackingRating: t.RecoRating,
	}
	if t.ApplicationMetadata != nil {
		encoded := wire.EncodeMetadata(t.ApplicationMetadata)
		f.ApplicationMetadata = &encoded
	}
	return f
}

// updateTarget implements PUT /targets/{id}: a partial update,
// rejected with TargetStatusNotSuccess while the target is still
// processing (a failed target may be updated). Updating the
// image resets last_modified and reopens the processing window.
func (s *Server) updateTarget(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	if f := validate.VWSBodyChain(false).Run(ctx); f != nil {
		wire.WriteFailure(w, s.Clk, f)
		return
	}
	id := chi.URLParam(r, "id")

	_, err := s.Store.UpdateTarget(ctx.Database.Name, id, ctx.Now, func(t *core.Target) error {
		if ctx.VWS.Name != nil {
			t.Name = *ctx.VWS.Name
		}
		if ctx.VWS.Width != nil {
			t.Width = *ctx.VWS.Width
		}
		if ctx.VWS.HasImage {
			t.Image = ctx.VWS.Image
		}
		if ctx.VWS.ActiveFlag != nil {
			t.ActiveFlag = *ctx.VWS.ActiveFlag
		}
		if ctx.VWS.HasApplicationMetadata {
			t.ApplicationMetadata = ctx.VWS.ApplicationMetadata
		}
		return nil
	})
	if err != nil {
		switch err {
		case core.ErrTargetNotFound:
			wire.WriteFailure(w, s.Clk, validate.UnknownTarget())
		case core.ErrTargetProcessing:
			wire.WriteFailure(w, s.Clk, validate.TargetStatusNotSucc())
		case core.ErrNameExists:
			wire.WriteFailure(w, s.Clk, validate.TargetNameExist())
		default:
			logging.Get().WithField("path", r.URL.Path).Err(err, "target update failed")
			wire.WriteFailure(w, s.Clk, wire.InternalError())
		}
		return
	}

	wire.WriteJSON(w, s.Clk, http.StatusOK, statusResponse{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
	})
}

// deleteTarget implements DELETE /targets/{id}.
func (s *Server) deleteTarget(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.Store.DeleteTarget(ctx.Database.Name, id, ctx.Now); err != nil {
		wire.WriteFailure(w, s.Clk, validate.UnknownTarget())
		return
	}
	wire.WriteJSON(w, s.Clk, http.StatusOK, statusResponse{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
	})
}

// databaseSummary implements GET /summary: counts per status across
// every non-deleted target.
func (s *Server) databaseSummary(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	var processing, success, failed int
	for _, t := range ctx.Database.Targets {
		if t.ManagementDeleted() {
			continue
		}
		switch t.Status(ctx.Now) {
		case core.StatusProcessing:
			processing++
		case core.StatusSuccess:
			success++
		case core.StatusFailed:
			failed++
		}
	}
	wire.WriteJSON(w, s.Clk, http.StatusOK, struct {
		ResultCode    core.ResultCode `json:"result_code"`
		TransactionID string          `json:"transaction_id"`
		Processing    int             `json:"processing"`
		Success       int             `json:"success"`
		Failed        int             `json:"failed"`
		TotalRecords  int             `json:"total_records"`
	}{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
		Processing:    processing,
		Success:       success,
		Failed:        failed,
		TotalRecords:  processing + success + failed,
	})
}

// targetSummary implements GET /targets/{id}/summary. Tracking rating
// is included only once status is not processing.
func (s *Server) targetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	t := ctx.Database.FindByID(id)
	if t == nil || t.ManagementDeleted() {
		wire.WriteFailure(w, s.Clk, validate.UnknownTarget())
		return
	}
	status := t.Status(ctx.Now)
	resp := struct {
		ResultCode     core.ResultCode  `json:"result_code"`
		TransactionID  string           `json:"transaction_id"`
		TargetID       string           `json:"target_id"`
		DatabaseName   string           `json:"database_name"`
		Status         core.TargetStatus `json:"status"`
		TrackingRating *int             `json:"tracking_rating,omitempty"`
	}{
		ResultCode:    core.ResultSuccess,
		TransactionID: store.NewID(),
		TargetID:      t.ID,
		DatabaseName:  ctx.Database.Name,
		Status:        status,
	}
	if status != core.StatusProcessing {
		rating := t.RecoRating
		resp.TrackingRating = &rating
	}
	wire.WriteJSON(w, s.Clk, http.StatusOK, resp)
}

// duplicates implements GET /duplicates/{id}:
// identifiers of other targets whose image matches the subject's image,
// restricted to candidates that are success, not deleted and active —
// the subject's own active-flag is irrelevant.
func (s *Server) duplicates(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.runCommon(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	subject := ctx.Database.FindByID(id)
	if subject == nil || subject.ManagementDeleted() {
		wire.WriteFailure(w, s.Clk, validate.UnknownTarget())
		return
	}

	ids := make([]string, 0)
	for _, t := range ctx.Database.Targets {
		if t.ID == subject.ID {
			continue
		}
		if t.ManagementDeleted() || !t.ActiveFlag {
			continue
		}
		if t.Status(ctx.Now) != core.StatusSuccess {
			continue
		}
		if s.Matcher.Matches(t.Image, subject.Image) {
			ids = append(ids, t.ID)
		}
	}

	wire.WriteJSON(w, s.Clk, http.StatusOK, struct {
		ResultCode     core.ResultCode `json:"result_code"`
		TransactionID  string          `json:"transaction_id"`
		SimilarTargets []string        `json:"similar_targets"`
	}{
		ResultCode:     core.ResultSuccess,
		TransactionID:  store.NewID(),
		SimilarTargets: ids,
	})
}
