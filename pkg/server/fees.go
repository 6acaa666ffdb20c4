package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/elektroapp/elektrodash/pkg/feeshistory"
	"github.com/elektroapp/elektrodash/pkg/log"
)

// FeesDraftReq replaces the editable fields of a draft.
type FeesDraftReq struct {
	EffectiveFrom string             `json:"effective_from"`
	EffectiveTo   string             `json:"effective_to"`
	Values        feeshistory.Values `json:"values"`
}

func (s *Server) writeFeesState(w http.ResponseWriter, code int) {
	writeJSON(w, s.dash.FeesEditor().State(), code)
}

// writeFeesError maps editor errors to status codes. Anything else failed
// while saving.
func (s *Server) writeFeesError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *feeshistory.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSONError(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, feeshistory.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, feeshistory.ErrCurrentEntry),
		errors.Is(err, feeshistory.ErrCountdownActive),
		errors.Is(err, feeshistory.ErrNotEditing):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		ctx := r.Context()
		log.Ctx(ctx).ErrorContext(ctx, "fees history request failed", slog.Any("error", err))
		msg := "failed to save fees history"
		if v := s.dash.View(); v.FeesHistory.Error != nil {
			msg = v.FeesHistory.Error.Text
		}
		writeJSONError(w, msg, http.StatusBadGateway)
	}
}

func (s *Server) handleFeesState(w http.ResponseWriter, r *http.Request) {
	s.writeFeesState(w, http.StatusOK)
}

func (s *Server) handleFeesAdd(w http.ResponseWriter, r *http.Request) {
	var id string
	err := s.dash.EditFees(func(e *feeshistory.Editor) error {
		id = e.Add()
		return nil
	})
	if err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	writeJSON(w, struct {
		ID    string            `json:"id"`
		State feeshistory.State `json:"state"`
	}{ID: id, State: s.dash.FeesEditor().State()}, http.StatusCreated)
}

func (s *Server) handleFeesCancel(w http.ResponseWriter, r *http.Request) {
	err := s.dash.EditFees(func(e *feeshistory.Editor) error {
		e.Cancel()
		return nil
	})
	if err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	s.writeFeesState(w, http.StatusOK)
}

func (s *Server) handleFeesEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.dash.EditFees(func(e *feeshistory.Editor) error { return e.Edit(id) }); err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	s.writeFeesState(w, http.StatusOK)
}

func (s *Server) handleFeesUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req FeesDraftReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := s.dash.EditFees(func(e *feeshistory.Editor) error {
		return e.UpdateDraft(id, func(d *feeshistory.Draft) {
			d.EffectiveFrom = req.EffectiveFrom
			d.EffectiveTo = req.EffectiveTo
			d.Values = req.Values
		})
	})
	if err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	s.writeFeesState(w, http.StatusOK)
}

func (s *Server) handleFeesSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if st := s.dash.FeesEditor().State(); st.EditingID != id {
		s.writeFeesError(w, r, feeshistory.ErrNotEditing)
		return
	}
	if err := s.dash.EditFees(func(e *feeshistory.Editor) error { return e.Save(ctx) }); err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	s.writeFeesState(w, http.StatusOK)
}

func (s *Server) handleFeesDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var deleted bool
	err := s.dash.EditFees(func(e *feeshistory.Editor) error {
		var err error
		deleted, err = e.Delete(ctx, id)
		return err
	})
	if err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	writeJSON(w, struct {
		Deleted bool              `json:"deleted"`
		State   feeshistory.State `json:"state"`
	}{Deleted: deleted, State: s.dash.FeesEditor().State()}, http.StatusOK)
}

func (s *Server) handleFeesCancelDelete(w http.ResponseWriter, r *http.Request) {
	err := s.dash.EditFees(func(e *feeshistory.Editor) error {
		e.CancelDelete()
		return nil
	})
	if err != nil {
		s.writeFeesError(w, r, err)
		return
	}
	s.writeFeesState(w, http.StatusOK)
}
