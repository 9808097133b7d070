package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/orchestrator"
	"github.com/garrettrowe/contracts-blockchain/domain/contract"
	"github.com/garrettrowe/contracts-blockchain/pkg/common"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// ContractHandler maps the /api routes onto orchestrator operations.
type ContractHandler struct {
	orch       *orchestrator.Orchestrator
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewContractHandler creates a contract handler.
func NewContractHandler(orch *orchestrator.Orchestrator, errHandler *apperrors.ErrorHandler, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{orch: orch, errHandler: errHandler, logger: logger}
}

// Create handles POST /api/create. Success means the write was accepted,
// not that both stores have confirmed it.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in contract.CreateInput
	if err := decodeBody(r, &in, func(form map[string]string) {
		in = contract.CreateInput{
			Name:      form["name"],
			StartDate: form["startdate"],
			EndDate:   form["enddate"],
			Location:  form["location"],
			Text:      form["text"],
			Company1:  form["company1"],
			Company2:  form["company2"],
			Title:     form["title"],
		}
	}); err != nil {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	if err := h.orch.Create(r.Context(), in); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, "Transaction Complete")
}

// Index handles POST /api/index: the ledger's contract name index, passed
// through verbatim.
func (h *ContractHandler) Index(w http.ResponseWriter, r *http.Request) {
	value, err := h.orch.Index(r.Context())
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondRaw(w, http.StatusOK, value)
}

type deleteRequest struct {
	Name string `json:"name"`
}

// Delete handles POST /api/delete. Best effort toward the ledger; deleting
// a name nobody ever wrote still succeeds.
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeBody(r, &req, func(form map[string]string) {
		req.Name = form["name"]
	}); err != nil {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	if err := h.orch.Delete(r.Context(), req.Name); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, "Delete Complete")
}

type queryRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Query handles POST /api/query, streaming a JSON array of ledger records.
// Elements arrive in completion order, not match order: the per-contract
// ledger reads race, and whichever finishes first is written first. Callers
// needing a stable order must sort client-side.
func (h *ContractHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(r, &req, func(form map[string]string) {
		req.Type = form["type"]
		req.Value = form["value"]
	}); err != nil {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	records, err := h.orch.Query(r.Context(), req.Type, req.Value)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	w.Write([]byte("["))
	first := true
	for record := range records {
		if !first {
			w.Write([]byte(","))
		}
		first = false
		w.Write(record)
		if flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte("]"))
}

// GraphInit handles GET /api/graphinit. Provisioning only.
func (h *ContractHandler) GraphInit(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.GraphInit(r.Context())
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	common.RespondRaw(w, http.StatusOK, result)
}

// decodeBody accepts either a JSON body or form-encoded fields, matching
// what the web client has historically sent.
func decodeBody(r *http.Request, jsonTarget interface{}, fromForm func(map[string]string)) error {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return err
		}
		form := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		fromForm(form)
		return nil
	}
	return json.NewDecoder(r.Body).Decode(jsonTarget)
}
