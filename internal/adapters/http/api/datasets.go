package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pvnet/internal/adapters/artifacts"
	"github.com/okian/pvnet/internal/adapters/repository"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/internal/domain/split"
)

// Paging limits for list and rows endpoints.
const (
	defaultListLimit = 50
	defaultRowsLimit = 100
	maxRowsLimit     = 1000
)

// createRequest mirrors the body of POST /datasets.
type createRequest struct {
	RequestID string           `json:"request_id"`
	Events    []model.RawEvent `json:"events"`
	K         *int             `json:"k,omitempty"`
	Seed      *int64           `json:"seed,omitempty"`
	Fractions *split.Fractions `json:"fractions,omitempty"`
}

func (c createRequest) validate() error {
	switch {
	case strings.TrimSpace(c.RequestID) == "":
		return errors.New("missing request_id")
	case c.Events == nil:
		return errors.New("missing events")
	case c.K != nil && *c.K < 0:
		return fmt.Errorf("k must be >= 0, got %d", *c.K)
	}
	if c.Fractions != nil {
		if err := c.Fractions.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c createRequest) submission() Submission {
	return Submission{
		RequestID: c.RequestID,
		Events:    c.Events,
		Params:    pipeline.Params{K: c.K, Seed: c.Seed, Fractions: c.Fractions},
	}
}

// datasetView is the JSON shape of one build record.
type datasetView struct {
	ID        string            `json:"id"`
	RequestID string            `json:"request_id"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Events    int               `json:"events"`
	Submitted time.Time         `json:"submitted"`
	Completed *time.Time        `json:"completed,omitempty"`
	K         *int              `json:"k,omitempty"`
	Seed      *int64            `json:"seed,omitempty"`
	Fractions *split.Fractions  `json:"fractions,omitempty"`
	Summary   *pipeline.Summary `json:"summary,omitempty"`
}

func newDatasetView(rec repository.Record) datasetView {
	v := datasetView{
		ID:        rec.ID,
		RequestID: rec.RequestID,
		Status:    string(rec.Status),
		Error:     rec.Error,
		Events:    rec.Events,
		Submitted: rec.Submitted,
	}
	if !rec.Completed.IsZero() {
		c := rec.Completed
		v.Completed = &c
	}
	if ds := rec.Dataset; ds != nil {
		k, seed, fr, sum := ds.K, ds.Seed, ds.Fractions, ds.Summary
		v.K, v.Seed, v.Fractions, v.Summary = &k, &seed, &fr, &sum
	}
	return v
}

type rowsResponse struct {
	ID     string          `json:"id"`
	Split  string          `json:"split"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Rows   []artifacts.Row `json:"rows"`
}

// DatasetsHandler handles dataset build requests and reads.
type DatasetsHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(deps Dependencies) *DatasetsHandler {
	return &DatasetsHandler{deps: deps, maxBodyBytes: DefaultMaxBodyBytes}
}

// HandleCreate handles POST /datasets requests.
func (h *DatasetsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_dataset"
	var req createRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeKindError(w, WrapKind(op, ErrTooLarge, err))
			return
		}
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	rc, err := h.deps.Submit(r.Context(), req.submission())
	if err != nil {
		writeKindError(w, err)
		return
	}
	if rc.Duplicate {
		writeJSON(w, http.StatusOK, rc)
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}

// HandleList handles GET /datasets?limit=N requests.
func (h *DatasetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_datasets"
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 {
		writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", r.URL.Query().Get("limit"))))
		return
	}
	recs, err := h.deps.Datasets(r.Context(), limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	out := make([]datasetView, len(recs))
	for i, rec := range recs {
		out[i] = newDatasetView(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /datasets/{id} requests.
func (h *DatasetsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDatasetView(rec))
}

// HandleRows handles GET /datasets/{id}/rows?split=train&offset=0&limit=100 requests.
func (h *DatasetsHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	const op = "api.dataset_rows"
	name := split.Name(r.URL.Query().Get("split"))
	if name == "" {
		name = split.Train
	}
	if !slices.Contains(split.Names, name) {
		writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("unknown split %q", name)))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeKindError(w, WrapKind(op, ErrBadRequest, errors.New("invalid offset")))
		return
	}
	limit, err := queryInt(r, "limit", defaultRowsLimit)
	if err != nil || limit < 1 || limit > maxRowsLimit {
		writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be in [1, %d]", maxRowsLimit)))
		return
	}

	rec, err := h.deps.Dataset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	if rec.Status != repository.StatusDone || rec.Dataset == nil {
		writeKindError(w, NewKind(op, ErrNotReady))
		return
	}

	rows := rec.Dataset.Splits.Rows(name)
	lo := min(offset, len(rows))
	hi := min(lo+limit, len(rows))
	writeJSON(w, http.StatusOK, rowsResponse{
		ID:     rec.ID,
		Split:  string(name),
		Total:  len(rows),
		Offset: lo,
		Rows:   artifacts.FromLabeled(rows[lo:hi], name),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
