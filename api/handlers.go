package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"ReportMapper/api/constants"
	"ReportMapper/api/utils"
	"ReportMapper/internal/checksum"
	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/coords"
	"ReportMapper/internal/editor"
	"ReportMapper/internal/events"
	"ReportMapper/internal/logger"
	"ReportMapper/internal/period"
	"ReportMapper/internal/registry"
	"ReportMapper/internal/session"
	"ReportMapper/internal/workbook"
)

// Deps are the shared services the handlers work on.
type Deps struct {
	Sessions      *session.Manager
	Registry      *registry.Registry
	Events        *events.SSEServer
	ReferenceYear int
	SessionTTL    time.Duration
	Now           func() time.Time
}

type Handler struct {
	Deps
	log logrus.FieldLogger
}

// NewHandler fills missing dependencies with in-memory defaults. Events may
// stay nil; the stream endpoint then reports 404.
func NewHandler(d Deps) *Handler {
	if d.SessionTTL <= 0 {
		d.SessionTTL = 2 * time.Hour
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(d.SessionTTL)
	}
	if d.Registry == nil {
		d.Registry = registry.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{Deps: d, log: logger.L().WithField("component", "api")}
}

type sessionView struct {
	SessionID string       `json:"session_id"`
	UserID    string       `json:"user_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	CanSave   bool         `json:"can_save"`
	State     editor.State `json:"state"`
}

func view(s *session.Session) sessionView {
	return sessionView{
		SessionID: s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CanSave:   s.Editor.CanSave(),
		State:     s.Editor.Snapshot(),
	}
}

// describe maps a domain error to a status and a user-facing message.
// column names the column an action targeted, if any.
func describe(err error, column string) (int, string) {
	var parseErr *configdoc.ParseError
	switch {
	case errors.Is(err, coords.ErrEmptyRange):
		return http.StatusUnprocessableEntity, constants.ErrRangeEmpty
	case errors.Is(err, coords.ErrMalformedRange), errors.Is(err, coords.ErrInvalidRow):
		return http.StatusUnprocessableEntity, constants.ErrRangeMalformed
	case errors.Is(err, coords.ErrColumnOutOfBounds):
		return http.StatusUnprocessableEntity, constants.ErrRangeOutOfBounds
	case errors.Is(err, coords.ErrReversedRange):
		return http.StatusUnprocessableEntity, constants.ErrRangeReversed
	case errors.Is(err, editor.ErrInvalidRange):
		return http.StatusUnprocessableEntity, constants.ErrRangeMalformed
	case errors.Is(err, editor.ErrNoColumns):
		return http.StatusUnprocessableEntity, constants.ErrNoColumns
	case errors.Is(err, editor.ErrColumnNotInRange):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrColumnNotInRange, column)
	case errors.Is(err, editor.ErrColumnNotMapped):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrColumnNotMapped, column)
	case errors.Is(err, period.ErrUnknownType), errors.Is(err, period.ErrUnknownField),
		errors.Is(err, period.ErrNotNumeric), errors.Is(err, period.ErrLabelLocked):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrPeriodField, err.Error())
	case errors.Is(err, editor.ErrPendingTextError):
		return http.StatusUnprocessableEntity, constants.ErrPendingTextError
	case errors.Is(err, editor.ErrInvalidMapping):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrInvalidMapping,
			strings.TrimPrefix(err.Error(), editor.ErrInvalidMapping.Error()+": "))
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrTextParse, parseErr.Error())
	case errors.Is(err, editor.ErrUnknownAction):
		return http.StatusBadRequest, constants.ErrUnknownAction
	case errors.Is(err, configdoc.ErrUnsupportedFormat):
		return http.StatusBadRequest, constants.ErrUnsupportedFormat
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, constants.ErrConfigNotFound
	case errors.Is(err, registry.ErrInactive):
		return http.StatusConflict, constants.ErrConfigInactive
	case errors.Is(err, registry.ErrVersionConflict):
		return http.StatusConflict, constants.ErrVersionConflict
	case errors.Is(err, workbook.ErrUnsupportedFormat):
		return http.StatusBadRequest, constants.ErrWorkbookUnsupported
	case errors.Is(err, workbook.ErrSheetNotFound):
		return http.StatusUnprocessableEntity, constants.FormatError(constants.ErrSheetNotFound, column)
	case errors.Is(err, workbook.ErrNoPeriods):
		return http.StatusUnprocessableEntity, constants.ErrNoPeriodsMapped
	case errors.Is(err, workbook.ErrNoSheets):
		return http.StatusUnprocessableEntity, constants.ErrWorkbookUnreadable
	}
	return http.StatusInternalServerError, constants.ErrInternal
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.Sessions.Touch(mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, http.StatusNotFound, constants.ErrSessionNotFound)
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /api/sessions. The editor starts from a saved
// configuration, from a document in the body, or from scratch.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string          `json:"user_id"`
		ConfigurationID string          `json:"configuration_id"`
		Configuration   json.RawMessage `json:"configuration"`
		Kind            configdoc.Kind  `json:"kind"`
		Name            string          `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUserID)
		return
	}

	var cfg *configdoc.Configuration
	switch {
	case req.ConfigurationID != "":
		saved, err := h.Registry.Get(req.ConfigurationID)
		if err != nil {
			status, msg := describe(err, "")
			RespondWithError(w, status, msg)
			return
		}
		cfg = saved
	case len(req.Configuration) > 0 && string(req.Configuration) != "null":
		text := string(req.Configuration)
		// a JSON string carries raw (possibly Hjson) text
		var asString string
		if json.Unmarshal(req.Configuration, &asString) == nil {
			text = asString
		}
		parsed, err := configdoc.ParseText(text)
		if err != nil {
			status, msg := describe(err, "")
			RespondWithError(w, status, msg)
			return
		}
		cfg = parsed
	default:
		kind := req.Kind
		if !kind.Valid() {
			kind = configdoc.KindPnL
		}
		cfg = configdoc.New(kind, req.Name, h.Now())
	}

	ed := editor.New(cfg, editor.Options{ReferenceYear: h.ReferenceYear, Now: h.Now, Logger: h.log})
	s := h.Sessions.CreateSession(req.UserID, ed)
	if h.Deps.Events != nil {
		s.OnClose(ed.OnChange(h.Deps.Events.ChangeFunc(s.ID)))
		s.OnClose(ed.OnValidate(h.Deps.Events.ValidateFunc(s.ID)))
		stream := h.Deps.Events
		id := s.ID
		s.OnClose(func() { stream.Close(id, "session closed") })
	}

	h.log.WithFields(logrus.Fields{"session": s.ID, "user": req.UserID, "configuration": cfg.ID}).Info("editor session opened")
	RespondWithStatusPayload(w, http.StatusCreated, true, "", view(s))
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	RespondWithPayload(w, true, "", view(s))
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.Sessions.GetSession(id); !ok {
		RespondWithError(w, http.StatusNotFound, constants.ErrSessionNotFound)
		return
	}
	h.Sessions.DeleteSession(id)
	RespondWithResult(w, true, "")
}

func actionColumn(a editor.Action) string {
	switch v := a.(type) {
	case editor.ToggleVoid:
		return v.Column
	case editor.EditPeriod:
		return v.Column
	}
	return ""
}

// dispatch runs a and answers with the resulting state; rejected actions
// still carry the state so the client can redraw.
func (h *Handler) dispatch(w http.ResponseWriter, s *session.Session, a editor.Action) {
	state, err := s.Editor.Dispatch(a)
	payload := sessionView{
		SessionID: s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
		CanSave:   s.Editor.CanSave(),
		State:     state,
	}
	if err != nil {
		status, msg := describe(err, actionColumn(a))
		RespondWithStatusPayload(w, status, false, msg, payload)
		return
	}
	RespondWithPayload(w, true, "", payload)
}

// Dispatch handles POST /api/sessions/{id}/actions.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	a, err := editor.DecodeAction(raw)
	if err != nil {
		if errors.Is(err, editor.ErrUnknownAction) {
			RespondWithError(w, http.StatusBadRequest, constants.ErrUnknownAction)
			return
		}
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
		return
	}
	h.dispatch(w, s, a)
}

// GetText handles GET /api/sessions/{id}/text.
func (h *Handler) GetText(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state := s.Editor.Snapshot()
	RespondWithPayload(w, true, "", map[string]string{
		"text":      state.Text,
		"textError": state.TextError,
	})
}

// PutText handles PUT /api/sessions/{id}/text. The body is the raw text.
func (h *Handler) PutText(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	h.dispatch(w, s, editor.EditText{Text: string(raw)})
}

// Save handles POST /api/sessions/{id}/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	next, err := s.Editor.Save()
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	stored, err := h.Registry.Save(next)
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	if _, err := s.Editor.Dispatch(editor.MarkSaved{Config: stored}); err != nil {
		LogError("mark saved", err, logrus.Fields{"session": s.ID})
	}
	logger.Audit("configuration saved from editor", logrus.Fields{
		"session": s.ID, "user": s.UserID, "id": stored.ID, "version": stored.Version,
	})
	RespondWithPayload(w, true, "", stored)
}

// readUpload pulls the workbook out of a multipart request.
func readUpload(r *http.Request) (*workbook.Workbook, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		return nil, errMissingUpload
	}
	file, header, err := r.FormFile(constants.UploadField)
	if err != nil {
		return nil, errMissingUpload
	}
	defer file.Close()
	return workbook.OpenReader(file, filepath.Ext(header.Filename))
}

var errMissingUpload = errors.New("no workbook uploaded")

func (h *Handler) uploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingUpload) {
		RespondWithError(w, http.StatusBadRequest, constants.ErrWorkbookMissing)
		return
	}
	if errors.Is(err, workbook.ErrUnsupportedFormat) {
		RespondWithError(w, http.StatusBadRequest, constants.ErrWorkbookUnsupported)
		return
	}
	LogError("read workbook", err, nil)
	RespondWithError(w, http.StatusUnprocessableEntity, constants.ErrWorkbookUnreadable)
}

func sheetName(r *http.Request, cfg *configdoc.Configuration) string {
	if name := r.URL.Query().Get("sheet"); name != "" {
		return name
	}
	if cfg != nil && cfg.Structure != nil {
		return cfg.Structure.SheetName
	}
	return ""
}

// Resolve handles POST /api/sessions/{id}/resolve: the uploaded workbook is
// read through the session's current configuration.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	wb, err := readUpload(r)
	if err != nil {
		h.uploadError(w, err)
		return
	}
	cfg := s.Editor.Snapshot().Config
	name := sheetName(r, cfg)
	sheet, err := wb.Sheet(name)
	if err != nil {
		status, msg := describe(err, name)
		RespondWithError(w, status, msg)
		return
	}
	res, err := workbook.Resolve(cfg, sheet)
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	RespondWithPayload(w, true, "", res)
}

// Detect handles POST /api/sessions/{id}/detect: the cells of the periods
// range itself, read from the uploaded workbook, drive period detection.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	wb, err := readUpload(r)
	if err != nil {
		h.uploadError(w, err)
		return
	}
	cfg := s.Editor.Snapshot().Config
	rng, err := coords.ParseRange(cfg.Structure.PeriodsRange)
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	name := sheetName(r, cfg)
	sheet, err := wb.Sheet(name)
	if err != nil {
		status, msg := describe(err, name)
		RespondWithError(w, status, msg)
		return
	}
	h.dispatch(w, s, editor.DetectFromHeaders{Headers: workbook.HeaderLabels(sheet, rng)})
}

// Stream handles GET /api/sessions/{id}/events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.Deps.Events == nil {
		RespondWithError(w, http.StatusNotFound, constants.ErrRouteNotFound)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Deps.Events.Serve(w, r, s.ID)
}

// ListConfigurations handles GET /api/configurations?active=true&page=1&limit=10.
func (h *Handler) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ExtractPagination(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	page := utils.Paginate(h.Registry.List(activeOnly), &p)
	RespondWithPayload(w, true, "", map[string]interface{}{
		"configurations": page,
		"pagination":     p,
	})
}

// GetConfiguration handles GET /api/configurations/{id}[?version=n].
func (h *Handler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var (
		c   *configdoc.Configuration
		err error
	)
	if v := r.URL.Query().Get("version"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		c, err = h.Registry.Version(id, n)
	} else {
		c, err = h.Registry.Get(id)
	}
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}

	sum, err := checksum.OfJSON(c)
	if err != nil {
		LogError("checksum configuration", err, logrus.Fields{"id": id})
		RespondWithPayload(w, true, "", c)
		return
	}
	if tag := strings.Trim(r.Header.Get("If-None-Match"), `"`); tag != "" {
		if ok, _ := checksum.NewChecksumMatcher(tag).Match(c); ok {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("ETag", `"`+sum+`"`)
	RespondWithPayload(w, true, "", c)
}

// History handles GET /api/configurations/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.Registry.History(mux.Vars(r)["id"])
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	RespondWithPayload(w, true, "", history)
}

// Deactivate handles POST /api/configurations/{id}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	retired, err := h.Registry.Deactivate(mux.Vars(r)["id"])
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	RespondWithPayload(w, true, "", retired)
}

// Import handles POST /api/configurations/import?format=yaml. The body is
// the document.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	format := configdoc.Format(strings.ToLower(r.URL.Query().Get("format")))
	c, err := configdoc.Import(r.Body, format)
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	c, err = editor.Prepare(c, editor.Options{ReferenceYear: h.ReferenceYear, Now: h.Now, Logger: h.log})
	if err != nil {
		h.log.WithError(err).Warn("imported configuration rejected")
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	stored, err := h.Registry.Save(c)
	if err != nil {
		status, msg := describe(err, "")
		RespondWithError(w, status, msg)
		return
	}
	RespondWithStatusPayload(w, http.StatusCreated, true, "", stored)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithPayload(w, true, "", map[string]interface{}{
		"sessions":       h.Sessions.Count(),
		"configurations": h.Registry.Len(),
		"time":           h.Now().UTC().Format(time.RFC3339),
	})
}
