// Package editor is the single owner of a configuration while it is being
// edited. Every editing surface (range field, period table, void toggles,
// category editors, the raw JSON view) goes through Dispatch, so there is
// exactly one current document and no editor ever merges into a stale copy.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/coords"
	"ReportMapper/internal/logger"
	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
)

// DefaultReferenceYear anchors the mapping a fresh configuration starts with.
const DefaultReferenceYear = 2025

var (
	ErrInvalidMapping   = errors.New("period mapping is invalid")
	ErrPendingTextError = errors.New("configuration text has unresolved parse errors")
	ErrInvalidRange     = errors.New("periods range is invalid")
	ErrNoColumns        = errors.New("periods range has no columns")
	ErrColumnNotInRange = errors.New("column is outside the periods range")
	ErrColumnNotMapped  = errors.New("column has no period")
)

type Options struct {
	// ReferenceYear anchors initialization defaults. Zero means 2025.
	ReferenceYear int
	Now           func() time.Time
	Logger        logrus.FieldLogger
}

// State is a point-in-time copy of the editor. Callers may keep and modify
// it freely.
type State struct {
	Config     *configdoc.Configuration `json:"config"`
	Columns    []string                 `json:"columns"`
	Mapping    mapping.Mapping          `json:"periodMapping"`
	Voided     []string                 `json:"voidedColumns"`
	Text       string                   `json:"text"`
	TextError  string                   `json:"textError,omitempty"`
	RangeError string                   `json:"rangeError,omitempty"`
	Validation mapping.ValidationResult `json:"validation"`
}

type subscriber[F any] struct {
	id int
	fn F
}

type Editor struct {
	// dispatchMu serializes Dispatch calls including their callbacks; mu
	// guards the fields below and is never held while callbacks run.
	dispatchMu sync.Mutex
	mu         sync.Mutex

	opts Options
	log  logrus.FieldLogger

	config     *configdoc.Configuration
	columns    []string
	voids      *mapping.VoidSet
	text       string
	textErr    error
	rangeErr   error
	validation mapping.ValidationResult

	nextSub    int
	onChange   []subscriber[mapping.ChangeFunc]
	onValidate []subscriber[mapping.ValidateFunc]
}

// New takes ownership of a copy of cfg. A configuration with a periods range
// but no mapping starts with monthly rollover defaults at the reference year.
func New(cfg *configdoc.Configuration, opts Options) *Editor {
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = DefaultReferenceYear
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Editor{
		opts: opts,
		log:  logger.Or(opts.Logger).WithField("component", "editor"),
	}
	if cfg == nil {
		cfg = configdoc.New(configdoc.KindPnL, "", opts.Now())
	}
	e.adopt(cfg, nil)
	return e
}

// OnChange registers fn to receive the mapping after every successful
// dispatch. Callbacks run synchronously in dispatch order and must not call
// Dispatch themselves.
func (e *Editor) OnChange(fn mapping.ChangeFunc) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.onChange = append(e.onChange, subscriber[mapping.ChangeFunc]{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.onChange = removeSub(e.onChange, id)
	}
}

// OnValidate registers fn to receive the validation outcome after every
// successful dispatch.
func (e *Editor) OnValidate(fn mapping.ValidateFunc) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id := e.nextSub
	e.onValidate = append(e.onValidate, subscriber[mapping.ValidateFunc]{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.onValidate = removeSub(e.onValidate, id)
	}
}

func removeSub[F any](subs []subscriber[F], id int) []subscriber[F] {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Dispatch applies one action. On error the document is left as it was
// (a failed EditText still records the text and its parse error) and no
// callbacks fire.
func (e *Editor) Dispatch(a Action) (State, error) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	e.mu.Lock()
	err := a.apply(e)
	state := e.snapshotLocked()
	changes := append([]subscriber[mapping.ChangeFunc](nil), e.onChange...)
	validates := append([]subscriber[mapping.ValidateFunc](nil), e.onValidate...)
	e.mu.Unlock()

	entry := e.log.WithField("action", a.Kind())
	if err != nil {
		entry.WithError(err).Debug("action rejected")
		return state, err
	}
	entry.WithFields(logrus.Fields{
		"columns": len(state.Mapping),
		"valid":   state.Validation.Valid,
	}).Debug("action applied")

	for _, s := range changes {
		s.fn(state.Mapping.Clone())
	}
	for _, s := range validates {
		s.fn(state.Validation.Valid, append([]string(nil), state.Validation.Errors...))
	}
	return state, nil
}

// Snapshot returns a deep copy of the current state.
func (e *Editor) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Text is the JSON view of the document, or the last text the user typed
// when it failed to parse.
func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// CanSave reports whether Save would succeed.
func (e *Editor) CanSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveBlockerLocked() == nil
}

// Save returns the next version of the document for persisting. The
// editor's own document is unchanged until a MarkSaved action confirms the
// write.
func (e *Editor) Save() (*configdoc.Configuration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.saveBlockerLocked(); err != nil {
		return nil, err
	}
	return configdoc.NextVersion(e.config, e.opts.Now()), nil
}

// Prepare opens cfg the way a session would and returns the fitted document
// ready for storing, at its own version. It fails with the error Save
// would give.
func Prepare(cfg *configdoc.Configuration, opts Options) (*configdoc.Configuration, error) {
	e := New(cfg, opts)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.saveBlockerLocked(); err != nil {
		return nil, err
	}
	return configdoc.Clone(e.config), nil
}

func (e *Editor) saveBlockerLocked() error {
	if e.textErr != nil {
		return fmt.Errorf("%w: %v", ErrPendingTextError, e.textErr)
	}
	if e.rangeErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, e.rangeErr)
	}
	if !e.validation.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidMapping, strings.Join(e.validation.Errors, "; "))
	}
	return nil
}

func (e *Editor) snapshotLocked() State {
	s := State{
		Config:     configdoc.Clone(e.config),
		Columns:    append([]string{}, e.columns...),
		Mapping:    e.mappingLocked().Clone(),
		Voided:     e.voids.Columns(),
		Text:       e.text,
		Validation: mapping.ValidationResult{Valid: e.validation.Valid, Errors: append([]string{}, e.validation.Errors...)},
	}
	if s.Mapping == nil {
		s.Mapping = mapping.Mapping{}
	}
	if e.textErr != nil {
		s.TextError = e.textErr.Error()
	}
	if e.rangeErr != nil {
		s.RangeError = e.rangeErr.Error()
	}
	return s
}

func (e *Editor) mappingLocked() mapping.Mapping {
	return e.config.Structure.PeriodMapping
}

// anchorYear is the year auto-detect counts from: the year already present
// in the mapping, else the current calendar year.
func (e *Editor) anchorYear() int {
	for _, cp := range e.mappingLocked() {
		if y, ok := cp.Period.YearValue(); ok {
			return y
		}
	}
	return e.opts.Now().Year()
}

// commit folds m and the void set into the document and refreshes every
// derived value.
func (e *Editor) commit(m mapping.Mapping) {
	e.config = configdoc.MergeAll(e.config,
		configdoc.SetPeriodMapping(m),
		configdoc.SetVoidedColumns(e.voids.Columns()),
	)
	e.refresh()
}

func (e *Editor) refresh() {
	e.validation = mapping.Validate(e.mappingLocked())
	text, err := configdoc.Text(e.config)
	if err != nil {
		e.log.WithError(err).Error("render configuration text")
		return
	}
	e.text = text
	e.textErr = nil
}

// parseColumns reads the document's periods range. An empty range is not an
// error; it just has nothing to map.
func (e *Editor) parseColumns(raw string) {
	e.columns = nil
	e.rangeErr = nil
	if strings.TrimSpace(raw) == "" {
		return
	}
	r, err := coords.ParseRange(raw)
	if err != nil {
		e.rangeErr = err
		return
	}
	if r.SpansRows() {
		e.log.WithField("range", r.String()).Warn("periods range spans several rows; only its columns are used")
	}
	e.columns = r.Columns()
}

// adopt makes cfg the current document. Columns that left prev's void set
// get their remembered period back, or a fresh default. Once a range parses
// the mapping is fitted to it, so every in-range column is either mapped or
// voided, with gaps filled at the reference year.
func (e *Editor) adopt(cfg *configdoc.Configuration, prev *mapping.VoidSet) {
	e.config = configdoc.MergeAll(cfg)
	s := e.config.Structure
	e.parseColumns(s.PeriodsRange)

	voids := prev.WithMembers(s.VoidedColumns)
	m := s.PeriodMapping
	for _, c := range prev.Columns() {
		if voids.Contains(c) || m.Has(c) {
			continue
		}
		def, ok := prev.Tombstone(c)
		if !ok {
			def = period.Default(e.opts.Now().Year())
		}
		m = m.Set(c, def)
	}
	e.voids = voids
	m = voids.Exclude(m)

	if e.rangeErr == nil && len(e.columns) > 0 {
		m = mapping.Reconcile(e.columns, m, voids, e.opts.ReferenceYear)
	}
	e.commit(m)
}

func (e *Editor) inRange(column string) bool {
	return containsString(e.columns, column)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
