package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
)

var ErrUnknownAction = errors.New("unknown editor action")

// Action is one edit. The set is closed: only the types in this file
// implement it.
type Action interface {
	Kind() string
	apply(e *Editor) error
}

// SetRange replaces the periods range. Entries outside the new range are
// dropped and new columns get rollover defaults. A malformed range is kept in
// the document so the user can fix it, but the mapping is left alone.
type SetRange struct {
	Range string
}

// AutoDetect re-infers every active column from the active column count.
type AutoDetect struct{}

// DetectFromHeaders infers periods from each column's header cell,
// falling back to AutoDetect when any header is not a recognizable period.
type DetectFromHeaders struct {
	Headers map[string]string
}

// ToggleVoid excludes a column from the mapping, or brings it back.
type ToggleVoid struct {
	Column string
}

// EditPeriod changes one field of one column's period.
type EditPeriod struct {
	Column string
	Field  period.Field
	Value  string
}

// ApplyUpdate merges a subtree replacement coming from one of the
// structured editors.
type ApplyUpdate struct {
	Update configdoc.Update
}

// EditText parses the raw JSON view. On failure the text and its error are
// kept and the document stays at its last valid state.
type EditText struct {
	Text string
}

// Reset discards the session's document for Config.
type Reset struct {
	Config *configdoc.Configuration
}

// MarkSaved records that Config, produced by Save, has been persisted.
type MarkSaved struct {
	Config *configdoc.Configuration
}

func (SetRange) Kind() string          { return "setRange" }
func (AutoDetect) Kind() string        { return "autoDetect" }
func (DetectFromHeaders) Kind() string { return "detectFromHeaders" }
func (ToggleVoid) Kind() string        { return "toggleVoid" }
func (EditPeriod) Kind() string        { return "editPeriod" }
func (ApplyUpdate) Kind() string       { return "applyUpdate" }
func (EditText) Kind() string          { return "editText" }
func (Reset) Kind() string             { return "reset" }
func (MarkSaved) Kind() string         { return "markSaved" }

func (a SetRange) apply(e *Editor) error {
	e.config = configdoc.Merge(e.config, configdoc.SetPeriodsRange(strings.TrimSpace(a.Range)))
	e.parseColumns(e.config.Structure.PeriodsRange)
	if e.rangeErr != nil {
		e.refresh()
		return e.rangeErr
	}
	e.commit(mapping.Reconcile(e.columns, e.mappingLocked(), e.voids, e.opts.ReferenceYear))
	return nil
}

func (AutoDetect) apply(e *Editor) error {
	if len(e.columns) == 0 {
		return ErrNoColumns
	}
	as := period.Infer(e.columns, e.voids.Func(), e.anchorYear())
	e.commit(mapping.FromAssignments(as))
	return nil
}

func (a DetectFromHeaders) apply(e *Editor) error {
	if len(e.columns) == 0 {
		return ErrNoColumns
	}
	as := period.DetectFromHeaders(a.Headers, e.columns, e.voids.Func(), e.anchorYear())
	e.commit(mapping.FromAssignments(as))
	return nil
}

func (a ToggleVoid) apply(e *Editor) error {
	if !e.inRange(a.Column) {
		return fmt.Errorf("%w: %s", ErrColumnNotInRange, a.Column)
	}
	m := mapping.ToggleVoid(e.mappingLocked(), e.voids, a.Column, e.opts.Now().Year())
	e.commit(m)
	return nil
}

func (a EditPeriod) apply(e *Editor) error {
	current, ok := e.mappingLocked().Get(a.Column)
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotMapped, a.Column)
	}
	next, err := current.WithField(a.Field, a.Value)
	if err != nil {
		return fmt.Errorf("column %s: %w", a.Column, err)
	}
	e.commit(e.mappingLocked().Set(a.Column, next))
	return nil
}

func (a ApplyUpdate) apply(e *Editor) error {
	merged := configdoc.Merge(e.config, a.Update)
	switch a.Update.Target {
	case configdoc.TargetPeriodMapping:
		merged.Structure.PeriodMapping = merged.Structure.PeriodMapping.Normalized()
	case configdoc.TargetPeriodsRange:
		return SetRange{Range: a.Update.Text}.apply(e)
	}
	e.adopt(merged, e.voids)
	return nil
}

func (a EditText) apply(e *Editor) error {
	parsed, err := configdoc.ParseText(a.Text)
	if err != nil {
		e.text = a.Text
		e.textErr = err
		e.log.WithError(err).Warn("configuration text did not parse")
		return err
	}
	e.adopt(parsed, e.voids)
	return nil
}

func (a Reset) apply(e *Editor) error {
	cfg := a.Config
	if cfg == nil {
		cfg = configdoc.New(e.config.Type, e.config.Name, e.opts.Now())
	}
	e.adopt(cfg, nil)
	return nil
}

func (a MarkSaved) apply(e *Editor) error {
	if a.Config == nil {
		return nil
	}
	next := configdoc.Clone(e.config)
	next.ID = a.Config.ID
	next.Version = a.Config.Version
	next.UpdatedAt = a.Config.UpdatedAt
	e.config = next
	e.refresh()
	return nil
}

// envelope is the wire form of an action: {"type": "toggleVoid", "column": "F"}.
type envelope struct {
	Type    string                   `json:"type"`
	Range   string                   `json:"range,omitempty"`
	Headers map[string]string        `json:"headers,omitempty"`
	Column  string                   `json:"column,omitempty"`
	Field   period.Field             `json:"field,omitempty"`
	Value   string                   `json:"value,omitempty"`
	Update  *configdoc.Update        `json:"update,omitempty"`
	Text    string                   `json:"text,omitempty"`
	Config  *configdoc.Configuration `json:"config,omitempty"`
}

// DecodeAction reads an action from its JSON envelope.
func DecodeAction(raw []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch env.Type {
	case SetRange{}.Kind():
		return SetRange{Range: env.Range}, nil
	case AutoDetect{}.Kind():
		return AutoDetect{}, nil
	case DetectFromHeaders{}.Kind():
		return DetectFromHeaders{Headers: env.Headers}, nil
	case ToggleVoid{}.Kind():
		return ToggleVoid{Column: strings.ToUpper(strings.TrimSpace(env.Column))}, nil
	case EditPeriod{}.Kind():
		return EditPeriod{Column: strings.ToUpper(strings.TrimSpace(env.Column)), Field: env.Field, Value: env.Value}, nil
	case ApplyUpdate{}.Kind():
		if env.Update == nil {
			return nil, fmt.Errorf("decode action: %s requires an update", env.Type)
		}
		return ApplyUpdate{Update: *env.Update}, nil
	case EditText{}.Kind():
		return EditText{Text: env.Text}, nil
	case Reset{}.Kind():
		return Reset{Config: env.Config}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
}
