package controller

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// SubmitFunc receives the submitted values and reports whether the host
// accepted them.
type SubmitFunc func(ctx context.Context, values map[string]any) (bool, error)

// Controller owns the runtime state of one form session. All methods are safe
// for concurrent use. Validations for different fields, and repeated
// validations of the same field, may be in flight at once; results are only
// recorded when the field's generation has not moved since they started.
type Controller struct {
	formID string

	mu         sync.Mutex
	fields     map[string]*fieldEntry
	order      []string
	status     Status
	submitting bool
	lastError  string
	disposed   bool

	listeners    map[uint64]Listener
	nextListener uint64

	pending int
	idle    chan struct{}

	live          bool
	includeHidden bool
	transformers  []SubmitTransformer
	logger        *zap.Logger

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

type fieldEntry struct {
	config    model.Field
	validator validation.Validator
	state     FieldState
	inflight  int
}

// New returns an empty controller for formID.
func New(formID string, opts ...Option) *Controller {
	c := &Controller{
		formID:    formID,
		fields:    make(map[string]*fieldEntry),
		status:    StatusClean,
		listeners: make(map[uint64]Listener),
		logger:    zap.NewNop(),
		parent:    context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.ctx, c.cancel = context.WithCancel(c.parent)
	c.logger = c.logger.With(zap.String("form", formID))
	return c
}

// FormID returns the id the controller was created with.
func (c *Controller) FormID() string {
	return c.formID
}

// RegisterField adds field with its composed validator. The field starts
// untouched with a copy of its initial value and no error.
func (c *Controller) RegisterField(field model.Field, v validation.Validator) error {
	if field.ID == "" {
		return ErrFieldIDRequired
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if _, exists := c.fields[field.ID]; exists {
		c.mu.Unlock()
		return DuplicateFieldError{FieldID: field.ID}
	}
	c.fields[field.ID] = &fieldEntry{
		config:    field.Clone(),
		validator: v,
		state:     FieldState{Value: model.CloneValue(field.InitialValue)},
	}
	c.order = append(c.order, field.ID)
	c.mu.Unlock()

	c.notify(Event{Kind: EventFieldRegistered, FieldID: field.ID})
	return nil
}

// UnregisterField drops a field from validation and submission. In-flight
// validations for it are ignored when they resolve.
func (c *Controller) UnregisterField(id string) bool {
	c.mu.Lock()
	if _, ok := c.fields[id]; !ok || c.disposed {
		c.mu.Unlock()
		return false
	}
	delete(c.fields, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.notify(Event{Kind: EventFieldUnregistered, FieldID: id})
	return true
}

// SetFieldValue stores value, marks the field touched and advances its
// generation. With live validation enabled the field is validated on a
// background goroutine; the call never blocks on validators.
func (c *Controller) SetFieldValue(id string, value any) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	entry, ok := c.fields[id]
	if !ok {
		c.mu.Unlock()
		return unknownField(id)
	}
	entry.state.Value = model.CloneValue(value)
	entry.state.Touched = true
	entry.state.Generation++
	if !c.submitting {
		c.status = StatusDirty
	}
	live := c.live
	if live {
		c.pending++
		if c.pending == 1 {
			c.idle = make(chan struct{})
		}
	}
	ctx := c.ctx
	c.mu.Unlock()

	c.notify(Event{Kind: EventValueChanged, FieldID: id})
	if live {
		go func() {
			defer c.liveDone()
			c.ValidateField(ctx, id)
		}()
	}
	return nil
}

func (c *Controller) liveDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
}

// Wait blocks until background validations started by SetFieldValue have
// finished, or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ValidateField runs the field's validator against its current value and a
// snapshot of every value. The outcome is recorded only if the field's
// generation is unchanged when the validator returns. A field hidden by its
// visibility condition is valid and has its error cleared. Unknown fields,
// discarded (cancelled) validations and stale results report false.
func (c *Controller) ValidateField(ctx context.Context, id string) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	entry, ok := c.fields[id]
	if !ok || c.disposed {
		c.mu.Unlock()
		return false
	}
	values := c.valuesLocked()
	gen := entry.state.Generation
	config := entry.config
	validator := entry.validator
	value := model.CloneValue(entry.state.Value)
	c.mu.Unlock()

	if !config.Visible(values) {
		c.clearHidden(entry, gen)
		return true
	}

	c.mu.Lock()
	if c.fields[id] != entry || entry.state.Generation != gen {
		// value moved between the visibility check and start
		values = c.valuesLocked()
		gen = entry.state.Generation
		value = model.CloneValue(entry.state.Value)
	}
	entry.inflight++
	entry.state.Validating = true
	runCtx, cancel := c.bind(ctx)
	c.mu.Unlock()
	defer cancel()

	c.notify(Event{Kind: EventValidationStarted, FieldID: id})
	c.logger.Debug("validation started", zap.String("field", id), zap.Uint64("generation", gen))

	result := validation.Run(runCtx, validator, value, validation.Context{
		FieldID: id,
		Label:   config.DisplayLabel(),
		Values:  values,
	})

	c.mu.Lock()
	entry.inflight--
	entry.state.Validating = entry.inflight > 0
	current := c.fields[id] == entry && !c.disposed && entry.state.Generation == gen
	recorded := false
	if current && !result.Discarded {
		entry.state.Error = ""
		if !result.Valid {
			entry.state.Error = result.Message
		}
		recorded = true
	}
	c.mu.Unlock()

	switch {
	case result.Discarded:
		c.logger.Debug("validation discarded", zap.String("field", id), zap.Uint64("generation", gen))
	case !recorded:
		c.logger.Debug("stale validation result ignored", zap.String("field", id), zap.Uint64("generation", gen))
	case !result.Valid && result.Message == validation.InternalErrorMessage:
		c.logger.Warn("validator failed internally", zap.String("field", id), zap.Any("details", result.Details))
	}
	c.notify(Event{Kind: EventValidated, FieldID: id})

	return recorded && result.Valid
}

func (c *Controller) clearHidden(entry *fieldEntry, gen uint64) {
	c.mu.Lock()
	changed := entry.state.Error != "" && entry.state.Generation == gen
	if changed {
		entry.state.Error = ""
	}
	c.mu.Unlock()
	if changed {
		c.notify(Event{Kind: EventErrorChanged, FieldID: entry.config.ID})
	}
}

// bind derives a context cancelled by either ctx or Dispose. Callers hold mu.
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// ValidateAll validates every registered field concurrently and reports
// whether all of them are valid. Hidden fields count as valid.
func (c *Controller) ValidateAll(ctx context.Context) bool {
	ids := c.FieldIDs()
	results := make([]bool, len(ids))

	var wg conc.WaitGroup
	for i, id := range ids {
		wg.Go(func() {
			results[i] = c.ValidateField(ctx, id)
		})
	}
	wg.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

// Submit validates the whole form and, when every field is valid, hands the
// submitted values to onSubmit. Errors and panics from onSubmit (or from a
// submit transformer) are recorded as LastError and reported as false. A
// Submit issued while another is running returns false immediately.
func (c *Controller) Submit(ctx context.Context, onSubmit SubmitFunc) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	if c.submitting {
		c.lastError = ErrSubmitInProgress.Error()
		c.mu.Unlock()
		c.logger.Debug("submit rejected", zap.Error(ErrSubmitInProgress))
		c.notify(Event{Kind: EventErrorChanged, Status: c.Status()})
		return false
	}
	c.submitting = true
	c.lastError = ""
	generations := c.generationsLocked()
	c.mu.Unlock()
	c.notify(Event{Kind: EventSubmitStarted, Status: c.Status()})

	valid := c.ValidateAll(ctx)

	c.mu.Lock()
	changed := !sameGenerations(generations, c.generationsLocked())
	if changed || !valid {
		c.submitting = false
		if changed {
			c.lastError = ErrValuesChanged.Error()
		}
		status := c.status
		c.mu.Unlock()
		if changed {
			c.logger.Debug("submit blocked", zap.Error(ErrValuesChanged))
		} else {
			c.logger.Debug("submit blocked by validation errors")
		}
		c.notify(Event{Kind: EventSubmitFinished, Status: status})
		return false
	}
	c.status = StatusSubmitting
	values := c.submittedValuesLocked()
	c.mu.Unlock()
	c.notify(Event{Kind: EventSubmitStarted, Status: StatusSubmitting})

	ok, err := c.runSubmit(ctx, onSubmit, values)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.lastError = err.Error()
	}
	if err == nil && ok {
		c.status = StatusSubmitted
	} else {
		c.status = StatusSubmitFailed
	}
	status := c.status
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("submit failed", zap.Error(err))
	}
	c.notify(Event{Kind: EventSubmitFinished, Status: status})
	return err == nil && ok
}

func (c *Controller) runSubmit(ctx context.Context, onSubmit SubmitFunc, values map[string]any) (ok bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok, err = false, submitPanicError{value: recovered}
		}
	}()
	for _, transform := range c.transformers {
		if values, err = transform(values); err != nil {
			return false, err
		}
	}
	if onSubmit == nil {
		return true, nil
	}
	return onSubmit(ctx, values)
}

// Reset restores every field to its initial value and clears errors, touched
// flags and the last submission error. In-flight validations are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	for _, entry := range c.fields {
		entry.state.Value = model.CloneValue(entry.config.InitialValue)
		entry.state.Error = ""
		entry.state.Touched = false
		entry.state.Validating = false
		entry.state.Generation++
	}
	c.status = StatusClean
	c.lastError = ""
	c.mu.Unlock()

	c.notify(Event{Kind: EventReset, Status: StatusClean})
}

// Dispose cancels background validations and detaches listeners. The
// controller rejects further mutations.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	for _, entry := range c.fields {
		entry.state.Generation++
	}
	listeners := c.listenersLocked()
	c.disposed = true
	c.listeners = nil
	c.mu.Unlock()

	c.cancel()
	for _, l := range listeners {
		c.deliver(l, Event{Kind: EventDisposed})
	}
}

// FieldError returns the current error for id, or "" when valid or unknown.
func (c *Controller) FieldError(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.fields[id]; ok {
		return entry.state.Error
	}
	return ""
}

// SetFieldError records an externally supplied error, such as a server-side
// rejection. An empty message clears the error.
func (c *Controller) SetFieldError(id, message string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	entry, ok := c.fields[id]
	if !ok {
		c.mu.Unlock()
		return unknownField(id)
	}
	entry.state.Error = message
	c.mu.Unlock()

	c.notify(Event{Kind: EventErrorChanged, FieldID: id})
	return nil
}

// Values returns a deep copy of the current values. Fields hidden by their
// visibility condition are left out unless WithHiddenValues(true) was set.
func (c *Controller) Values() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submittedValuesLocked()
}

func (c *Controller) submittedValuesLocked() map[string]any {
	values := c.valuesLocked()
	if c.includeHidden {
		return values
	}
	configs := c.configsLocked()
	out := make(map[string]any, len(values))
	for id, value := range values {
		if configs[id].Visible(values) {
			out[id] = value
		}
	}
	return out
}

// Errors returns the errors of visible invalid fields, keyed by field id.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	values := c.valuesLocked()
	configs := c.configsLocked()
	errs := make(map[string]string)
	for id, entry := range c.fields {
		if entry.state.Error != "" {
			errs[id] = entry.state.Error
		}
	}
	c.mu.Unlock()

	for id := range errs {
		if !configs[id].Visible(values) {
			delete(errs, id)
		}
	}
	return errs
}

// Field returns a snapshot of one field's state.
func (c *Controller) Field(id string) (FieldState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.fields[id]
	if !ok {
		return FieldState{}, false
	}
	return entry.state.clone(), true
}

// Config returns the registered definition of a field.
func (c *Controller) Config(id string) (model.Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.fields[id]
	if !ok {
		return model.Field{}, false
	}
	return entry.config.Clone(), true
}

// Visible reports whether id is currently shown according to its visibility
// condition and the current values.
func (c *Controller) Visible(id string) bool {
	c.mu.Lock()
	entry, ok := c.fields[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	config := entry.config
	values := c.valuesLocked()
	c.mu.Unlock()
	return config.Visible(values)
}

// FieldIDs lists registered fields in registration order.
func (c *Controller) FieldIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// IsDirty reports whether any field has been touched since creation or the
// last Reset.
func (c *Controller) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.fields {
		if entry.state.Touched {
			return true
		}
	}
	return false
}

// IsSubmitting reports whether a Submit call is running.
func (c *Controller) IsSubmitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// LastError returns the message of the last failed submission, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Status returns the form-level lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OnChange subscribes listener to controller events and returns a function
// that removes it.
func (c *Controller) OnChange(listener Listener) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return func() {}
	}
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = listener
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) notify(event Event) {
	c.mu.Lock()
	listeners := c.listenersLocked()
	if event.Status == "" {
		event.Status = c.status
	}
	c.mu.Unlock()
	for _, l := range listeners {
		c.deliver(l, event)
	}
}

func (c *Controller) deliver(l Listener, event Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Warn("listener panicked",
				zap.String("event", string(event.Kind)),
				zap.Any("panic", recovered),
			)
		}
	}()
	l(event)
}

func (c *Controller) listenersLocked() []Listener {
	if len(c.listeners) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func (c *Controller) valuesLocked() map[string]any {
	values := make(map[string]any, len(c.fields))
	for id, entry := range c.fields {
		values[id] = model.CloneValue(entry.state.Value)
	}
	return values
}

func (c *Controller) generationsLocked() map[string]uint64 {
	generations := make(map[string]uint64, len(c.fields))
	for id, entry := range c.fields {
		generations[id] = entry.state.Generation
	}
	return generations
}

func sameGenerations(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for id, gen := range a {
		if other, ok := b[id]; !ok || other != gen {
			return false
		}
	}
	return true
}

func (c *Controller) configsLocked() map[string]model.Field {
	configs := make(map[string]model.Field, len(c.fields))
	for id, entry := range c.fields {
		configs[id] = entry.config
	}
	return configs
}

// IsUnknownField reports whether err came from naming an unregistered field.
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}
