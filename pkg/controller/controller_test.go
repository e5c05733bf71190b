package controller_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

func newSignup(t *testing.T, opts ...controller.Option) *controller.Controller {
	t.Helper()
	opts = append([]controller.Option{controller.WithLogger(zaptest.NewLogger(t))}, opts...)
	ctl := controller.New("signup", opts...)
	if err := ctl.RegisterField(model.Field{ID: "email", Type: model.FieldTypeEmail}, validation.Chain(validation.Required(), validation.Email())); err != nil {
		t.Fatalf("register email: %v", err)
	}
	if err := ctl.RegisterField(model.Field{ID: "name", InitialValue: "Ada"}, validation.Required()); err != nil {
		t.Fatalf("register name: %v", err)
	}
	return ctl
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRegisterFieldInitialState(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	state, ok := ctl.Field("name")
	if !ok {
		t.Fatalf("expected name to be registered")
	}
	want := controller.FieldState{Value: "Ada"}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Fatalf("initial state mismatch (-want +got):\n%s", diff)
	}
	if ctl.Status() != controller.StatusClean || ctl.IsDirty() {
		t.Fatalf("new controller must be clean")
	}

	err := ctl.RegisterField(model.Field{ID: "name"}, nil)
	var dup controller.DuplicateFieldError
	if !errors.As(err, &dup) || dup.FieldID != "name" || !errors.Is(err, controller.ErrDuplicateField) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}
	if err := ctl.RegisterField(model.Field{}, nil); !errors.Is(err, controller.ErrFieldIDRequired) {
		t.Fatalf("expected ErrFieldIDRequired, got %v", err)
	}
	if diff := cmp.Diff([]string{"email", "name"}, ctl.FieldIDs()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestSetFieldValueTouchesAndAdvancesGeneration(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	if err := ctl.SetFieldValue("email", "ada@example.com"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	if err := ctl.SetFieldValue("email", "grace@example.com"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	state, _ := ctl.Field("email")
	if !state.Touched || state.Generation != 2 || state.Value != "grace@example.com" {
		t.Fatalf("unexpected state %#v", state)
	}
	if ctl.Status() != controller.StatusDirty || !ctl.IsDirty() {
		t.Fatalf("expected dirty form")
	}
	if err := ctl.SetFieldValue("missing", 1); !controller.IsUnknownField(err) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestValidateAllReportsOnlyInvalidFields(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	_ = ctl.SetFieldValue("email", "bad")
	_ = ctl.SetFieldValue("name", "ok")

	if ctl.ValidateAll(context.Background()) {
		t.Fatalf("expected ValidateAll to fail")
	}
	want := map[string]string{"email": validation.MessageEmail}
	if diff := cmp.Diff(want, ctl.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	_ = ctl.SetFieldValue("email", "ada@example.com")
	if !ctl.ValidateAll(context.Background()) {
		t.Fatalf("expected ValidateAll to pass, errors %v", ctl.Errors())
	}
	if len(ctl.Errors()) != 0 {
		t.Fatalf("expected no errors, got %v", ctl.Errors())
	}
}

func TestRaceRuleLatestValueWins(t *testing.T) {
	t.Parallel()

	gates := map[string]chan struct{}{
		"a": make(chan struct{}),
		"b": make(chan struct{}),
	}
	started := make(chan string, 2)
	slow := validation.Async(func(ctx context.Context, value any, _ validation.Context) (validation.Result, error) {
		s, _ := value.(string)
		started <- s
		select {
		case <-gates[s]:
		case <-ctx.Done():
			return validation.Result{}, ctx.Err()
		}
		return validation.Fail("rejected " + s), nil
	})

	ctl := controller.New("race",
		controller.WithLiveValidation(true),
		controller.WithLogger(zaptest.NewLogger(t)),
	)
	if err := ctl.RegisterField(model.Field{ID: "username"}, slow); err != nil {
		t.Fatalf("register: %v", err)
	}

	_ = ctl.SetFieldValue("username", "a")
	if got := <-started; got != "a" {
		t.Fatalf("expected validation of a to start first, got %q", got)
	}
	_ = ctl.SetFieldValue("username", "b")
	if got := <-started; got != "b" {
		t.Fatalf("expected validation of b, got %q", got)
	}

	state, _ := ctl.Field("username")
	if !state.Validating {
		t.Fatalf("expected field to be validating while checks are in flight")
	}

	close(gates["b"])
	eventually(t, func() bool { return ctl.FieldError("username") == "rejected b" }, "b's result")

	close(gates["a"])
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	state, _ = ctl.Field("username")
	if state.Value != "b" || state.Error != "rejected b" || state.Validating {
		t.Fatalf("stale result leaked into state: %#v", state)
	}
}

func TestCrossFieldValidatorReadsSnapshot(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})
	match := validation.Match("password")
	gated := validation.ValidatorFunc(func(ctx context.Context, value any, vctx validation.Context) validation.Result {
		close(entered)
		<-release
		return match.Validate(ctx, value, vctx)
	})

	ctl := controller.New("pw")
	_ = ctl.RegisterField(model.Field{ID: "password", InitialValue: "s3cret"}, nil)
	_ = ctl.RegisterField(model.Field{ID: "confirm", InitialValue: "s3cret"}, gated)

	done := make(chan bool, 1)
	go func() { done <- ctl.ValidateField(context.Background(), "confirm") }()
	<-entered
	_ = ctl.SetFieldValue("password", "changed")
	close(release)

	if !<-done {
		t.Fatalf("validator must see the password value captured when it started")
	}
}

func TestValidatorPanicBecomesInternalError(t *testing.T) {
	t.Parallel()

	ctl := controller.New("panic", controller.WithLogger(zaptest.NewLogger(t)))
	boom := validation.ValidatorFunc(func(context.Context, any, validation.Context) validation.Result {
		panic("boom")
	})
	_ = ctl.RegisterField(model.Field{ID: "f"}, boom)

	if ctl.ValidateField(context.Background(), "f") {
		t.Fatalf("panicking validator must fail")
	}
	if got := ctl.FieldError("f"); got != validation.InternalErrorMessage {
		t.Fatalf("unexpected error %q", got)
	}
	if ctl.ValidateField(context.Background(), "unknown") {
		t.Fatalf("unknown field must not validate")
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	t.Run("invalid form never calls onSubmit", func(t *testing.T) {
		t.Parallel()
		ctl := newSignup(t)
		var calls atomic.Int32
		ok := ctl.Submit(context.Background(), func(context.Context, map[string]any) (bool, error) {
			calls.Add(1)
			return true, nil
		})
		if ok || calls.Load() != 0 {
			t.Fatalf("expected submit to be blocked, ok=%v calls=%d", ok, calls.Load())
		}
		if ctl.IsSubmitting() {
			t.Fatalf("submitting flag must be cleared")
		}
		if ctl.Status() == controller.StatusSubmitting {
			t.Fatalf("invalid form must not enter submitting")
		}
	})

	t.Run("valid form calls onSubmit exactly once", func(t *testing.T) {
		t.Parallel()
		ctl := newSignup(t)
		_ = ctl.SetFieldValue("email", "ada@example.com")
		var calls atomic.Int32
		var got map[string]any
		ok := ctl.Submit(context.Background(), func(_ context.Context, values map[string]any) (bool, error) {
			calls.Add(1)
			got = values
			return true, nil
		})
		if !ok || calls.Load() != 1 {
			t.Fatalf("expected one successful call, ok=%v calls=%d", ok, calls.Load())
		}
		want := map[string]any{"email": "ada@example.com", "name": "Ada"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
		}
		if ctl.Status() != controller.StatusSubmitted || ctl.LastError() != "" {
			t.Fatalf("unexpected status %q / error %q", ctl.Status(), ctl.LastError())
		}
	})

	t.Run("callback error and panic become last error", func(t *testing.T) {
		t.Parallel()
		ctl := newSignup(t)
		_ = ctl.SetFieldValue("email", "ada@example.com")

		if ctl.Submit(context.Background(), func(context.Context, map[string]any) (bool, error) {
			return false, errors.New("backend rejected")
		}) {
			t.Fatalf("expected failure")
		}
		if ctl.LastError() != "backend rejected" || ctl.Status() != controller.StatusSubmitFailed {
			t.Fatalf("unexpected last error %q status %q", ctl.LastError(), ctl.Status())
		}

		if ctl.Submit(context.Background(), func(context.Context, map[string]any) (bool, error) {
			panic("kaboom")
		}) {
			t.Fatalf("expected failure on panic")
		}
		if !strings.Contains(ctl.LastError(), "kaboom") {
			t.Fatalf("expected panic in last error, got %q", ctl.LastError())
		}
		if ctl.IsSubmitting() {
			t.Fatalf("submitting flag must be cleared after panic")
		}
	})

	t.Run("callback returning false fails without error", func(t *testing.T) {
		t.Parallel()
		ctl := newSignup(t)
		_ = ctl.SetFieldValue("email", "ada@example.com")
		if ctl.Submit(context.Background(), func(context.Context, map[string]any) (bool, error) {
			return false, nil
		}) {
			t.Fatalf("expected false")
		}
		if ctl.Status() != controller.StatusSubmitFailed || ctl.LastError() != "" {
			t.Fatalf("unexpected status %q / error %q", ctl.Status(), ctl.LastError())
		}
	})
}

func TestSubmitRejectsReentry(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	_ = ctl.SetFieldValue("email", "ada@example.com")

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan bool, 1)
	go func() {
		first <- ctl.Submit(context.Background(), func(context.Context, map[string]any) (bool, error) {
			close(entered)
			<-release
			return true, nil
		})
	}()
	<-entered

	if !ctl.IsSubmitting() || ctl.Status() != controller.StatusSubmitting {
		t.Fatalf("expected submitting state")
	}
	if ctl.Submit(context.Background(), nil) {
		t.Fatalf("second submit must be rejected")
	}
	if ctl.LastError() != controller.ErrSubmitInProgress.Error() {
		t.Fatalf("unexpected last error %q", ctl.LastError())
	}
	close(release)
	if !<-first {
		t.Fatalf("first submit should succeed")
	}
}

func TestSubmitRejectsValuesChangedDuringValidation(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gated := validation.Async(func(ctx context.Context, value any, _ validation.Context) (validation.Result, error) {
		if value == "good" {
			once.Do(func() { close(entered) })
			select {
			case <-release:
			case <-ctx.Done():
				return validation.Result{}, ctx.Err()
			}
			return validation.Pass(), nil
		}
		return validation.Fail("rejected " + value.(string)), nil
	})

	ctl := controller.New("stale", controller.WithLogger(zaptest.NewLogger(t)))
	if err := ctl.RegisterField(model.Field{ID: "x", InitialValue: "good"}, gated); err != nil {
		t.Fatalf("register: %v", err)
	}

	var calls atomic.Int32
	onSubmit := func(context.Context, map[string]any) (bool, error) {
		calls.Add(1)
		return true, nil
	}
	done := make(chan bool, 1)
	go func() { done <- ctl.Submit(context.Background(), onSubmit) }()

	<-entered
	if err := ctl.SetFieldValue("x", "bad"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	close(release)

	if <-done || calls.Load() != 0 {
		t.Fatalf("values changed mid-validation must not be submitted, calls=%d", calls.Load())
	}
	if ctl.LastError() != controller.ErrValuesChanged.Error() {
		t.Fatalf("unexpected last error %q", ctl.LastError())
	}
	if ctl.Status() == controller.StatusSubmitted || ctl.IsSubmitting() {
		t.Fatalf("unexpected status %q", ctl.Status())
	}

	if ctl.Submit(context.Background(), onSubmit) || calls.Load() != 0 {
		t.Fatalf("resubmitting the changed value must fail validation")
	}
	if got := ctl.FieldError("x"); got != "rejected bad" {
		t.Fatalf("unexpected field error %q", got)
	}
}

func TestValidateFieldReportsStaleResultAsInvalid(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gated := validation.ValidatorFunc(func(_ context.Context, value any, _ validation.Context) validation.Result {
		if value == "first" {
			once.Do(func() { close(entered) })
			<-release
		}
		return validation.Pass()
	})

	ctl := controller.New("stale")
	_ = ctl.RegisterField(model.Field{ID: "f", InitialValue: "first"}, gated)

	done := make(chan bool, 1)
	go func() { done <- ctl.ValidateField(context.Background(), "f") }()
	<-entered
	_ = ctl.SetFieldValue("f", "second")
	close(release)

	if <-done {
		t.Fatalf("a result for a superseded value must not report valid")
	}
}

func TestSubmitTransformers(t *testing.T) {
	t.Parallel()

	upper := func(values map[string]any) (map[string]any, error) {
		values["name"] = strings.ToUpper(values["name"].(string))
		return values, nil
	}
	ctl := newSignup(t, controller.WithSubmitTransformer(upper))
	_ = ctl.SetFieldValue("email", "ada@example.com")

	var got any
	ctl.Submit(context.Background(), func(_ context.Context, values map[string]any) (bool, error) {
		got = values["name"]
		return true, nil
	})
	if got != "ADA" {
		t.Fatalf("expected transformed name, got %v", got)
	}
	if v, _ := ctl.Field("name"); v.Value != "Ada" {
		t.Fatalf("transformers must not mutate controller state, got %v", v.Value)
	}

	failing := newSignup(t, controller.WithSubmitTransformer(func(map[string]any) (map[string]any, error) {
		return nil, errors.New("transform failed")
	}))
	_ = failing.SetFieldValue("email", "ada@example.com")
	if failing.Submit(context.Background(), nil) || failing.LastError() != "transform failed" {
		t.Fatalf("expected transformer error to fail submission, got %q", failing.LastError())
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	_ = ctl.SetFieldValue("email", "bad")
	_ = ctl.SetFieldValue("name", "")
	ctl.ValidateAll(context.Background())
	if len(ctl.Errors()) != 2 {
		t.Fatalf("expected both fields invalid, got %v", ctl.Errors())
	}

	ctl.Reset()

	for id, want := range map[string]any{"email": nil, "name": "Ada"} {
		state, _ := ctl.Field(id)
		if state.Value != want || state.Error != "" || state.Touched {
			t.Fatalf("%s not reset: %#v", id, state)
		}
	}
	if ctl.IsDirty() || ctl.Status() != controller.StatusClean || ctl.LastError() != "" {
		t.Fatalf("form not clean after reset")
	}
}

func TestResetDiscardsInflightValidation(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	v := validation.ValidatorFunc(func(context.Context, any, validation.Context) validation.Result {
		close(entered)
		<-release
		return validation.Fail("late")
	})
	ctl := controller.New("reset")
	_ = ctl.RegisterField(model.Field{ID: "f"}, v)

	done := make(chan struct{})
	go func() {
		ctl.ValidateField(context.Background(), "f")
		close(done)
	}()
	<-entered
	ctl.Reset()
	close(release)
	<-done

	if got := ctl.FieldError("f"); got != "" {
		t.Fatalf("result from before reset must be ignored, got %q", got)
	}
}

func TestHiddenFieldsExcluded(t *testing.T) {
	t.Parallel()

	build := func(opts ...controller.Option) *controller.Controller {
		ctl := controller.New("account", opts...)
		_ = ctl.RegisterField(model.Field{ID: "accountType", InitialValue: "personal"}, nil)
		_ = ctl.RegisterField(model.Field{
			ID:         "company",
			Visibility: visibility.FieldEquals("accountType", "business"),
		}, validation.Required())
		return ctl
	}

	ctl := build()
	_ = ctl.SetFieldValue("accountType", "business")
	if ctl.ValidateAll(context.Background()) {
		t.Fatalf("visible required company must fail")
	}
	_ = ctl.SetFieldValue("company", "Acme")
	_ = ctl.SetFieldError("company", "taken")
	_ = ctl.SetFieldValue("accountType", "personal")

	if ctl.Visible("company") {
		t.Fatalf("company must be hidden for personal accounts")
	}
	if len(ctl.Errors()) != 0 {
		t.Fatalf("hidden field errors must be excluded, got %v", ctl.Errors())
	}
	if !ctl.ValidateAll(context.Background()) {
		t.Fatalf("hidden fields count as valid")
	}
	if _, ok := ctl.Values()["company"]; ok {
		t.Fatalf("hidden values are excluded by default")
	}

	inclusive := build(controller.WithHiddenValues(true))
	_ = inclusive.SetFieldValue("company", "Acme")
	if inclusive.Values()["company"] != "Acme" {
		t.Fatalf("expected hidden value with WithHiddenValues")
	}
}

func TestUnregisterField(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	if !ctl.UnregisterField("email") {
		t.Fatalf("expected email to be removed")
	}
	if ctl.UnregisterField("email") {
		t.Fatalf("second removal must report false")
	}
	if !ctl.ValidateAll(context.Background()) {
		t.Fatalf("remaining fields are valid")
	}
	if _, ok := ctl.Values()["email"]; ok {
		t.Fatalf("unregistered field must not be submitted")
	}
}

func TestOnChangeNotifiesAndUnsubscribes(t *testing.T) {
	t.Parallel()

	ctl := newSignup(t)
	var mu sync.Mutex
	var kinds []controller.EventKind
	unsubscribe := ctl.OnChange(func(e controller.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	})
	ctl.OnChange(func(controller.Event) { panic("listener bug") })

	_ = ctl.SetFieldValue("name", "Grace")
	ctl.ValidateField(context.Background(), "name")
	_ = ctl.SetFieldError("name", "server says no")
	ctl.Reset()

	unsubscribe()
	unsubscribe()
	_ = ctl.SetFieldValue("name", "again")

	want := []controller.EventKind{
		controller.EventValueChanged,
		controller.EventValidationStarted,
		controller.EventValidated,
		controller.EventErrorChanged,
		controller.EventReset,
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDisposeCancelsBackgroundValidation(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	v := validation.Async(func(ctx context.Context, _ any, _ validation.Context) (validation.Result, error) {
		close(entered)
		<-ctx.Done()
		return validation.Result{}, ctx.Err()
	})
	ctl := controller.New("dispose", controller.WithLiveValidation(true))
	_ = ctl.RegisterField(model.Field{ID: "f"}, v)
	_ = ctl.SetFieldValue("f", "x")
	<-entered

	ctl.Dispose()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctl.Wait(ctx); err != nil {
		t.Fatalf("background validation did not stop: %v", err)
	}
	if ctl.FieldError("f") != "" {
		t.Fatalf("discarded validation must not record an error")
	}
	if err := ctl.SetFieldValue("f", "y"); !errors.Is(err, controller.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
	if ctl.Submit(context.Background(), nil) {
		t.Fatalf("disposed controller must not submit")
	}
}
