package region

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingNotifier struct {
	mu        sync.Mutex
	submitted []string
	released  []string
	err       error
}

func (n *recordingNotifier) FlightPlanSubmitted(ctx context.Context, region Code, submission FlightPlanSubmission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.submitted = append(n.submitted, region.String()+":"+submission.ID)
	return nil
}

func (n *recordingNotifier) FlightReleaseRequested(ctx context.Context, region Code, request FlightReleaseRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.released = append(n.released, region.String()+":"+request.ID)
	return nil
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		selector string
		want     Code
	}{
		{selector: "us", want: CodeUS},
		{selector: "ne", want: CodeNE},
		{selector: "stub", want: CodeStub},
		{selector: " US ", want: CodeUS},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := ParseCode(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, selector := range []string{"", "nl", "eu", "usa"} {
		t.Run("unsupported "+selector, func(t *testing.T) {
			_, err := ParseCode(selector)
			assert.ErrorIs(t, err, ErrUnknownJurisdiction)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, selector, cfgErr.Selector)
		})
	}
}

func TestSupportedCodes(t *testing.T) {
	assert.Equal(t, []Code{CodeNE, CodeStub, CodeUS}, SupportedCodes())
}

func TestNewDispatcher(t *testing.T) {
	t.Run("Unknown jurisdiction is a configuration error", func(t *testing.T) {
		var d *Dispatcher
		var err error
		assert.NotPanics(t, func() {
			d, err = NewDispatcher("atlantis", Deps{Logger: discardLogger})
		})
		assert.Nil(t, d)

		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("Every supported code binds a strategy", func(t *testing.T) {
		for _, code := range SupportedCodes() {
			d, err := NewDispatcher(code.String(), Deps{Logger: discardLogger})
			require.NoError(t, err)
			assert.Equal(t, code, d.Code())
			assert.NotNil(t, d.Strategy())
		}
	})

	t.Run("Strategy is resolved once", func(t *testing.T) {
		d, err := NewDispatcher("us", Deps{})
		require.NoError(t, err)
		assert.Same(t, d.Strategy(), d.Strategy())
	})
}

func TestNEStrategy(t *testing.T) {
	d, err := NewDispatcher("ne", Deps{Logger: discardLogger})
	require.NoError(t, err)
	strategy := d.Strategy()

	t.Run("Submit is not implemented", func(t *testing.T) {
		var err error
		assert.NotPanics(t, func() {
			_, err = strategy.SubmitFlightPlan(context.Background(), FlightPlanSubmission{ID: "FP-1", Payload: "{}"})
		})
		assert.ErrorIs(t, err, ErrNotImplemented)
		assert.Equal(t, KindNotImplemented, KindOf(err))
	})

	t.Run("Release is not implemented", func(t *testing.T) {
		var err error
		assert.NotPanics(t, func() {
			_, err = strategy.RequestFlightRelease(context.Background(), FlightReleaseRequest{ID: "FP-1", Payload: "{}"})
		})
		assert.ErrorIs(t, err, ErrNotImplemented)
		assert.Equal(t, KindNotImplemented, KindOf(err))

		var se *StrategyError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, CodeNE, se.Region)
		assert.Equal(t, "request flight release", se.Op)
	})
}

func TestUSStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid submission is accepted and announced", func(t *testing.T) {
		notifier := &recordingNotifier{}
		d, err := NewDispatcher("us", Deps{Notifier: notifier, Logger: discardLogger})
		require.NoError(t, err)

		outcome, err := d.Strategy().SubmitFlightPlan(ctx, FlightPlanSubmission{ID: "FP-1", Payload: `{"cargo":true}`})
		require.NoError(t, err)
		assert.Equal(t, "FP-1", outcome.ID)
		assert.True(t, outcome.Accepted)
		assert.NotEmpty(t, outcome.Message)
		assert.Equal(t, []string{"us:FP-1"}, notifier.submitted)
	})

	t.Run("Release is accepted and announced", func(t *testing.T) {
		notifier := &recordingNotifier{}
		d, err := NewDispatcher("us", Deps{Notifier: notifier, Logger: discardLogger})
		require.NoError(t, err)

		outcome, err := d.Strategy().RequestFlightRelease(ctx, FlightReleaseRequest{ID: "FP-1", Payload: `{}`})
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)
		assert.Equal(t, []string{"us:FP-1"}, notifier.released)
	})

	t.Run("Invalid requests are rejected before announcing", func(t *testing.T) {
		notifier := &recordingNotifier{}
		d, err := NewDispatcher("us", Deps{Notifier: notifier, Logger: discardLogger})
		require.NoError(t, err)

		for _, sub := range []FlightPlanSubmission{
			{ID: "", Payload: "{}"},
			{ID: "FP-1", Payload: "not json"},
			{ID: "FP-1", Payload: "[1,2]"},
			{ID: "FP-1", Payload: "null"},
		} {
			_, err := d.Strategy().SubmitFlightPlan(ctx, sub)
			assert.ErrorIs(t, err, ErrInvalidRequest, "payload %q", sub.Payload)
			assert.Equal(t, KindInvalidRequest, KindOf(err))
		}
		assert.Empty(t, notifier.submitted)
	})

	t.Run("Announcement failure is unavailable", func(t *testing.T) {
		cause := errors.New("rabbitmq: connection pool exhausted")
		notifier := &recordingNotifier{err: cause}
		d, err := NewDispatcher("us", Deps{Notifier: notifier, Logger: discardLogger})
		require.NoError(t, err)

		_, err = d.Strategy().SubmitFlightPlan(ctx, FlightPlanSubmission{ID: "FP-1", Payload: "{}"})
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, KindUnavailable, KindOf(err))
	})
}

func TestStubStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("Any payload is accepted", func(t *testing.T) {
		d, err := NewDispatcher("stub", Deps{Logger: discardLogger})
		require.NoError(t, err)

		outcome, err := d.Strategy().SubmitFlightPlan(ctx, FlightPlanSubmission{ID: "FP-1", Payload: "not json"})
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)

		outcome, err = d.Strategy().RequestFlightRelease(ctx, FlightReleaseRequest{ID: "FP-1"})
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)
	})

	t.Run("Missing id is rejected", func(t *testing.T) {
		d, err := NewDispatcher("stub", Deps{Logger: discardLogger})
		require.NoError(t, err)

		_, err = d.Strategy().RequestFlightRelease(ctx, FlightReleaseRequest{ID: " "})
		assert.Equal(t, KindInvalidRequest, KindOf(err))
	})
}

func TestKind(t *testing.T) {
	assert.Equal(t, "not_implemented", KindNotImplemented.String())
	assert.Equal(t, "invalid_request", KindInvalidRequest.String())
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
