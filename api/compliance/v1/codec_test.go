package compliancev1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodec(t *testing.T) {
	t.Run("Registered under json", func(t *testing.T) {
		codec := encoding.GetCodec(CodecName)
		require.NotNil(t, codec)
		assert.Equal(t, "json", codec.Name())
	})

	t.Run("Uses the wire field names", func(t *testing.T) {
		data, err := Codec{}.Marshal(&FlightPlanRequest{FlightPlanId: "FP-1", Data: "{}"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"flight_plan_id":"FP-1","data":"{}"}`, string(data))
	})

	t.Run("Result is omitted when unset", func(t *testing.T) {
		data, err := Codec{}.Marshal(&FlightReleaseResponse{FlightPlanId: "FP-1", Released: true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"flight_plan_id":"FP-1","released":true}`, string(data))
	})

	t.Run("Empty frame decodes to the zero message", func(t *testing.T) {
		var q QueryIsReady
		assert.NoError(t, Codec{}.Unmarshal(nil, &q))
	})

	t.Run("Malformed frame is an error", func(t *testing.T) {
		var req FlightPlanRequest
		assert.Error(t, Codec{}.Unmarshal([]byte("{"), &req))
	})
}

func TestGetResult(t *testing.T) {
	msg := "rules pending"
	assert.Equal(t, "", (*FlightPlanResponse)(nil).GetResult())
	assert.Equal(t, "", (&FlightReleaseResponse{}).GetResult())
	assert.Equal(t, msg, (&FlightPlanResponse{Result: &msg}).GetResult())
}
