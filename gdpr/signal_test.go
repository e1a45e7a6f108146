package gdpr

import (
	"testing"

	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/stretchr/testify/assert"
)

func TestSignalParse(t *testing.T) {
	testCases := []struct {
		description    string
		input          string
		expectedSignal Signal
		expectedError  bool
	}{
		{description: "empty", input: "", expectedSignal: SignalAmbiguous},
		{description: "zero", input: "0", expectedSignal: SignalNo},
		{description: "one", input: "1", expectedSignal: SignalYes},
		{description: "out-of-range", input: "2", expectedSignal: SignalAmbiguous, expectedError: true},
		{description: "not-a-number", input: "yes", expectedSignal: SignalAmbiguous, expectedError: true},
	}

	for _, test := range testCases {
		signal, err := SignalParse(test.input)
		assert.Equal(t, test.expectedSignal, signal, test.description)
		if test.expectedError {
			assert.IsType(t, &errortypes.BadInput{}, err, test.description)
		} else {
			assert.NoError(t, err, test.description)
		}
	}
}

func TestSignalFromInt(t *testing.T) {
	one, two := int8(1), int8(2)

	signal, err := SignalFromInt(nil)
	assert.NoError(t, err)
	assert.Equal(t, SignalAmbiguous, signal)

	signal, err = SignalFromInt(&one)
	assert.NoError(t, err)
	assert.Equal(t, SignalYes, signal)

	_, err = SignalFromInt(&two)
	assert.Error(t, err)
}

func TestSignalNormalize(t *testing.T) {
	testCases := []struct {
		description  string
		signal       Signal
		defaultValue string
		expected     Signal
	}{
		{description: "yes-kept", signal: SignalYes, defaultValue: "0", expected: SignalYes},
		{description: "no-kept", signal: SignalNo, defaultValue: "1", expected: SignalNo},
		{description: "ambiguous-default-no", signal: SignalAmbiguous, defaultValue: "0", expected: SignalNo},
		{description: "ambiguous-default-yes", signal: SignalAmbiguous, defaultValue: "1", expected: SignalYes},
		{description: "ambiguous-default-unset", signal: SignalAmbiguous, defaultValue: "", expected: SignalYes},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, SignalNormalize(test.signal, test.defaultValue), test.description)
	}
}
