package macros

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
)

const validEndpointTemplate = "http://{{.Host}}/publisher/{{.PublisherID}}"

type unrelatedParams struct {
	GDPR string
}

func TestResolveMacros(t *testing.T) {
	endpointTemplate := template.Must(template.New("endpointTemplate").Parse(validEndpointTemplate))

	testCases := []struct {
		description string
		params      interface{}
		result      string
		hasError    bool
	}{
		{
			description: "resolved",
			params:      EndpointTemplateParams{Host: "SomeHost", PublisherID: "1"},
			result:      "http://SomeHost/publisher/1",
		},
		{
			description: "missing-fields",
			params:      unrelatedParams{GDPR: "1"},
			hasError:    true,
		},
	}

	for _, test := range testCases {
		res, err := ResolveMacros(endpointTemplate, test.params)

		if test.hasError {
			assert.Error(t, err, test.description)
			assert.Empty(t, res, test.description)
		} else {
			assert.NoError(t, err, test.description)
			assert.Equal(t, test.result, res, test.description)
		}
	}
}
