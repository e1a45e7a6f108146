package macros

import (
	"strings"
	"text/template"
)

// EndpointTemplateParams specifies params for an endpoint template
type EndpointTemplateParams struct {
	Host        string
	PublisherID string
	AccountID   string
	ZoneID      string
}

// ResolveMacros resolves macros in the given template with the provided params
func ResolveMacros(aTemplate *template.Template, params interface{}) (string, error) {
	var strBuf strings.Builder
	if err := aTemplate.Execute(&strBuf, params); err != nil {
		return "", err
	}
	return strBuf.String(), nil
}
