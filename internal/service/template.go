package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/provider"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// templateParamInput is one caller-supplied template parameter.
type templateParamInput struct {
	Component     string `mapstructure:"component"`
	Value         string `mapstructure:"value"`
	ParameterName string `mapstructure:"parameter_name"`
}

// extractVariables pulls every {{key}} placeholder out of the
// template's structural components. A purely numeric key is positional
// (order-dependent, must not carry a name); anything else is named.
func extractVariables(tpl *provider.Template) []api.TemplateVariable {
	var vars []api.TemplateVariable
	seen := make(map[string]bool)

	for _, comp := range tpl.Components {
		compType := strings.ToLower(comp.Type)
		if comp.Text == "" {
			continue
		}
		for _, match := range placeholderRe.FindAllStringSubmatch(comp.Text, -1) {
			key := match[1]
			dedupeKey := compType + ":" + key
			if seen[dedupeKey] {
				continue
			}
			seen[dedupeKey] = true
			vars = append(vars, api.TemplateVariable{
				Key:       key,
				Named:     !isNumeric(key),
				Component: compType,
			})
		}
	}

	return vars
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateTemplateParams matches the caller's parameters against the
// template's required variables. It returns the provider-ready
// components on success, or a structured corrective error the caller
// can self-correct from — never a hard failure.
func validateTemplateParams(tpl *provider.Template, inputs []templateParamInput) ([]provider.ParamComponent, *api.TemplateParamError) {
	required := extractVariables(tpl)

	if len(required) == 0 {
		return nil, nil
	}

	if len(inputs) == 0 {
		return nil, &api.TemplateParamError{
			Error: true,
			Message: fmt.Sprintf("template %q requires %d variable(s) but none were supplied",
				tpl.Name, len(required)),
			Required: required,
			Example:  buildExample(required),
		}
	}

	// Group provider parameters per structural component, preserving
	// the caller's order for positional substitution.
	grouped := make(map[string][]provider.Parameter)
	var order []string
	for _, in := range inputs {
		comp := strings.ToLower(in.Component)
		if comp == "" {
			comp = "body"
		}
		param := provider.Parameter{Type: "text", Text: in.Value}
		if in.ParameterName != "" {
			param.ParameterName = in.ParameterName
		}
		if _, ok := grouped[comp]; !ok {
			order = append(order, comp)
		}
		grouped[comp] = append(grouped[comp], param)
	}

	// Every required variable must be resolvable. Named and positional
	// variables are checked independently, so a mixed template accepts
	// named parameters next to bare positional ones.
	for _, v := range required {
		if satisfied(v, grouped[v.Component]) {
			continue
		}
		msg := fmt.Sprintf("template %q is missing a value for {{%s}} in its %s",
			tpl.Name, v.Key, v.Component)
		if v.Named {
			msg += fmt.Sprintf(": supply a parameter with parameter_name %q", v.Key)
		}
		return nil, &api.TemplateParamError{
			Error:    true,
			Message:  msg,
			Required: required,
			Example:  buildExample(required),
		}
	}

	components := make([]provider.ParamComponent, 0, len(order))
	for _, comp := range order {
		components = append(components, provider.ParamComponent{
			Type:       comp,
			Parameters: grouped[comp],
		})
	}

	return components, nil
}

func satisfied(v api.TemplateVariable, params []provider.Parameter) bool {
	if v.Named {
		for _, p := range params {
			if p.ParameterName == v.Key {
				return true
			}
		}
		return false
	}
	// Positional: the nth placeholder needs at least n values.
	needed := 0
	if isNumeric(v.Key) {
		needed = numericValue(v.Key)
	}
	unnamed := 0
	for _, p := range params {
		if p.ParameterName == "" {
			unnamed++
		}
	}
	return unnamed >= needed
}

func numericValue(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// buildExample produces a worked payload for the corrective error.
// Named variables carry parameter_name; positional ones must not.
func buildExample(required []api.TemplateVariable) []map[string]string {
	example := make([]map[string]string, 0, len(required))
	for i, v := range required {
		entry := map[string]string{
			"component": v.Component,
			"value":     fmt.Sprintf("example value %d", i+1),
		}
		if v.Named {
			entry["parameter_name"] = v.Key
		}
		example = append(example, entry)
	}
	return example
}

// renderPreview substitutes the resolved values back into the template
// body so the caller sees the message that will actually be sent.
func renderPreview(tpl *provider.Template, components []provider.ParamComponent) string {
	var bodyText string
	for _, comp := range tpl.Components {
		if strings.EqualFold(comp.Type, "body") {
			bodyText = comp.Text
			break
		}
	}
	if bodyText == "" {
		return ""
	}

	var bodyParams []provider.Parameter
	for _, comp := range components {
		if strings.EqualFold(comp.Type, "body") {
			bodyParams = comp.Parameters
			break
		}
	}

	var unnamed []string
	for _, p := range bodyParams {
		if p.ParameterName == "" {
			unnamed = append(unnamed, p.Text)
		}
	}

	return placeholderRe.ReplaceAllStringFunc(bodyText, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if isNumeric(key) {
			// {{n}} consumes the nth unnamed value.
			if n := numericValue(key); n >= 1 && n <= len(unnamed) {
				return unnamed[n-1]
			}
			return match
		}
		for _, p := range bodyParams {
			if p.ParameterName == key {
				return p.Text
			}
		}
		return match
	})
}
