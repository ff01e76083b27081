// Package assets embeds the default prompt templates.
package assets

import "embed"

// Prompts holds prompts/*.tmpl and prompts/*.txt.
//
//go:embed prompts
var Prompts embed.FS

// Embedded file names.
const (
	CaseTemplate       = "prompts/case.tmpl"
	ClassifierTemplate = "prompts/classifier.tmpl"
	ClassifierSystem   = "prompts/classifier_system.txt"
)
