package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template is the render source for one message kind.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Templates maps template keys to their render sources.
type Templates map[string]Template

// DefaultTemplates returns the built-in template table.
func DefaultTemplates() Templates {
	return Templates{
		TemplateApplicationReceived: {
			Subject: "We received your application",
			Body:    "Your application for {{job_title}} has been received.",
		},
		TemplateInterviewInvite: {
			Subject: "Interview scheduled",
			Body:    "Your interview for {{job_title}} is scheduled for {{interview_date}}.",
		},
		TemplateOfferExtended: {
			Subject: "You have an offer",
			Body:    "An offer for {{job_title}} is waiting for your response.",
		},
		TemplateRejected: {
			Subject: "Update on your application",
			Body:    "Your application for {{job_title}} was not successful this time.",
		},
		TemplateHired: {
			Subject: "Welcome aboard",
			Body:    "Congratulations, you are hired for {{job_title}}!",
		},
	}
}

// LoadTemplates reads a YAML template table and overlays it on the defaults,
// so deployments only override the keys they care about. An empty path
// returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}

	var overrides Templates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse template file: %w", err)
	}
	for key, tpl := range overrides {
		templates[key] = tpl
	}
	return templates, nil
}
