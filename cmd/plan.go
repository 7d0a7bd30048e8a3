package main

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// loadPlan reads a run plan from a YAML file.
func loadPlan(path string) (model.Plan, error) {
	var plan model.Plan

	data, err := os.ReadFile(path)
	if err != nil {
		return plan, eris.Wrapf(err, "read plan %s", path)
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return plan, eris.Wrapf(err, "parse plan %s", path)
	}

	return plan, validatePlan(plan)
}

func validatePlan(plan model.Plan) error {
	if len(plan.SearchTerms) == 0 {
		return eris.New("plan: at least one search term is required")
	}
	if plan.Location == "" {
		return eris.New("plan: location is required")
	}
	return nil
}
