package normalize

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Mapping names the raw field that carries each unified attribute for one
// source. After normalization this table is the only source-specific
// knowledge in the pipeline.
type Mapping struct {
	Service        string `yaml:"service"`
	ResourceType   string `yaml:"resource_type"`
	ResourceID     string `yaml:"resource_id"`
	Region         string `yaml:"region"`
	ActionType     string `yaml:"action_type"`
	MonthlySavings string `yaml:"monthly_savings"`
	Confidence     string `yaml:"confidence"`
	Effort         string `yaml:"effort"`
	Title          string `yaml:"title"`
	Category       string `yaml:"category"`
	Steps          string `yaml:"steps"`
	Risks          string `yaml:"risks"`
	Permissions    string `yaml:"permissions"`
}

// defaultMappings covers the three known source schemas.
func defaultMappings() map[recommend.SourceTag]Mapping {
	return map[recommend.SourceTag]Mapping{
		recommend.SourceHub: {
			Service:        "service",
			ResourceType:   "resourceType",
			ResourceID:     "resourceId",
			Region:         "region",
			ActionType:     "action",
			MonthlySavings: "estimatedMonthlySavings",
			Confidence:     "confidence",
			Effort:         "effort",
			Title:          "title",
			Category:       "category",
			Steps:          "implementationSteps",
			Risks:          "risks",
			Permissions:    "requiredPermissions",
		},
		recommend.SourceCostAnalysis: {
			Service:        "service_name",
			ResourceType:   "resource_type",
			ResourceID:     "resource_id",
			Region:         "location",
			ActionType:     "recommended_action",
			MonthlySavings: "savings_per_month",
			Confidence:     "confidence_level",
			Effort:         "implementation_effort",
			Title:          "display_name",
			Category:       "cost_category",
			Steps:          "action_items",
			Risks:          "risk_factors",
			Permissions:    "iam_permissions",
		},
		recommend.SourceCommitmentPlans: {
			Service:        "product",
			ResourceType:   "planType",
			ResourceID:     "planId",
			Region:         "regionCode",
			ActionType:     "commitmentAction",
			MonthlySavings: "monthlySavingsEstimate",
			Confidence:     "savingsConfidence",
			Effort:         "migrationEffort",
			Title:          "planName",
			Category:       "commitmentCategory",
			Steps:          "purchaseSteps",
			Risks:          "commitmentRisks",
			Permissions:    "billingPermissions",
		},
	}
}

// LoadOverrides merges mapping overrides from a YAML file keyed by source
// tag, so a renamed raw field can be accommodated without a rebuild.
// Only non-empty entries override the defaults.
func (n *Normalizer) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfigError("normalize", "failed to read mapping file", err)
	}

	var overrides map[recommend.SourceTag]Mapping
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return errors.NewConfigError("normalize", "failed to parse mapping file", err)
	}

	for tag, override := range overrides {
		base := n.mappings[tag]
		mergeMapping(&base, override)
		n.mappings[tag] = base
	}
	return nil
}

func mergeMapping(base *Mapping, override Mapping) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&base.Service, override.Service)
	set(&base.ResourceType, override.ResourceType)
	set(&base.ResourceID, override.ResourceID)
	set(&base.Region, override.Region)
	set(&base.ActionType, override.ActionType)
	set(&base.MonthlySavings, override.MonthlySavings)
	set(&base.Confidence, override.Confidence)
	set(&base.Effort, override.Effort)
	set(&base.Title, override.Title)
	set(&base.Category, override.Category)
	set(&base.Steps, override.Steps)
	set(&base.Risks, override.Risks)
	set(&base.Permissions, override.Permissions)
}
