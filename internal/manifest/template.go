package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"workflowdesk/internal/model"
)

// templateFile is the raw YAML structure of a template definition.
type templateFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	TaxFormType string      `yaml:"tax_form_type"`
	IsActive    *bool       `yaml:"is_active"`
	Stages      []stageFile `yaml:"stages"`
}

type stageFile struct {
	Name          string `yaml:"name"`
	UserTypeGroup string `yaml:"user_type_group"`
	Description   string `yaml:"description"`
}

// ReadTemplateFromFile reads a YAML template definition:
//
//	name: Individual 1040
//	tax_form_type: "1040"
//	is_active: true
//	stages:
//	  - name: Document Intake
//	    user_type_group: taxpayer
//	  - name: Preparation
//	    user_type_group: preparer
//
// is_active defaults to true when omitted.
func ReadTemplateFromFile(path string) (model.TemplateInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.TemplateInput{}, fmt.Errorf("failed to read template file: %w", err)
	}

	return ReadTemplateFromBytes(data)
}

// ReadTemplateFromBytes parses a YAML template definition.
func ReadTemplateFromBytes(data []byte) (model.TemplateInput, error) {
	var raw templateFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.TemplateInput{}, fmt.Errorf("failed to parse template file: %w", err)
	}

	if strings.TrimSpace(raw.Name) == "" {
		return model.TemplateInput{}, fmt.Errorf("template file has no name")
	}
	if len(raw.Stages) == 0 {
		return model.TemplateInput{}, fmt.Errorf("template file contains no stages")
	}

	in := model.TemplateInput{
		Name:        strings.TrimSpace(raw.Name),
		Description: raw.Description,
		TaxFormType: raw.TaxFormType,
		IsActive:    raw.IsActive == nil || *raw.IsActive,
	}
	for i, st := range raw.Stages {
		group := strings.ToLower(strings.TrimSpace(st.UserTypeGroup))
		if strings.TrimSpace(st.Name) == "" {
			return model.TemplateInput{}, fmt.Errorf("stage at index %d has no name", i)
		}
		if !slices.Contains(Groups, group) {
			return model.TemplateInput{}, fmt.Errorf("stage %q: user_type_group %q must be one of %s",
				st.Name, group, strings.Join(Groups, ", "))
		}
		in.Stages = append(in.Stages, model.StageInput{
			Name:          strings.TrimSpace(st.Name),
			UserTypeGroup: group,
			Description:   st.Description,
			Order:         i + 1,
		})
	}
	return in, nil
}

// Load reads a template definition from a YAML file or a stage sheet CSV.
//
// For a stage sheet the name, description and form type come from the
// arguments. For YAML, non-empty arguments override the file's values.
func Load(path, name, description, taxFormType string, active bool) (model.TemplateInput, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		in, err := ReadTemplateFromFile(path)
		if err != nil {
			return model.TemplateInput{}, err
		}
		if name != "" {
			in.Name = name
		}
		if description != "" {
			in.Description = description
		}
		if taxFormType != "" {
			in.TaxFormType = taxFormType
		}
		return in, nil
	default:
		sheet, err := ReadFromFile(path)
		if err != nil {
			return model.TemplateInput{}, err
		}
		return sheet.TemplateInput(name, description, taxFormType, active), nil
	}
}
