// Package manifest reads workflow template definitions authored as files.
//
// A stage sheet is a CSV file listing a template's stages in pipeline order:
//
//	name,user_type_group,description
//	Document Intake,taxpayer,Client uploads W-2s and 1099s
//	Preparation,preparer,
//	Review,admin,Partner sign-off
//	E-File,preparer,
//
// Row order becomes stage order. The description column is optional.
//
// A template file is YAML carrying the whole definition, see [ReadTemplateFromFile].
// [Load] picks the reader from the file extension.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"workflowdesk/internal/model"
)

// StageSheet holds the stages parsed from a stage sheet CSV.
type StageSheet struct {
	// Stages are in pipeline order, with Order numbered from 1.
	Stages []model.StageInput
}

// ReadFromFile reads and parses a stage sheet CSV file.
func ReadFromFile(path string) (*StageSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stage sheet: %w", err)
	}
	defer f.Close()

	return readFromReader(f)
}

// ReadFromString parses a stage sheet from a CSV string.
func ReadFromString(data string) (*StageSheet, error) {
	return readFromReader(strings.NewReader(data))
}

func readFromReader(r io.Reader) (*StageSheet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read stage sheet header: %w", err)
	}

	colIndex := buildColumnIndex(header)
	if err := validateColumns(colIndex); err != nil {
		return nil, err
	}

	var stages []model.StageInput
	lineNum := 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stage sheet line %d: %w", lineNum, err)
		}
		if isBlank(record) {
			continue
		}

		stage := model.StageInput{
			Name:          getField(record, colIndex, "name"),
			UserTypeGroup: strings.ToLower(getField(record, colIndex, "user_type_group")),
			Description:   getField(record, colIndex, "description"),
			Order:         len(stages) + 1,
		}

		if stage.Name == "" {
			return nil, fmt.Errorf("stage sheet line %d: stage name is required", lineNum)
		}
		if !slices.Contains(Groups, stage.UserTypeGroup) {
			return nil, fmt.Errorf("stage sheet line %d: user_type_group %q must be one of %s",
				lineNum, stage.UserTypeGroup, strings.Join(Groups, ", "))
		}

		stages = append(stages, stage)
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("stage sheet contains no stages")
	}

	return &StageSheet{Stages: stages}, nil
}

// Groups are the accepted user_type_group values.
var Groups = []string{model.GroupTaxpayer, model.GroupPreparer, model.GroupAdmin, model.GroupOther}

var requiredColumns = []string{"name", "user_type_group"}

func buildColumnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	return index
}

func validateColumns(colIndex map[string]int) error {
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return fmt.Errorf("stage sheet missing required column: %s", col)
		}
	}
	return nil
}

func getField(record []string, colIndex map[string]int, column string) string {
	idx, ok := colIndex[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Names returns the stage names in order.
func (s *StageSheet) Names() []string {
	names := make([]string, len(s.Stages))
	for i, st := range s.Stages {
		names[i] = st.Name
	}
	return names
}

// TemplateInput builds a create/update payload around the sheet's stages.
func (s *StageSheet) TemplateInput(name, description, taxFormType string, active bool) model.TemplateInput {
	return model.TemplateInput{
		Name:        name,
		Description: description,
		TaxFormType: taxFormType,
		IsActive:    active,
		Stages:      slices.Clone(s.Stages),
	}
}
