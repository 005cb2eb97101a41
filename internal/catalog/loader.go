package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"traflow/internal/model"
)

// rawQuestion is a catalog question as written in the YAML document, before
// normalization. response_type is the older field name for type.
type rawQuestion struct {
	ID            string               `yaml:"id"`
	Level         string               `yaml:"level"`
	Question      string               `yaml:"question"`
	Type          string               `yaml:"type"`
	ResponseType  string               `yaml:"response_type"`
	Required      *bool                `yaml:"required"`
	HelpText      string               `yaml:"help_text"`
	Options       []model.Option       `yaml:"options"`
	DependsOn     *model.DependsOn     `yaml:"depends_on"`
	Conditions    []model.Condition    `yaml:"conditions"`
	OnYes         *model.SkipDirective `yaml:"on_yes"`
	OnNo          *model.SkipDirective `yaml:"on_no"`
	ShowQuestions []string             `yaml:"show_questions"`
}

type rawArea struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Questions   []rawQuestion `yaml:"questions"`
}

// rawDocument tolerates both historical catalog shapes: risk_areas as a map
// of id -> area (newer) or as a list of areas with embedded ids (older).
type rawDocument struct {
	QualifyingQuestions []rawQuestion `yaml:"qualifying_questions"`
	RiskAreas           yaml.Node     `yaml:"risk_areas"`
}

// Load parses and normalizes the catalog document at path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse normalizes a catalog document from raw bytes
func Parse(data []byte) (*Catalog, error) {
	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	areas, err := decodeAreas(&doc.RiskAreas)
	if err != nil {
		return nil, err
	}

	c := &Catalog{}
	for _, rq := range doc.QualifyingQuestions {
		c.QualifyingQuestions = append(c.QualifyingQuestions, normalizeQuestion(rq, model.QualifyingAreaID))
	}
	for _, area := range areas {
		c.RiskAreas = append(c.RiskAreas, model.RiskArea{
			ID:          area.ID,
			Name:        area.Name,
			Description: area.Description,
		})
		for _, rq := range area.Questions {
			c.Questions = append(c.Questions, normalizeQuestion(rq, area.ID))
		}
	}

	seen := make(map[string]string)
	for _, q := range c.Questions {
		if owner, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %s declared in both %s and %s", q.ID, owner, q.RiskArea)
		}
		seen[q.ID] = q.RiskArea
	}

	c.index()
	return c, nil
}

func decodeAreas(node *yaml.Node) ([]rawArea, error) {
	if node == nil || node.Kind == 0 {
		return nil, nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		// Newer shape: id -> area body. Mapping order is preserved.
		var areas []rawArea
		for i := 0; i+1 < len(node.Content); i += 2 {
			var area rawArea
			if err := node.Content[i+1].Decode(&area); err != nil {
				return nil, fmt.Errorf("parse risk area %q: %w", node.Content[i].Value, err)
			}
			area.ID = node.Content[i].Value
			if area.Name == "" {
				area.Name = area.ID
			}
			areas = append(areas, area)
		}
		return areas, nil
	case yaml.SequenceNode:
		// Older shape: list of areas carrying their own ids.
		var areas []rawArea
		if err := node.Decode(&areas); err != nil {
			return nil, fmt.Errorf("parse risk areas: %w", err)
		}
		for i := range areas {
			if areas[i].Name == "" {
				areas[i].Name = areas[i].ID
			}
		}
		return areas, nil
	}
	return nil, fmt.Errorf("risk_areas must be a map or a list")
}

var responseTypes = map[string]model.AnswerType{
	"Yes/No":      model.AnswerTypeSelect,
	"free-text":   model.AnswerTypeText,
	"text":        model.AnswerTypeText,
	"textarea":    model.AnswerTypeTextarea,
	"select":      model.AnswerTypeSelect,
	"multiselect": model.AnswerTypeMultiSelect,
}

func normalizeQuestion(rq rawQuestion, areaID string) model.QuestionRecord {
	q := model.QuestionRecord{
		ID:            rq.ID,
		RiskArea:      areaID,
		Level:         rq.Level,
		Text:          rq.Question,
		Required:      true,
		HelpText:      rq.HelpText,
		Options:       rq.Options,
		DependsOn:     rq.DependsOn,
		Conditions:    rq.Conditions,
		OnYes:         rq.OnYes,
		OnNo:          rq.OnNo,
		ShowQuestions: rq.ShowQuestions,
	}
	if rq.Required != nil {
		q.Required = *rq.Required
	}

	typ := rq.Type
	if rq.ResponseType != "" {
		typ = rq.ResponseType
	}
	if mapped, ok := responseTypes[typ]; ok {
		q.Type = mapped
	} else if typ != "" {
		q.Type = model.AnswerType(typ)
	} else {
		q.Type = model.AnswerTypeText
	}

	// Yes/No questions get implicit options when the document omits them
	if rq.ResponseType == "Yes/No" && len(q.Options) == 0 {
		q.Options = []model.Option{
			{Label: "Yes", Value: "Yes"},
			{Label: "No", Value: "No"},
		}
	}
	return q
}
