// Package catalog loads the questionnaire configuration document and
// normalizes its historical shapes into one flat question list.
package catalog

import (
	"strings"

	"traflow/internal/model"
)

// Catalog is the in-memory question catalog. Loaded once at process start
// and treated as immutable; consumers receive it by injection.
type Catalog struct {
	QualifyingQuestions []model.QuestionRecord
	Questions           []model.QuestionRecord // all risk-area questions, catalog order
	RiskAreas           []model.RiskArea       // declaration order

	byID     map[string]*model.QuestionRecord
	byArea   map[string][]model.QuestionRecord
	areaByID map[string]model.RiskArea
}

func (c *Catalog) index() {
	c.byID = make(map[string]*model.QuestionRecord)
	c.byArea = make(map[string][]model.QuestionRecord)
	c.areaByID = make(map[string]model.RiskArea)
	for i := range c.Questions {
		q := &c.Questions[i]
		c.byID[q.ID] = q
		c.byArea[q.RiskArea] = append(c.byArea[q.RiskArea], *q)
	}
	for i := range c.QualifyingQuestions {
		q := &c.QualifyingQuestions[i]
		if _, ok := c.byID[q.ID]; !ok {
			c.byID[q.ID] = q
		}
	}
	for _, ra := range c.RiskAreas {
		c.areaByID[ra.ID] = ra
	}
}

// Question returns a question by id from either list
func (c *Catalog) Question(id string) (model.QuestionRecord, bool) {
	q, ok := c.byID[id]
	if !ok {
		return model.QuestionRecord{}, false
	}
	return *q, true
}

// QualifyingQuestion returns a qualifying question by id
func (c *Catalog) QualifyingQuestion(id string) (model.QuestionRecord, bool) {
	for _, q := range c.QualifyingQuestions {
		if q.ID == id {
			return q, true
		}
	}
	return model.QuestionRecord{}, false
}

// AreaQuestions returns the ordered questions owned by a risk area
func (c *Catalog) AreaQuestions(areaID string) []model.QuestionRecord {
	return c.byArea[areaID]
}

// Area returns a risk area by id
func (c *Catalog) Area(id string) (model.RiskArea, bool) {
	ra, ok := c.areaByID[id]
	return ra, ok
}

// AreaName returns the display name for an area id, falling back to the id
func (c *Catalog) AreaName(id string) string {
	if ra, ok := c.areaByID[id]; ok {
		return ra.Name
	}
	return id
}

// areaSynonyms maps legacy qualifying trigger names that do not literally
// match their risk-area display name.
var areaSynonyms = map[string]string{
	"artificial intelligence": "AI Risk",
	"intellectual property":   "IP Risk",
}

// ResolveAreaID maps free-form user or trigger text to a risk-area id.
// Fallback order: exact id, exact name, documented synonyms, then
// best-effort substring match. The substring step can mis-resolve when one
// area's name is a substring of another's; callers that accept free text
// restrict the input before using it.
func (c *Catalog) ResolveAreaID(text string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return "", false
	}
	if _, ok := c.areaByID[needle]; ok {
		return needle, true
	}
	for _, ra := range c.RiskAreas {
		name := strings.ToLower(ra.Name)
		if needle == name || needle+" risk" == name {
			return ra.ID, true
		}
	}
	if syn, ok := areaSynonyms[needle]; ok {
		for _, ra := range c.RiskAreas {
			if ra.Name == syn {
				return ra.ID, true
			}
		}
	}
	for _, ra := range c.RiskAreas {
		name := strings.ToLower(ra.Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) ||
			strings.Contains(needle, ra.ID) || strings.Contains(ra.ID, needle) {
			return ra.ID, true
		}
	}
	return "", false
}
