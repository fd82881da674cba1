package quest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProjectDocument is the result of loading one project config: the
// project metadata plus its quest definitions.
type ProjectDocument struct {
	Project Project
	Quests  []*Definition
}

type projectSection struct {
	ID              string `toml:"id"`
	Name            string `toml:"name"`
	Description     string `toml:"description"`
	GraphQLEndpoint string `toml:"graphqlEndpoint"`
}

type conditionSection struct {
	Field              string `toml:"field"`
	ItemConditionField string `toml:"itemConditionField"`
	Operator           string `toml:"operator"`
	Value              any    `toml:"value"`
}

type sequenceSection struct {
	Field          string `toml:"field"`
	SequenceLength int    `toml:"sequenceLength"`
}

type validatorSection struct {
	Module   string         `toml:"module"`
	Function string         `toml:"function"`
	Params   map[string]any `toml:"params"`
}

type questSection struct {
	ID                string             `toml:"id"`
	Title             string             `toml:"title"`
	Description       string             `toml:"description"`
	Reward            int                `toml:"reward"`
	Type              string             `toml:"type"`
	Query             string             `toml:"query"`
	StartDate         string             `toml:"startDate"`
	EndDate           string             `toml:"endDate"`
	Conditions        []conditionSection `toml:"conditions"`
	SequenceCondition *sequenceSection   `toml:"sequenceCondition"`
	Validator         *validatorSection  `toml:"validator"`
	Variables         []map[string]any   `toml:"variables"`
}

type projectFile struct {
	Project *projectSection `toml:"project"`
	Quest   []questSection  `toml:"quest"`
}

var typeWithParams = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// ParseProject parses a TOML project document of the form
// {[project], [[quest]]...} and fails loudly on missing required
// fields and unknown quest-type or operator tokens.
func ParseProject(data []byte) (*ProjectDocument, error) {
	var file projectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if file.Project == nil {
		return nil, fmt.Errorf("%w: missing \"project\" section", ErrConfig)
	}
	if len(file.Quest) == 0 {
		return nil, fmt.Errorf("%w: missing \"quest\" list", ErrConfig)
	}

	project, err := mapProject(file.Project)
	if err != nil {
		return nil, err
	}

	quests := make([]*Definition, 0, len(file.Quest))
	for _, q := range file.Quest {
		def, err := mapQuest(q, project.ID)
		if err != nil {
			return nil, err
		}
		quests = append(quests, def)
	}

	return &ProjectDocument{Project: project, Quests: quests}, nil
}

func mapProject(p *projectSection) (Project, error) {
	required := map[string]string{
		"id":              p.ID,
		"name":            p.Name,
		"description":     p.Description,
		"graphqlEndpoint": p.GraphQLEndpoint,
	}
	for _, field := range []string{"id", "name", "description", "graphqlEndpoint"} {
		if required[field] == "" {
			return Project{}, fmt.Errorf("%w: missing required project field %q", ErrConfig, field)
		}
	}

	return Project{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		QueryEndpoint: p.GraphQLEndpoint,
	}, nil
}

func mapQuest(q questSection, projectID string) (*Definition, error) {
	switch {
	case q.ID == "":
		return nil, fmt.Errorf("%w: quest missing required field \"id\"", ErrConfig)
	case q.Title == "":
		return nil, questFieldErr(q.ID, "title")
	case q.Description == "":
		return nil, questFieldErr(q.ID, "description")
	case q.Reward <= 0:
		return nil, questFieldErr(q.ID, "reward")
	case q.Type == "":
		return nil, questFieldErr(q.ID, "type")
	case strings.TrimSpace(q.Query) == "":
		return nil, questFieldErr(q.ID, "query")
	}

	baseType, params, err := parseTypeWithParams(q.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: quest %q: %v", ErrConfig, q.ID, err)
	}

	def := &Definition{
		ID:          q.ID,
		ProjectID:   projectID,
		Title:       q.Title,
		Description: q.Description,
		Reward:      q.Reward,
		Type:        baseType,
		TypeParams:  params,
		Query:       strings.TrimSpace(q.Query),
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		Variables:   q.Variables,
	}

	for _, c := range q.Conditions {
		if !KnownOperator(c.Operator) {
			return nil, fmt.Errorf("%w: quest %q: unknown operator %q", ErrConfig, q.ID, c.Operator)
		}
		def.Conditions = append(def.Conditions, Condition{
			Field:              c.Field,
			ItemConditionField: c.ItemConditionField,
			Operator:           c.Operator,
			Value:              c.Value,
		})
	}

	if q.SequenceCondition != nil {
		def.SequenceCondition = &SequenceCondition{
			Field:          q.SequenceCondition.Field,
			SequenceLength: q.SequenceCondition.SequenceLength,
		}
	}

	switch baseType {
	case TypeConditional, TypeProgress:
		if len(def.Conditions) == 0 {
			return nil, fmt.Errorf("%w: quest %q: %s quests require at least one condition", ErrConfig, q.ID, baseType)
		}
	case TypeSequential:
		if len(def.Conditions) == 0 {
			return nil, fmt.Errorf("%w: quest %q: sequential quests require at least one condition", ErrConfig, q.ID)
		}
		if def.SequenceCondition == nil || def.SequenceCondition.SequenceLength <= 0 {
			return nil, fmt.Errorf("%w: quest %q: sequential quests require a sequenceCondition", ErrConfig, q.ID)
		}
	case TypeCustom:
		def.Validator = mapValidator(q.Validator, projectID, q.ID)
	default:
		return nil, fmt.Errorf("%w: quest %q: unknown quest type %q", ErrConfig, q.ID, baseType)
	}

	return def, nil
}

// mapValidator fills in the registry lookup key for a custom quest.
// Without an explicit [quest.validator] table the reference defaults to
// the (project id, quest id) convention with function "validate".
func mapValidator(v *validatorSection, projectID, questID string) *ValidatorRef {
	ref := &ValidatorRef{Module: projectID, Function: questID}
	if v != nil {
		if v.Module != "" {
			ref.Module = v.Module
		}
		if v.Function != "" {
			ref.Function = v.Function
		}
		ref.Params = v.Params
	}
	return ref
}

func questFieldErr(questID, field string) error {
	return fmt.Errorf("%w: quest %q: missing required field %q", ErrConfig, questID, field)
}

// parseTypeWithParams splits "custom(100000000, 'daily', true)" into
// the bare type tag and its parameter list. Each parameter parses, in
// order, as a boolean literal, then a number, then a quote-stripped
// string.
func parseTypeWithParams(typeString string) (string, []any, error) {
	match := typeWithParams.FindStringSubmatch(typeString)
	if match == nil {
		return "", nil, fmt.Errorf("invalid type format: %s", typeString)
	}

	baseType := match[1]
	if match[2] == "" {
		return baseType, nil, nil
	}

	var params []any
	for _, raw := range strings.Split(match[2], ",") {
		params = append(params, parseTypeParam(strings.TrimSpace(raw)))
	}
	return baseType, params, nil
}

func parseTypeParam(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return strings.Trim(raw, `"'`)
}
