package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// RuleInput represents data required to create a category rule.
type RuleInput struct {
	Application string
	URL         string
	Title       string
	Category    string
	Label       string
}

type ruleFile struct {
	Rules []model.CategoryRule `yaml:"rules"`
}

// RuleService manages categorization rules.
type RuleService struct {
	repo     *repository.CategoryRepository
	validate *validator.Validate
}

func NewRuleService(repo *repository.CategoryRepository) *RuleService {
	return &RuleService{repo: repo, validate: validator.New()}
}

func (s *RuleService) List(ctx context.Context) ([]model.CategoryRule, error) {
	return s.repo.ListRules(ctx)
}

func (s *RuleService) Categories(ctx context.Context) ([]model.ActivityCategoryRecord, error) {
	return s.repo.ListCategories(ctx)
}

// Create stores a rule. Unknown categories are created as custom categories.
func (s *RuleService) Create(ctx context.Context, input RuleInput) (*model.CategoryRule, error) {
	rule := model.CategoryRule{
		ApplicationNamePattern: optional(input.Application),
		URLPattern:             optional(input.URL),
		WindowTitlePattern:     optional(input.Title),
		CategoryID:             strings.ToLower(strings.TrimSpace(input.Category)),
	}
	if err := s.check(rule); err != nil {
		return nil, err
	}
	category, err := s.repo.GetOrCreate(ctx, rule.CategoryID, input.Label)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, &rule); err != nil {
		return nil, err
	}
	rule.Category = *category
	return &rule, nil
}

func (s *RuleService) Delete(ctx context.Context, id uint) error {
	return s.repo.DeleteRule(ctx, id)
}

// Import reads rules from YAML of the form
//
//	rules:
//	  - application: Xcode
//	    category: productive
//	  - url: youtube.com
//	    category: distracting
//
// and stores them all or none. Returns the number of rules imported.
func (s *RuleService) Import(ctx context.Context, data []byte) (int, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse rules: %w", err)
	}
	for i := range file.Rules {
		rule := &file.Rules[i]
		rule.CategoryID = strings.ToLower(strings.TrimSpace(rule.CategoryID))
		if err := s.check(*rule); err != nil {
			return 0, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if _, err := s.repo.GetOrCreate(ctx, rule.CategoryID, ""); err != nil {
			return 0, err
		}
	}
	if err := s.repo.CreateRules(ctx, file.Rules); err != nil {
		return 0, err
	}
	return len(file.Rules), nil
}

func (s *RuleService) check(rule model.CategoryRule) error {
	if err := s.validate.Struct(rule); err != nil {
		return fmt.Errorf("validate rule: %w", err)
	}
	if !rule.HasPattern() {
		return fmt.Errorf("rule needs an application, url or title pattern")
	}
	return nil
}
