package config

import (
	"fmt"
	"os"

	"github.com/dvloznov/finance-ledger/internal/ledger"
	"gopkg.in/yaml.v3"
)

// Rules is the YAML rules file.
//
//	categories: [Groceries, Rent, Salary]
//	savings_categories: [savings, goal]
type Rules struct {
	Categories        []string `yaml:"categories"`
	SavingsCategories []string `yaml:"savings_categories"`
}

// LoadRules reads a rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return &rules, nil
}

// LedgerRules converts the file into the ledger service's rules.
func (r Rules) LedgerRules() ledger.Rules {
	return ledger.Rules{
		Categories:        r.Categories,
		SavingsCategories: r.SavingsCategories,
	}
}
