package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

// Feed is a parsed supplier price list.
type Feed struct {
	Shop       string
	Categories []FeedCategory
	Goods      []FeedGood
}

type FeedCategory struct {
	ID   uint64
	Name string
}

// FeedGood is one listing of the price list. Parameters keep document order.
type FeedGood struct {
	ID         uint64
	Category   uint64
	Name       string
	Model      string
	Quantity   int
	Price      decimal.Decimal
	PriceRRC   decimal.Decimal
	Parameters []FeedParameter
}

type FeedParameter struct {
	Name  string
	Value string
}

// FeedProblem points at the offending entry of a rejected feed.
type FeedProblem struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

type rawFeed struct {
	Shop       string        `yaml:"shop"`
	Categories []rawCategory `yaml:"categories"`
	Goods      []rawGood     `yaml:"goods"`
}

type rawCategory struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type rawGood struct {
	ID         int64     `yaml:"id"`
	Category   int64     `yaml:"category"`
	Model      string    `yaml:"model"`
	Name       string    `yaml:"name"`
	Price      yaml.Node `yaml:"price"`
	PriceRRC   yaml.Node `yaml:"price_rrc"`
	Quantity   int       `yaml:"quantity"`
	Parameters yaml.Node `yaml:"parameters"`
}

// ParseFeed decodes and validates a YAML price list. All problems found are
// reported together on an IMPORT_FAILED error.
func ParseFeed(data []byte) (*Feed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, feedError([]FeedProblem{{Path: "$", Message: "feed is empty"}})
	}

	var raw rawFeed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeImportFailed, err, "feed is not valid yaml").
			WithDetails(map[string]any{"problems": yamlProblems(err)})
	}

	var problems []FeedProblem
	add := func(path string, line int, format string, args ...any) {
		problems = append(problems, FeedProblem{Path: path, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	feed := &Feed{Shop: strings.TrimSpace(raw.Shop)}
	if feed.Shop == "" {
		add("shop", 0, "shop name is required")
	}

	known := make(map[uint64]bool, len(raw.Categories))
	for i, c := range raw.Categories {
		path := fmt.Sprintf("categories[%d]", i)
		name := strings.TrimSpace(c.Name)
		if c.ID <= 0 {
			add(path+".id", 0, "category id must be positive")
		}
		if name == "" {
			add(path+".name", 0, "category name is required")
		}
		if c.ID > 0 {
			known[uint64(c.ID)] = true
		}
		feed.Categories = append(feed.Categories, FeedCategory{ID: uint64(c.ID), Name: name})
	}

	for i, g := range raw.Goods {
		path := fmt.Sprintf("goods[%d]", i)
		good := FeedGood{
			ID:       uint64(max(g.ID, 0)),
			Category: uint64(max(g.Category, 0)),
			Name:     strings.TrimSpace(g.Name),
			Model:    strings.TrimSpace(g.Model),
			Quantity: g.Quantity,
		}
		if g.ID <= 0 {
			add(path+".id", 0, "good id must be positive")
		}
		if good.Name == "" {
			add(path+".name", 0, "good name is required")
		}
		if !known[good.Category] {
			add(path+".category", 0, "category %d is not listed in categories", g.Category)
		}
		if g.Quantity < 0 {
			add(path+".quantity", 0, "quantity must not be negative")
		}

		price, err := parseAmount(&g.Price, true)
		if err != nil {
			add(path+".price", g.Price.Line, "%s", err)
		}
		good.Price = price
		rrc, err := parseAmount(&g.PriceRRC, false)
		if err != nil {
			add(path+".price_rrc", g.PriceRRC.Line, "%s", err)
		}
		good.PriceRRC = rrc

		params, err := parseParameters(&g.Parameters)
		if err != nil {
			add(path+".parameters", g.Parameters.Line, "%s", err)
		}
		good.Parameters = params
		feed.Goods = append(feed.Goods, good)
	}

	if len(problems) > 0 {
		return nil, feedError(problems)
	}
	return feed, nil
}

func parseAmount(node *yaml.Node, required bool) (decimal.Decimal, error) {
	if node.Kind == 0 {
		if required {
			return decimal.Zero, fmt.Errorf("value is required")
		}
		return decimal.Zero, nil
	}
	if node.Kind != yaml.ScalarNode {
		return decimal.Zero, fmt.Errorf("expected a number")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", node.Value)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return value, nil
}

// parseParameters flattens a mapping of scalar values. Numbers and booleans
// keep their literal spelling.
func parseParameters(node *yaml.Node) ([]FeedParameter, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of name: value")
	}
	out := make([]FeedParameter, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(key.Value)
		if name == "" {
			return nil, fmt.Errorf("parameter name is required")
		}
		if seen[name] {
			return nil, fmt.Errorf("parameter %q is repeated", name)
		}
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parameter %q must be a scalar", name)
		}
		seen[name] = true
		out = append(out, FeedParameter{Name: name, Value: value.Value})
	}
	return out, nil
}

func feedError(problems []FeedProblem) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeImportFailed, "feed rejected").
		WithDetails(map[string]any{"problems": problems})
}

func yamlProblems(err error) []FeedProblem {
	var typed *yaml.TypeError
	if !errors.As(err, &typed) {
		return []FeedProblem{{Path: "$", Message: err.Error()}}
	}
	out := make([]FeedProblem, 0, len(typed.Errors))
	for _, msg := range typed.Errors {
		out = append(out, FeedProblem{Path: "$", Message: msg})
	}
	return out
}
