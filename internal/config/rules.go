package config

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/axiomwire/ratelimitd/pkg/rules"
)

// ruleDocument mirrors the original service's hardcoded DEFAULT_RATE_LIMIT_RULES
// shape, expressed as the JSON contract for RATELIMIT_RULES_JSON:
//
//	{
//	  "default": {"rate": 100, "window": 60},
//	  "client_a": {
//	    "rate": 100, "window": 60,
//	    "endpoints": {"login": {"rate": 20, "window": 60}}
//	  }
//	}
type ruleDocument struct {
	Rate      int64                   `json:"rate"`
	Window    int64                   `json:"window"`
	Endpoints map[string]ruleDocument `json:"endpoints,omitempty"`
}

// ParseRules decodes RATELIMIT_RULES_JSON into a default rule plus a
// per-client rule map ready for rules.NewResolver / rules.Resolver.Replace.
func ParseRules(data []byte) (rules.Rule, map[string]rules.Rule, error) {
	var doc map[string]ruleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return rules.Rule{}, nil, errors.Wrap(err, "parsing RATELIMIT_RULES_JSON")
	}

	def, ok := doc["default"]
	if !ok {
		return rules.Rule{}, nil, errors.New("RATELIMIT_RULES_JSON must define a \"default\" rule")
	}
	if def.Rate <= 0 || def.Window <= 0 {
		return rules.Rule{}, nil, errors.New("default rule must have positive rate and window")
	}

	byClient := make(map[string]rules.Rule, len(doc)-1)
	for clientID, rd := range doc {
		if clientID == "default" {
			continue
		}
		rule, err := rd.toRule()
		if err != nil {
			return rules.Rule{}, nil, errors.Wrapf(err, "client %q", clientID)
		}
		byClient[clientID] = rule
	}

	defRule, err := def.toRule()
	if err != nil {
		return rules.Rule{}, nil, errors.Wrap(err, "default rule")
	}

	return defRule, byClient, nil
}

func (rd ruleDocument) toRule() (rules.Rule, error) {
	if rd.Rate <= 0 || rd.Window <= 0 {
		return rules.Rule{}, errors.New("rate and window must be positive")
	}
	rule := rules.Rule{
		Rate:   rd.Rate,
		Window: time.Duration(rd.Window) * time.Second,
	}
	if len(rd.Endpoints) > 0 {
		rule.Endpoints = make(map[string]rules.EndpointRule, len(rd.Endpoints))
		for name, ep := range rd.Endpoints {
			if ep.Rate <= 0 || ep.Window <= 0 {
				return rules.Rule{}, errors.Errorf("endpoint %q: rate and window must be positive", name)
			}
			rule.Endpoints[name] = rules.EndpointRule{
				Rate:   ep.Rate,
				Window: time.Duration(ep.Window) * time.Second,
			}
		}
	}
	return rule, nil
}

// DefaultRules is the out-of-the-box rule set, matching the original
// service's hardcoded DEFAULT_RATE_LIMIT_RULES.
func DefaultRules() (rules.Rule, map[string]rules.Rule) {
	def := rules.Rule{Rate: 100, Window: 60 * time.Second}
	byClient := map[string]rules.Rule{
		"client_a": {
			Rate:   100,
			Window: 60 * time.Second,
			Endpoints: map[string]rules.EndpointRule{
				"login":    {Rate: 20, Window: 60 * time.Second},
				"register": {Rate: 10, Window: 60 * time.Second},
			},
		},
		"client_b": {Rate: 50, Window: 60 * time.Second},
	}
	return def, byClient
}
