// Package config handles application configuration.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/ledger"
)

// PayoutSpec decodes the payout union from several YAML spellings:
// a bare number (fixed monthly amount), a percent string like "4%"
// (percent of wealth at retirement start), or an explicit mapping with
// a `fixed` or `percent` key.
type PayoutSpec struct {
	payout engine.Payout
}

// Payout returns the decoded union value.
func (ps PayoutSpec) Payout() engine.Payout { return ps.payout }

// UnmarshalYAML implements the yaml.Unmarshaler interface for PayoutSpec.
func (ps *PayoutSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return err
		}
		ps.payout = engine.FixedPayout(f)
	case "!!str":
		s := strings.TrimSpace(value.Value)
		if !strings.HasSuffix(s, "%") {
			return fmt.Errorf("cannot unmarshal string %q into PayoutSpec, expected a percent like \"4%%\"", s)
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return fmt.Errorf("cannot unmarshal %q into PayoutSpec: %w", s, err)
		}
		ps.payout = engine.PercentPayout(pct / 100)
	case "!!map":
		var m struct {
			Fixed   *float64 `yaml:"fixed"`
			Percent *float64 `yaml:"percent"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		switch {
		case m.Fixed != nil && m.Percent != nil:
			return fmt.Errorf("payout cannot be both fixed and percent")
		case m.Fixed != nil:
			ps.payout = engine.FixedPayout(*m.Fixed)
		case m.Percent != nil:
			ps.payout = engine.PercentPayout(*m.Percent)
		default:
			return fmt.Errorf("payout mapping needs a fixed or percent key")
		}
	case "!!null":
		ps.payout = engine.FixedPayout(0)
	default:
		return fmt.Errorf("cannot unmarshal %s into PayoutSpec", value.Tag)
	}
	return nil
}

// LotOrderSpec decodes the lot-selection policy from "lifo"/"fifo".
type LotOrderSpec struct {
	order ledger.LotOrder
}

// Order returns the decoded policy; the zero value is LIFO.
func (ls LotOrderSpec) Order() ledger.LotOrder { return ls.order }

// UnmarshalYAML implements the yaml.Unmarshaler interface for LotOrderSpec.
func (ls *LotOrderSpec) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "", "lifo":
		ls.order = ledger.LIFO
	case "fifo":
		ls.order = ledger.FIFO
	default:
		return fmt.Errorf("cannot unmarshal %q into LotOrderSpec, want lifo or fifo", value.Value)
	}
	return nil
}
