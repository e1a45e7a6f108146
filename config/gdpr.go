package config

import (
	"fmt"
)

const (
	// TCF2EnforceAlgoFull requires consent or legitimate interest for the purpose.
	TCF2EnforceAlgoFull = "full"
	// TCF2EnforceAlgoBasic requires consent for the purpose; legitimate interest is ignored.
	TCF2EnforceAlgoBasic = "basic"
	// TCF2EnforceAlgoNone never restricts for the purpose.
	TCF2EnforceAlgoNone = "none"
)

type GDPR struct {
	Enabled bool `mapstructure:"enabled"`
	// DefaultValue resolves an ambiguous gdpr signal: "1" treats the user as in scope, "0" as out of scope.
	DefaultValue string `mapstructure:"default_value"`
	TCF2         TCF2   `mapstructure:"tcf2"`
	// ActionCacheSize is the freecache size, in bytes, for per-(consent, vendor) enforcement decisions.
	// Zero disables the cache.
	ActionCacheSize int `mapstructure:"action_cache_size_bytes"`
}

func (cfg *GDPR) validate(errs []error) []error {
	if cfg.DefaultValue != "0" && cfg.DefaultValue != "1" {
		errs = append(errs, fmt.Errorf("gdpr.default_value must be 0 or 1"))
	}
	if cfg.ActionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("gdpr.action_cache_size_bytes must be >= 0. Got %d", cfg.ActionCacheSize))
	}
	return cfg.TCF2.validate(errs)
}

// TCF2 defines the enforcement algorithm for each of the ten TCF purposes.
type TCF2 struct {
	Purpose1  TCF2Purpose `mapstructure:"purpose1"`
	Purpose2  TCF2Purpose `mapstructure:"purpose2"`
	Purpose3  TCF2Purpose `mapstructure:"purpose3"`
	Purpose4  TCF2Purpose `mapstructure:"purpose4"`
	Purpose5  TCF2Purpose `mapstructure:"purpose5"`
	Purpose6  TCF2Purpose `mapstructure:"purpose6"`
	Purpose7  TCF2Purpose `mapstructure:"purpose7"`
	Purpose8  TCF2Purpose `mapstructure:"purpose8"`
	Purpose9  TCF2Purpose `mapstructure:"purpose9"`
	Purpose10 TCF2Purpose `mapstructure:"purpose10"`
}

// TCF2Purpose configures a single purpose.
type TCF2Purpose struct {
	EnforceAlgo string `mapstructure:"enforce_algo"`
}

// PurposeEnforceAlgo returns the configured algorithm for purpose id, defaulting to full when
// the purpose is unknown or unset.
func (t *TCF2) PurposeEnforceAlgo(id int) string {
	purposes := t.purposes()
	if id < 1 || id > len(purposes) || purposes[id-1].EnforceAlgo == "" {
		return TCF2EnforceAlgoFull
	}
	return purposes[id-1].EnforceAlgo
}

func (t *TCF2) purposes() []*TCF2Purpose {
	return []*TCF2Purpose{
		&t.Purpose1, &t.Purpose2, &t.Purpose3, &t.Purpose4, &t.Purpose5,
		&t.Purpose6, &t.Purpose7, &t.Purpose8, &t.Purpose9, &t.Purpose10,
	}
}

func (t *TCF2) validate(errs []error) []error {
	for i, purpose := range t.purposes() {
		switch purpose.EnforceAlgo {
		case "", TCF2EnforceAlgoFull, TCF2EnforceAlgoBasic, TCF2EnforceAlgoNone:
		default:
			errs = append(errs, fmt.Errorf("gdpr.tcf2.purpose%d.enforce_algo must be %q, %q or %q. Got %q",
				i+1, TCF2EnforceAlgoFull, TCF2EnforceAlgoBasic, TCF2EnforceAlgoNone, purpose.EnforceAlgo))
		}
	}
	return errs
}
