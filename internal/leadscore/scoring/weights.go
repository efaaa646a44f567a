package scoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// MaxDemographicFactor caps every demographic category; four of them sum to 100.
	MaxDemographicFactor = 25
	// MaxBehavioralFactor caps each reported behavioral factor.
	MaxBehavioralFactor = 20
	// MaxEngagementFactor caps meeting, proposal and referral factors.
	MaxEngagementFactor = 25
	// MaxSubScore caps behavioral and engagement totals.
	MaxSubScore = 100
)

// CategoryTable maps exact categorical values to points, with a fallback for
// anything not listed.
type CategoryTable struct {
	Values   map[string]int
	Fallback int
}

// Lookup returns the configured points for key, or the fallback.
func (t CategoryTable) Lookup(key string) int {
	if v, ok := t.Values[key]; ok {
		return v
	}
	return t.Fallback
}

func (t CategoryTable) clone() CategoryTable {
	values := make(map[string]int, len(t.Values))
	for k, v := range t.Values {
		values[k] = v
	}
	return CategoryTable{Values: values, Fallback: t.Fallback}
}

// BehavioralWeights are per-unit multipliers for analytics counts.
type BehavioralWeights struct {
	EmailOpen      float64
	EmailClick     float64
	WebsiteVisit   float64
	PageView       float64
	TimeOnSite     float64
	Download       float64
	FormSubmission float64
	SocialShare    float64
}

// EngagementWeights hold response-time tiers and per-unit multipliers.
type EngagementWeights struct {
	FastResponseHours   float64
	MediumResponseHours float64
	FastResponse        int
	MediumResponse      int
	SlowResponse        int
	Meeting             float64
	ProposalView        float64
	Referral            float64
}

// WeightTable is the static scoring configuration.
type WeightTable struct {
	JobTitle    CategoryTable
	CompanySize CategoryTable
	Industry    CategoryTable
	Location    CategoryTable
	Behavioral  BehavioralWeights
	Engagement  EngagementWeights
	// DealValue is the base deal value per company-size bucket.
	DealValue CategoryTable
}

// DefaultWeights returns the compiled-in weight table.
func DefaultWeights() WeightTable {
	return WeightTable{
		JobTitle: CategoryTable{
			Values: map[string]int{
				"CEO":      25,
				"CTO":      23,
				"CFO":      22,
				"VP":       20,
				"Director": 18,
				"Manager":  15,
				"Senior":   12,
				"Other":    8,
			},
			Fallback: 8,
		},
		CompanySize: CategoryTable{
			Values: map[string]int{
				"1000+":    25,
				"201-1000": 20,
				"51-200":   15,
				"11-50":    10,
				"1-10":     5,
			},
			Fallback: 10,
		},
		Industry: CategoryTable{
			Values: map[string]int{
				"Technology":    25,
				"Finance":       22,
				"Healthcare":    20,
				"Manufacturing": 18,
				"Retail":        15,
				"Education":     12,
				"Other":         10,
			},
			Fallback: 10,
		},
		Location: CategoryTable{
			Values: map[string]int{
				"North America": 25,
				"Europe":        22,
				"Asia":          18,
				"Oceania":       15,
				"South America": 15,
				"Africa":        12,
				"Other":         10,
			},
			Fallback: 10,
		},
		Behavioral: BehavioralWeights{
			EmailOpen:      2,
			EmailClick:     5,
			WebsiteVisit:   3,
			PageView:       1,
			TimeOnSite:     0.1,
			Download:       8,
			FormSubmission: 10,
			SocialShare:    4,
		},
		Engagement: EngagementWeights{
			FastResponseHours:   2,
			MediumResponseHours: 24,
			FastResponse:        25,
			MediumResponse:      15,
			SlowResponse:        5,
			Meeting:             10,
			ProposalView:        5,
			Referral:            15,
		},
		DealValue: CategoryTable{
			Values: map[string]int{
				"1-10":     5000,
				"11-50":    15000,
				"51-200":   35000,
				"201-1000": 75000,
				"1000+":    150000,
			},
			Fallback: 10000,
		},
	}
}

// Validate checks that the table keeps every factor inside its bounds.
func (w WeightTable) Validate() error {
	var errs []string

	demographic := map[string]CategoryTable{
		"jobTitle":    w.JobTitle,
		"companySize": w.CompanySize,
		"industry":    w.Industry,
		"location":    w.Location,
	}
	for name, table := range demographic {
		if table.Fallback < 0 || table.Fallback > MaxDemographicFactor {
			errs = append(errs, fmt.Sprintf("%s fallback must be within 0..%d", name, MaxDemographicFactor))
		}
		for key, v := range table.Values {
			if v < 0 || v > MaxDemographicFactor {
				errs = append(errs, fmt.Sprintf("%s[%q] must be within 0..%d", name, key, MaxDemographicFactor))
			}
		}
	}

	b := w.Behavioral
	for name, v := range map[string]float64{
		"emailOpen": b.EmailOpen, "emailClick": b.EmailClick, "websiteVisit": b.WebsiteVisit,
		"pageView": b.PageView, "timeOnSite": b.TimeOnSite, "download": b.Download,
		"formSubmission": b.FormSubmission, "socialShare": b.SocialShare,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("behavioral.%s must be >= 0", name))
		}
	}

	e := w.Engagement
	if e.FastResponseHours <= 0 || e.MediumResponseHours <= e.FastResponseHours {
		errs = append(errs, "engagement response thresholds must satisfy 0 < fast < medium")
	}
	if e.FastResponse < 0 || e.MediumResponse < 0 || e.SlowResponse < 0 {
		errs = append(errs, "engagement response tiers must be >= 0")
	}
	if e.Meeting < 0 || e.ProposalView < 0 || e.Referral < 0 {
		errs = append(errs, "engagement weights must be >= 0")
	}

	if w.DealValue.Fallback < 0 {
		errs = append(errs, "dealValue fallback must be >= 0")
	}
	for key, v := range w.DealValue.Values {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("dealValue[%q] must be >= 0", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid weight table: %s", strings.Join(errs, "; "))
	}
	return nil
}

// categoryFile is the YAML shape of a category override.
type categoryFile struct {
	Values   map[string]int `yaml:"values"`
	Fallback *int           `yaml:"fallback"`
}

type weightsFile struct {
	JobTitle    *categoryFile      `yaml:"jobTitle"`
	CompanySize *categoryFile      `yaml:"companySize"`
	Industry    *categoryFile      `yaml:"industry"`
	Location    *categoryFile      `yaml:"location"`
	DealValue   *categoryFile      `yaml:"dealValue"`
	Behavioral  map[string]float64 `yaml:"behavioral"`
	Engagement  map[string]float64 `yaml:"engagement"`
}

// LoadWeights returns the default table with overrides from a YAML file
// applied. An empty path yields the defaults.
func LoadWeights(path string) (WeightTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultWeights(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return WeightTable{}, fmt.Errorf("read weights file: %w", err)
	}
	return ParseWeights(data)
}

// ParseWeights applies YAML overrides on top of DefaultWeights.
func ParseWeights(data []byte) (WeightTable, error) {
	var file weightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return WeightTable{}, fmt.Errorf("parse weights file: %w", err)
	}

	w := DefaultWeights()
	w.JobTitle = mergeCategory(w.JobTitle, file.JobTitle)
	w.CompanySize = mergeCategory(w.CompanySize, file.CompanySize)
	w.Industry = mergeCategory(w.Industry, file.Industry)
	w.Location = mergeCategory(w.Location, file.Location)
	w.DealValue = mergeCategory(w.DealValue, file.DealValue)

	if err := mergeBehavioral(&w.Behavioral, file.Behavioral); err != nil {
		return WeightTable{}, err
	}
	if err := mergeEngagement(&w.Engagement, file.Engagement); err != nil {
		return WeightTable{}, err
	}

	if err := w.Validate(); err != nil {
		return WeightTable{}, err
	}
	return w, nil
}

func mergeCategory(base CategoryTable, override *categoryFile) CategoryTable {
	if override == nil {
		return base
	}
	merged := base.clone()
	for k, v := range override.Values {
		merged.Values[k] = v
	}
	if override.Fallback != nil {
		merged.Fallback = *override.Fallback
	}
	return merged
}

func mergeBehavioral(b *BehavioralWeights, values map[string]float64) error {
	fields := map[string]*float64{
		"emailOpen":      &b.EmailOpen,
		"emailClick":     &b.EmailClick,
		"websiteVisit":   &b.WebsiteVisit,
		"pageView":       &b.PageView,
		"timeOnSite":     &b.TimeOnSite,
		"download":       &b.Download,
		"formSubmission": &b.FormSubmission,
		"socialShare":    &b.SocialShare,
	}
	for key, v := range values {
		field, ok := fields[key]
		if !ok {
			return fmt.Errorf("unknown behavioral weight %q", key)
		}
		*field = v
	}
	return nil
}

func mergeEngagement(e *EngagementWeights, values map[string]float64) error {
	floats := map[string]*float64{
		"fastResponseHours":   &e.FastResponseHours,
		"mediumResponseHours": &e.MediumResponseHours,
		"meeting":             &e.Meeting,
		"proposalView":        &e.ProposalView,
		"referral":            &e.Referral,
	}
	tiers := map[string]*int{
		"fastResponse":   &e.FastResponse,
		"mediumResponse": &e.MediumResponse,
		"slowResponse":   &e.SlowResponse,
	}
	for key, v := range values {
		if field, ok := floats[key]; ok {
			*field = v
			continue
		}
		if field, ok := tiers[key]; ok {
			*field = int(v)
			continue
		}
		return fmt.Errorf("unknown engagement weight %q", key)
	}
	return nil
}
