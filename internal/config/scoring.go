package config

import "math"

// WeightTolerance is the allowed deviation of a weight group's sum from 1.0
const WeightTolerance = 1e-6

// WeightEntry is one named weight inside a group
type WeightEntry struct {
	Name   string
	Weight float64
}

func sumEntries(entries []WeightEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Weight
	}
	return total
}

// WeightsSumToOne reports whether the group sums to 1.0 within WeightTolerance
func WeightsSumToOne(entries []WeightEntry) bool {
	return math.Abs(sumEntries(entries)-1.0) <= WeightTolerance
}

// ScoringConfig groups every policy constant the scorers read.
// It is loaded once per process and passed by value into scorer constructors.
type ScoringConfig struct {
	Legacy LegacyConfig `mapstructure:"legacy" yaml:"legacy"`
	CBI    CBIConfig    `mapstructure:"cbi" yaml:"cbi"`
}

// LegacyWeights are the five fixed legacy factor weights
type LegacyWeights struct {
	Workload         float64 `mapstructure:"workload" yaml:"workload"`
	AfterHours       float64 `mapstructure:"after_hours" yaml:"after_hours"`
	Weekend          float64 `mapstructure:"weekend" yaml:"weekend"`
	SeverityLoad     float64 `mapstructure:"severity_load" yaml:"severity_load"`
	ResponsePressure float64 `mapstructure:"response_pressure" yaml:"response_pressure"`
}

// Entries returns the weights in scoring order
func (w LegacyWeights) Entries() []WeightEntry {
	return []WeightEntry{
		{"workload", w.Workload},
		{"after_hours", w.AfterHours},
		{"weekend", w.Weekend},
		{"severity_load", w.SeverityLoad},
		{"response_pressure", w.ResponsePressure},
	}
}

// LegacyConfig holds the 0-10 heuristic's weights and saturation thresholds
type LegacyConfig struct {
	Weights LegacyWeights `mapstructure:"weights" yaml:"weights"`

	// Saturation scales: the raw value at which a factor reaches ~63% of its range
	WorkloadPerWeek      float64            `mapstructure:"workload_per_week" yaml:"workload_per_week"`
	AfterHoursRatio      float64            `mapstructure:"after_hours_ratio" yaml:"after_hours_ratio"`
	WeekendRatio         float64            `mapstructure:"weekend_ratio" yaml:"weekend_ratio"`
	SeverityLoadPerWeek  float64            `mapstructure:"severity_load_per_week" yaml:"severity_load_per_week"`
	ResponseDecayMinutes float64            `mapstructure:"response_decay_minutes" yaml:"response_decay_minutes"`
	SeverityWeights      map[string]float64 `mapstructure:"severity_weights" yaml:"severity_weights"`

	MediumThreshold float64 `mapstructure:"medium_threshold" yaml:"medium_threshold"`
	HighThreshold   float64 `mapstructure:"high_threshold" yaml:"high_threshold"`

	// Normalized factor value above which a factor counts as elevated
	ElevatedFactor float64 `mapstructure:"elevated_factor" yaml:"elevated_factor"`
}

// PersonalWeights are the CBI personal burnout factor weights
type PersonalWeights struct {
	WorkHoursTrend     float64 `mapstructure:"work_hours_trend" yaml:"work_hours_trend"`
	WeekendWork        float64 `mapstructure:"weekend_work" yaml:"weekend_work"`
	AfterHoursActivity float64 `mapstructure:"after_hours_activity" yaml:"after_hours_activity"`
	VacationUsage      float64 `mapstructure:"vacation_usage" yaml:"vacation_usage"`
	SleepQualityProxy  float64 `mapstructure:"sleep_quality_proxy" yaml:"sleep_quality_proxy"`
}

// Entries returns the weights in scoring order
func (w PersonalWeights) Entries() []WeightEntry {
	return []WeightEntry{
		{"work_hours_trend", w.WorkHoursTrend},
		{"weekend_work", w.WeekendWork},
		{"after_hours_activity", w.AfterHoursActivity},
		{"vacation_usage", w.VacationUsage},
		{"sleep_quality_proxy", w.SleepQualityProxy},
	}
}

// WorkWeights are the CBI work-related burnout factor weights
type WorkWeights struct {
	CadencePressure     float64 `mapstructure:"cadence_pressure" yaml:"cadence_pressure"`
	ReviewSpeedPressure float64 `mapstructure:"review_speed_pressure" yaml:"review_speed_pressure"`
	PRFrequency         float64 `mapstructure:"pr_frequency" yaml:"pr_frequency"`
	DeploymentFrequency float64 `mapstructure:"deployment_frequency" yaml:"deployment_frequency"`
	MeetingLoad         float64 `mapstructure:"meeting_load" yaml:"meeting_load"`
	OnCallBurden        float64 `mapstructure:"on_call_burden" yaml:"on_call_burden"`
}

// Entries returns the weights in scoring order
func (w WorkWeights) Entries() []WeightEntry {
	return []WeightEntry{
		{"cadence_pressure", w.CadencePressure},
		{"review_speed_pressure", w.ReviewSpeedPressure},
		{"pr_frequency", w.PRFrequency},
		{"deployment_frequency", w.DeploymentFrequency},
		{"meeting_load", w.MeetingLoad},
		{"on_call_burden", w.OnCallBurden},
	}
}

// CompositeWeights blend the two CBI sub-scores
type CompositeWeights struct {
	Personal float64 `mapstructure:"personal" yaml:"personal"`
	Work     float64 `mapstructure:"work" yaml:"work"`
}

// Entries returns the weights in scoring order
func (w CompositeWeights) Entries() []WeightEntry {
	return []WeightEntry{
		{"personal", w.Personal},
		{"work", w.Work},
	}
}

// CBIConfig holds the composite index weights, bands and factor scales
type CBIConfig struct {
	Personal  PersonalWeights  `mapstructure:"personal" yaml:"personal"`
	Work      WorkWeights      `mapstructure:"work" yaml:"work"`
	Composite CompositeWeights `mapstructure:"composite" yaml:"composite"`

	// Interpretation bands; a score equal to a bound belongs to the higher band
	MildThreshold     float64 `mapstructure:"mild_threshold" yaml:"mild_threshold"`
	ModerateThreshold float64 `mapstructure:"moderate_threshold" yaml:"moderate_threshold"`
	HighThreshold     float64 `mapstructure:"high_threshold" yaml:"high_threshold"`

	// Risk level thresholds on the composite score
	RiskMediumThreshold float64 `mapstructure:"risk_medium_threshold" yaml:"risk_medium_threshold"`
	RiskHighThreshold   float64 `mapstructure:"risk_high_threshold" yaml:"risk_high_threshold"`

	// Factor scales
	OnCallLoadPerWeek    float64 `mapstructure:"on_call_load_per_week" yaml:"on_call_load_per_week"`
	ResponseDecayMinutes float64 `mapstructure:"response_decay_minutes" yaml:"response_decay_minutes"`
	PRsPerWeek           float64 `mapstructure:"prs_per_week" yaml:"prs_per_week"`
	DeploysPerWeek       float64 `mapstructure:"deploys_per_week" yaml:"deploys_per_week"`
	MessagesPerDay       float64 `mapstructure:"messages_per_day" yaml:"messages_per_day"`
	ReviewDecayHours     float64 `mapstructure:"review_decay_hours" yaml:"review_decay_hours"`
	RestDayTarget        float64 `mapstructure:"rest_day_target" yaml:"rest_day_target"`

	// Component value above which a factor counts as elevated
	ElevatedComponent float64 `mapstructure:"elevated_component" yaml:"elevated_component"`
}

// NormalizerConfig holds the local-time boundaries used when bucketing activity
type NormalizerConfig struct {
	AfterHoursStart  int    `mapstructure:"after_hours_start" yaml:"after_hours_start"` // local hour, inclusive
	AfterHoursEnd    int    `mapstructure:"after_hours_end" yaml:"after_hours_end"`     // local hour, exclusive
	NightStart       int    `mapstructure:"night_start" yaml:"night_start"`
	NightEnd         int    `mapstructure:"night_end" yaml:"night_end"`
	LargeChangeLines int    `mapstructure:"large_change_lines" yaml:"large_change_lines"`
	DefaultTimezone  string `mapstructure:"default_timezone" yaml:"default_timezone"`
	WindowDays       int    `mapstructure:"window_days" yaml:"window_days"`
}

// TeamConfig controls team aggregation
type TeamConfig struct {
	PatternMinFraction float64 `mapstructure:"pattern_min_fraction" yaml:"pattern_min_fraction"`
	PatternMinMembers  int     `mapstructure:"pattern_min_members" yaml:"pattern_min_members"`
	MaxPatterns        int     `mapstructure:"max_patterns" yaml:"max_patterns"`
}

// DefaultScoring returns the documented default policy
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Legacy: LegacyConfig{
			Weights: LegacyWeights{
				Workload:         0.25,
				AfterHours:       0.25,
				Weekend:          0.15,
				SeverityLoad:     0.15,
				ResponsePressure: 0.20,
			},
			WorkloadPerWeek:      2.0,
			AfterHoursRatio:      0.3,
			WeekendRatio:         0.3,
			SeverityLoadPerWeek:  6.0,
			ResponseDecayMinutes: 15.0,
			SeverityWeights: map[string]float64{
				"critical": 4,
				"high":     3,
				"medium":   2,
				"low":      1,
				"unknown":  1,
			},
			MediumThreshold: 4.0,
			HighThreshold:   7.0,
			ElevatedFactor:  0.6,
		},
		CBI: CBIConfig{
			Personal: PersonalWeights{
				WorkHoursTrend:     0.20,
				WeekendWork:        0.20,
				AfterHoursActivity: 0.25,
				VacationUsage:      0.15,
				SleepQualityProxy:  0.20,
			},
			Work: WorkWeights{
				CadencePressure:     0.15,
				ReviewSpeedPressure: 0.10,
				PRFrequency:         0.10,
				DeploymentFrequency: 0.10,
				MeetingLoad:         0.15,
				OnCallBurden:        0.40,
			},
			Composite: CompositeWeights{
				Personal: 0.5,
				Work:     0.5,
			},
			MildThreshold:        25,
			ModerateThreshold:    50,
			HighThreshold:        75,
			RiskMediumThreshold:  50,
			RiskHighThreshold:    75,
			OnCallLoadPerWeek:    5.0,
			ResponseDecayMinutes: 15.0,
			PRsPerWeek:           5.0,
			DeploysPerWeek:       3.0,
			MessagesPerDay:       40.0,
			ReviewDecayHours:     24.0,
			RestDayTarget:        0.3,
			ElevatedComponent:    60,
		},
	}
}

// DefaultNormalizer returns the default time boundaries (22:00-08:00 after hours, UTC)
func DefaultNormalizer() NormalizerConfig {
	return NormalizerConfig{
		AfterHoursStart:  22,
		AfterHoursEnd:    8,
		NightStart:       22,
		NightEnd:         6,
		LargeChangeLines: 500,
		DefaultTimezone:  "UTC",
		WindowDays:       30,
	}
}

// DefaultTeam returns default aggregation settings
func DefaultTeam() TeamConfig {
	return TeamConfig{
		PatternMinFraction: 0.3,
		PatternMinMembers:  2,
		MaxPatterns:        5,
	}
}

// Clone returns a deep copy so scorers can hold a private, read-only copy
func (s ScoringConfig) Clone() ScoringConfig {
	out := s
	if s.Legacy.SeverityWeights != nil {
		out.Legacy.SeverityWeights = make(map[string]float64, len(s.Legacy.SeverityWeights))
		for k, v := range s.Legacy.SeverityWeights {
			out.Legacy.SeverityWeights[k] = v
		}
	}
	return out
}
