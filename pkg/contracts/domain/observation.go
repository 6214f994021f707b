package domain

import (
	"fmt"
	"math"
	"strings"
)

// Group identifies the rehabilitation protocol arm a subject was randomized to.
type Group string

const (
	GroupControl Group = "CONTROL"
	GroupNMES    Group = "NMES"
)

// Timepoint identifies the assessment occasion within the repeated-measures design.
type Timepoint string

const (
	TimePre  Timepoint = "Pre"
	TimePost Timepoint = "Post"
)

// DisplayLabel returns the lower-case label used on figure axes.
// Storage keeps the capitalized form; plots use pre/post.
func (t Timepoint) DisplayLabel() string {
	return strings.ToLower(string(t))
}

// Order returns the position of the timepoint in the ordered factor (Pre < Post).
func (t Timepoint) Order() int {
	if t == TimePost {
		return 1
	}
	return 0
}

// Sex is the recorded biological sex of a subject.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Handedness is the recorded hand dominance of a subject.
type Handedness string

const (
	HandRight Handedness = "R"
	HandLeft  Handedness = "L"
)

// Observation is one row of the study table: a single subject assessed at a
// single timepoint. Numeric fields that were blank in the workbook are NaN;
// categorical fields that were blank are the empty string.
type Observation struct {
	Subject    string     `json:"subject" csv:"Subject"`
	Group      Group      `json:"group" csv:"Group"`
	Time       Timepoint  `json:"time" csv:"Time"`
	Age        float64    `json:"age" csv:"Age"`
	Sex        Sex        `json:"sex" csv:"Sex"`
	Education  float64    `json:"education" csv:"Education"`
	BMI        float64    `json:"bmi" csv:"BMI"`
	Handedness Handedness `json:"handedness" csv:"Handedness"`

	// Mobility outcomes
	SixMWT    float64 `json:"six_mwt" csv:"SixMWT"`       // 6-minute walk distance (m)
	FiveXSTS  float64 `json:"five_x_sts" csv:"FiveXSTS"`  // 5x sit-to-stand time (s)
	Tinetti   float64 `json:"tinetti" csv:"Tinetti"`      // Tinetti balance score
	TUGDT     float64 `json:"tug_dt" csv:"TUGDT"`         // timed up-and-go, dual task (s)

	// Cognitive outcomes
	SRT          float64 `json:"srt" csv:"SRT"`                    // simple reaction time (ms)
	Accuracy     float64 `json:"accuracy" csv:"Accuracy"`          // response accuracy (%)
	GNGRT        float64 `json:"gng_rt" csv:"GNGRT"`               // go/no-go reaction time (ms)
	SwitchErrors float64 `json:"switch_errors" csv:"SwitchErrors"` // task-switching errors

	// Acceptability questionnaire, each dimension rated 1-5
	AffectiveAttitude      float64 `json:"affective_attitude" csv:"AffectiveAttitude"`
	Burden                 float64 `json:"burden" csv:"Burden"`
	Ethicality             float64 `json:"ethicality" csv:"Ethicality"`
	InterventionCoherence  float64 `json:"intervention_coherence" csv:"InterventionCoherence"`
	OpportunityCost        float64 `json:"opportunity_cost" csv:"OpportunityCost"`
	PerceivedEffectiveness float64 `json:"perceived_effectiveness" csv:"PerceivedEffectiveness"`
	SelfEfficacy           float64 `json:"self_efficacy" csv:"SelfEfficacy"`
	GeneralAcceptability   float64 `json:"general_acceptability" csv:"GeneralAcceptability"`
	Acceptability          float64 `json:"acceptability" csv:"Acceptability"` // mean of the eight dimensions
}

// ObservationTable is the in-memory study dataset, one Observation per
// subject per timepoint. It is loaded once and only relabeled in place;
// rows are never created or deleted after load.
type ObservationTable struct {
	Rows []Observation `json:"rows"`
}

// NumericColumns lists every numeric column in workbook order. Preprocessing
// and export iterate this registry rather than hard-coding column names.
var NumericColumns = []string{
	"Age", "Education", "BMI",
	"SixMWT", "FiveXSTS", "Tinetti", "TUGDT",
	"SRT", "Accuracy", "GNGRT", "SwitchErrors",
	"AffectiveAttitude", "Burden", "Ethicality", "InterventionCoherence",
	"OpportunityCost", "PerceivedEffectiveness", "SelfEfficacy",
	"GeneralAcceptability", "Acceptability",
}

// CategoricalColumns lists the factor columns.
var CategoricalColumns = []string{"Subject", "Group", "Time", "Sex", "Handedness"}

// AcceptabilityDimensions lists the eight questionnaire sub-scores in the
// order they appear on the radar chart.
var AcceptabilityDimensions = []string{
	"AffectiveAttitude", "Burden", "Ethicality", "InterventionCoherence",
	"OpportunityCost", "PerceivedEffectiveness", "SelfEfficacy",
	"GeneralAcceptability",
}

// MobilityOutcomes lists the outcomes rendered as per-outcome time bar charts.
var MobilityOutcomes = []string{"SixMWT", "FiveXSTS", "Tinetti", "TUGDT"}

// NumericValue returns the named numeric column of the observation.
// Unknown columns return an error rather than a silent zero.
func (o *Observation) NumericValue(column string) (float64, error) {
	switch column {
	case "Age":
		return o.Age, nil
	case "Education":
		return o.Education, nil
	case "BMI":
		return o.BMI, nil
	case "SixMWT":
		return o.SixMWT, nil
	case "FiveXSTS":
		return o.FiveXSTS, nil
	case "Tinetti":
		return o.Tinetti, nil
	case "TUGDT":
		return o.TUGDT, nil
	case "SRT":
		return o.SRT, nil
	case "Accuracy":
		return o.Accuracy, nil
	case "GNGRT":
		return o.GNGRT, nil
	case "SwitchErrors":
		return o.SwitchErrors, nil
	case "AffectiveAttitude":
		return o.AffectiveAttitude, nil
	case "Burden":
		return o.Burden, nil
	case "Ethicality":
		return o.Ethicality, nil
	case "InterventionCoherence":
		return o.InterventionCoherence, nil
	case "OpportunityCost":
		return o.OpportunityCost, nil
	case "PerceivedEffectiveness":
		return o.PerceivedEffectiveness, nil
	case "SelfEfficacy":
		return o.SelfEfficacy, nil
	case "GeneralAcceptability":
		return o.GeneralAcceptability, nil
	case "Acceptability":
		return o.Acceptability, nil
	}
	return math.NaN(), fmt.Errorf("unknown numeric column: %s", column)
}

// CategoricalValue returns the named factor column of the observation.
func (o *Observation) CategoricalValue(column string) (string, error) {
	switch column {
	case "Subject":
		return o.Subject, nil
	case "Group":
		return string(o.Group), nil
	case "Time":
		return string(o.Time), nil
	case "Sex":
		return string(o.Sex), nil
	case "Handedness":
		return string(o.Handedness), nil
	}
	return "", fmt.Errorf("unknown categorical column: %s", column)
}

// Column extracts a numeric column across all rows, preserving row order.
// Missing cells come back as NaN.
func (t *ObservationTable) Column(name string) ([]float64, error) {
	values := make([]float64, len(t.Rows))
	for i := range t.Rows {
		v, err := t.Rows[i].NumericValue(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// FilterTime returns the rows observed at the given timepoint.
func (t *ObservationTable) FilterTime(tp Timepoint) []Observation {
	var rows []Observation
	for _, row := range t.Rows {
		if row.Time == tp {
			rows = append(rows, row)
		}
	}
	return rows
}

// FilterGroup returns the rows belonging to the given protocol arm.
func (t *ObservationTable) FilterGroup(g Group) []Observation {
	var rows []Observation
	for _, row := range t.Rows {
		if row.Group == g {
			rows = append(rows, row)
		}
	}
	return rows
}

// Subjects returns the distinct subject identifiers in first-seen order.
func (t *ObservationTable) Subjects() []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, row := range t.Rows {
		if !seen[row.Subject] {
			seen[row.Subject] = true
			subjects = append(subjects, row.Subject)
		}
	}
	return subjects
}

// ParseGroup normalizes a workbook cell into a Group level.
func ParseGroup(s string) (Group, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONTROL", "CON", "CTRL", "0":
		return GroupControl, nil
	case "NMES", "STIM", "1":
		return GroupNMES, nil
	}
	return "", fmt.Errorf("unknown group level: %q", s)
}

// ParseTimepoint normalizes a workbook cell into a Timepoint level.
// The source workbook mixes Pre/pre and Post/post; storage is canonical.
func ParseTimepoint(s string) (Timepoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pre", "t0", "baseline":
		return TimePre, nil
	case "post", "t1":
		return TimePost, nil
	}
	return "", fmt.Errorf("unknown time level: %q", s)
}

// ParseSex normalizes a workbook cell into a Sex level. Blank stays blank.
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return SexMale, nil
	case "F", "FEMALE":
		return SexFemale, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown sex level: %q", s)
}

// ParseHandedness normalizes a workbook cell into a Handedness level.
// Blank stays blank.
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "R", "RIGHT":
		return HandRight, nil
	case "L", "LEFT":
		return HandLeft, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown handedness level: %q", s)
}
