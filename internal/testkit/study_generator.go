// Package testkit generates deterministic synthetic study datasets for
// tests: a subject-level table, an adverse-event table and a laboratory
// table with a planted treatment effect, all reproducible from a seed.
package testkit

import (
	"fmt"
	"math/rand"

	"gotlf/domain/study"
	"gotlf/domain/table"
)

// StudyGeneratorConfig configures the synthetic study generator
type StudyGeneratorConfig struct {
	Arms           []string  `json:"arms"`
	SubjectsPerArm int       `json:"subjects_per_arm"`
	AETerms        []string  `json:"ae_terms"`
	AERate         float64   `json:"ae_rate"` // per-subject per-term event probability
	Param          string    `json:"param"`
	Weeks          []float64 `json:"weeks"`
	// TreatmentShift is the true per-arm mean change added on top of the
	// reference arm, indexed like Arms.
	TreatmentShift []float64 `json:"treatment_shift"`
	Seed           int64     `json:"seed"`
}

// DefaultStudyConfig returns a small two-arm study with a planted effect
func DefaultStudyConfig() StudyGeneratorConfig {
	return StudyGeneratorConfig{
		Arms:           []string{"Placebo", "Active"},
		SubjectsPerArm: 50,
		AETerms:        []string{"HEADACHE", "NAUSEA", "DIZZINESS"},
		AERate:         0.15,
		Param:          "GLUC",
		Weeks:          []float64{0, 6, 12, 24},
		TreatmentShift: []float64{0, -1.5},
		Seed:           42,
	}
}

// StudyGenerator builds the three study datasets from one seeded source
type StudyGenerator struct {
	config StudyGeneratorConfig
	rng    *rand.Rand
}

// NewStudyGenerator creates a generator for the given config
func NewStudyGenerator(config StudyGeneratorConfig) *StudyGenerator {
	return &StudyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Study holds the generated datasets
type Study struct {
	ADSL *table.Table
	ADAE *table.Table
	ADLB *table.Table
}

// Generate produces the full synthetic study
func (g *StudyGenerator) Generate() (*Study, error) {
	adsl, subjects, arms, err := g.generateSubjects()
	if err != nil {
		return nil, err
	}
	adae, err := g.generateAdverseEvents(subjects)
	if err != nil {
		return nil, err
	}
	adlb, err := g.generateLabs(subjects, arms)
	if err != nil {
		return nil, err
	}
	return &Study{ADSL: adsl, ADAE: adae, ADLB: adlb}, nil
}

func (g *StudyGenerator) generateSubjects() (*table.Table, []string, []string, error) {
	var (
		ids, arms, sexes, races []string
		ages                    []float64
		saffl, efffl, ittfl     []string
	)
	sexLevels := []string{"F", "M"}
	raceLevels := []string{"WHITE", "BLACK OR AFRICAN AMERICAN", "ASIAN"}

	subjectNum := 0
	for _, arm := range g.config.Arms {
		for i := 0; i < g.config.SubjectsPerArm; i++ {
			subjectNum++
			ids = append(ids, fmt.Sprintf("01-%03d", subjectNum))
			arms = append(arms, arm)
			ages = append(ages, 55+float64(g.rng.Intn(30)))
			sexes = append(sexes, sexLevels[g.rng.Intn(len(sexLevels))])
			races = append(races, raceLevels[g.rng.Intn(len(raceLevels))])
			saffl = append(saffl, "Y")
			efffl = append(efffl, flag(g.rng.Float64() < 0.9))
			ittfl = append(ittfl, "Y")
		}
	}

	tbl, err := table.New(study.DatasetADSL,
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColTreatment, table.Categorical, arms),
		table.NewNumericColumn(study.ColAge, ages, nil),
		table.NewStringColumn(study.ColSex, table.Categorical, sexes),
		table.NewStringColumn(study.ColRace, table.Categorical, races),
		table.NewStringColumn(study.ColSafetyFL, table.Flag, saffl),
		table.NewStringColumn(study.ColEfficacyFL, table.Flag, efffl),
		table.NewStringColumn(study.ColITTFL, table.Flag, ittfl),
	)
	return tbl, ids, arms, err
}

func (g *StudyGenerator) generateAdverseEvents(subjects []string) (*table.Table, error) {
	var ids, terms, severities, trtem []string
	sevLevels := study.SeverityOrder

	for _, subject := range subjects {
		for _, term := range g.config.AETerms {
			if g.rng.Float64() >= g.config.AERate {
				continue
			}
			// Occasionally report the same term twice for one subject, the
			// case subject-incidence mode must collapse.
			occurrences := 1
			if g.rng.Float64() < 0.2 {
				occurrences = 2
			}
			for o := 0; o < occurrences; o++ {
				ids = append(ids, subject)
				terms = append(terms, term)
				severities = append(severities, sevLevels[g.rng.Intn(len(sevLevels))])
				trtem = append(trtem, "Y")
			}
		}
	}

	return table.New(study.DatasetADAE,
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColAETerm, table.Categorical, terms),
		table.NewStringColumn(study.ColAESeverity, table.Categorical, severities),
		table.NewStringColumn(study.ColAETrtEmerg, table.Flag, trtem),
	)
}

func (g *StudyGenerator) generateLabs(subjects, arms []string) (*table.Table, error) {
	armIndex := make(map[string]int, len(g.config.Arms))
	for i, arm := range g.config.Arms {
		armIndex[arm] = i
	}

	var (
		ids, params, trtps []string
		visits, avals      []float64
		bases              []float64
	)
	for i, subject := range subjects {
		base := 95 + 10*g.rng.NormFloat64()
		shift := g.config.TreatmentShift[armIndex[arms[i]]]
		for _, week := range g.config.Weeks {
			value := base + 2*g.rng.NormFloat64()
			if week > 0 {
				// Effect accrues over the treatment period.
				value += shift * week / g.config.Weeks[len(g.config.Weeks)-1]
			}
			ids = append(ids, subject)
			trtps = append(trtps, arms[i])
			params = append(params, g.config.Param)
			visits = append(visits, week)
			avals = append(avals, value)
			bases = append(bases, base)
		}
	}

	return table.New(study.DatasetADLB,
		table.NewStringColumn(study.ColSubjectID, table.Identifier, ids),
		table.NewStringColumn(study.ColPlanned, table.Categorical, trtps),
		table.NewStringColumn(study.ColParamCode, table.Categorical, params),
		table.NewNumericColumn(study.ColVisitNum, visits, nil),
		table.NewNumericColumn(study.ColAnalysisValue, avals, nil),
		table.NewNumericColumn(study.ColBaseline, bases, nil),
	)
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
