package app

import (
	"context"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/domain/study"
	"gotlf/domain/table"
	"gotlf/internal/baseline"
	"gotlf/internal/efficacy"
	"gotlf/internal/population"
	"gotlf/internal/safety"
	"gotlf/ports"
)

// StudyData holds the datasets for one report run, loaded once and treated
// as read-only by every output unit.
type StudyData struct {
	ADSL *table.Table
	ADAE *table.Table
	ADLB *table.Table
}

// LoadStudy loads and schema-validates the three study datasets
func LoadStudy(reader ports.DatasetReader) (*StudyData, error) {
	adsl, err := reader.Load(study.DatasetADSL, study.ADSLSchema())
	if err != nil {
		return nil, err
	}
	adae, err := reader.Load(study.DatasetADAE, study.ADAESchema())
	if err != nil {
		return nil, err
	}
	adlb, err := reader.Load(study.DatasetADLB, study.ADLBSchema())
	if err != nil {
		return nil, err
	}
	return &StudyData{ADSL: adsl, ADAE: adae, ADLB: adlb}, nil
}

// EndpointSpec identifies the primary efficacy endpoint of the report
type EndpointSpec struct {
	Param        string  // PARAMCD, e.g. "GLUC"
	EndpointWeek float64 // analysis visit of the primary endpoint
	ReferenceArm string  // contrast reference, e.g. "Placebo"
	ConfLevel    float64 // 0 means the documented default (0.95)
}

// StandardOutputs builds the report catalog: the population, baseline,
// safety and efficacy tables a study report generates. Each output is
// independent; the runner isolates their failures.
func StandardOutputs(data *StudyData, endpoint EndpointSpec) []Output {
	return []Output{
		{Name: "population_counts", Produce: func(ctx context.Context) (*result.Table, error) {
			pop, err := population.Apply(data.ADSL, population.Safety())
			if err != nil {
				return nil, err
			}
			return population.CountByTreatment(data.ADSL, pop)
		}},
		{Name: "demographics_continuous", Produce: func(ctx context.Context) (*result.Table, error) {
			safetySet, err := safetyPopulation(data.ADSL)
			if err != nil {
				return nil, err
			}
			return baseline.SummarizeContinuous(safetySet, []string{study.ColAge}, baseline.Options{})
		}},
		{Name: "demographics_categorical", Produce: func(ctx context.Context) (*result.Table, error) {
			safetySet, err := safetyPopulation(data.ADSL)
			if err != nil {
				return nil, err
			}
			covs := []string{study.ColSex}
			if safetySet.HasColumn(study.ColRace) {
				covs = append(covs, study.ColRace)
			}
			return baseline.SummarizeCategorical(safetySet, covs, baseline.Options{})
		}},
		{Name: "ae_subject_incidence", Produce: func(ctx context.Context) (*result.Table, error) {
			safetySet, err := safetyPopulation(data.ADSL)
			if err != nil {
				return nil, err
			}
			return safety.SubjectIncidence(data.ADAE, safetySet, safety.Options{TreatmentEmergentOnly: true})
		}},
		{Name: "ae_incidence_by_severity", Produce: func(ctx context.Context) (*result.Table, error) {
			safetySet, err := safetyPopulation(data.ADSL)
			if err != nil {
				return nil, err
			}
			return safety.SubjectIncidence(data.ADAE, safetySet, safety.Options{
				BySeverity:            true,
				TreatmentEmergentOnly: true,
			})
		}},
		{Name: "ae_event_counts", Produce: func(ctx context.Context) (*result.Table, error) {
			safetySet, err := safetyPopulation(data.ADSL)
			if err != nil {
				return nil, err
			}
			return safety.EventCounts(data.ADAE, safetySet, safety.Options{TreatmentEmergentOnly: true})
		}},
		{Name: "efficacy_descriptives", Produce: func(ctx context.Context) (*result.Table, error) {
			locf, err := endpointData(data, endpoint)
			if err != nil {
				return nil, err
			}
			return efficacy.EndpointDescriptives(locf, nil)
		}},
		ancovaOutput(data, endpoint),
	}
}

// ancovaOutput fits the primary endpoint model. The contrasts are exposed
// to the runner so the archive keeps them with their model context, not
// just the flattened table.
func ancovaOutput(data *StudyData, endpoint EndpointSpec) Output {
	var contrasts []result.EffectEstimate
	return Output{
		Name: "efficacy_ancova",
		Produce: func(ctx context.Context) (*result.Table, error) {
			locf, err := endpointData(data, endpoint)
			if err != nil {
				return nil, err
			}
			fit, err := efficacy.Fit(locf, efficacy.ModelSpec{
				Endpoint:     efficacy.ColChange,
				Treatment:    study.ColPlanned,
				Covariates:   []string{study.ColBaseline},
				ReferenceArm: endpoint.ReferenceArm,
				ConfLevel:    endpoint.ConfLevel,
			})
			if err != nil {
				return nil, err
			}
			contrasts = fit.Contrasts
			return result.EffectTable("efficacy_ancova", fit.LSMeans, fit.Contrasts), nil
		},
		Estimates: func() []result.EffectEstimate { return contrasts },
	}
}

func safetyPopulation(adsl *table.Table) (*table.Table, error) {
	pop, err := population.Apply(adsl, population.Safety())
	if err != nil {
		return nil, err
	}
	return pop.Filter(adsl)
}

func endpointData(data *StudyData, endpoint EndpointSpec) (*table.Table, error) {
	pop, err := population.Apply(data.ADSL, population.Efficacy())
	if err != nil {
		return nil, err
	}
	if pop.Size() == 0 {
		return nil, core.NewEmptyPopulationError(pop.Definition, "")
	}
	efficacySet, err := pop.Filter(data.ADSL)
	if err != nil {
		return nil, err
	}
	return efficacy.PrepareLOCF(data.ADLB, efficacySet, efficacy.LOCFSpec{
		Param:        endpoint.Param,
		EndpointWeek: endpoint.EndpointWeek,
	})
}
