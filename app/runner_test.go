package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/internal/testkit"
	"gotlf/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okOutput(name string) Output {
	return Output{Name: name, Produce: func(ctx context.Context) (*result.Table, error) {
		t := result.NewTable(name, "arm")
		t.Append([]string{"Placebo"}, "n", result.Number(1))
		return t, nil
	}}
}

func TestRun_FailureIsolation(t *testing.T) {
	boom := errors.New("dataset exploded")
	outputs := []Output{
		okOutput("first"),
		{Name: "second", Produce: func(ctx context.Context) (*result.Table, error) {
			return nil, boom
		}},
		okOutput("third"),
	}

	report := NewRunner(2, nil).Run(context.Background(), outputs)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, report.Failed())

	// Results stay in input order regardless of completion order.
	assert.Equal(t, "first", report.Results[0].Name)
	assert.Equal(t, "second", report.Results[1].Name)
	assert.Equal(t, "third", report.Results[2].Name)

	assert.NoError(t, report.Results[0].Err)
	assert.NotNil(t, report.Results[0].Table)
	assert.ErrorIs(t, report.Results[1].Err, boom)
	assert.Nil(t, report.Results[1].Table)
	assert.NoError(t, report.Results[2].Err)
	assert.NotNil(t, report.Results[2].Table)
}

func TestRun_PanicIsolatedToOneOutput(t *testing.T) {
	outputs := []Output{
		{Name: "broken", Produce: func(ctx context.Context) (*result.Table, error) {
			panic("index out of range")
		}},
		okOutput("steady"),
	}

	report := NewRunner(1, nil).Run(context.Background(), outputs)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Failed())
	assert.ErrorContains(t, report.Results[0].Err, "panicked")
	assert.NoError(t, report.Results[1].Err)
}

func TestRun_EmptyBatch(t *testing.T) {
	report := NewRunner(4, nil).Run(context.Background(), nil)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Failed())
	assert.NotEmpty(t, report.RunID)
}

type recordingStore struct {
	mu        sync.Mutex
	run       *ports.RunRecord
	tables    []string
	estimates map[string]int
	fail      bool
}

func (s *recordingStore) SaveRun(ctx context.Context, run ports.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("archive unavailable")
	}
	s.run = &run
	return nil
}

func (s *recordingStore) SaveTable(ctx context.Context, runID core.RunID, output string, t *result.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, output)
	return nil
}

func (s *recordingStore) SaveEstimates(ctx context.Context, runID core.RunID, output string, estimates []result.EffectEstimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.estimates == nil {
		s.estimates = make(map[string]int)
	}
	s.estimates[output] += len(estimates)
	return nil
}

func TestRun_ArchivesSuccessfulOutputsOnly(t *testing.T) {
	store := &recordingStore{}
	outputs := []Output{
		okOutput("kept"),
		{Name: "dropped", Produce: func(ctx context.Context) (*result.Table, error) {
			return nil, errors.New("no data")
		}},
	}

	report := NewRunner(2, store).Run(context.Background(), outputs)

	require.NotNil(t, store.run)
	assert.Equal(t, report.RunID, store.run.ID)
	assert.Equal(t, 2, store.run.Outputs)
	assert.Equal(t, 1, store.run.Failed)
	assert.Equal(t, []string{"kept"}, store.tables)
}

func TestRun_ArchivesEstimates(t *testing.T) {
	store := &recordingStore{}
	est := result.EffectEstimate{
		Contrast: "Active vs. Placebo", Estimate: -1.5, StdErr: 0.4,
		CILower: -2.3, CIUpper: -0.7, TStat: -3.75, PValue: 0.001,
		DF: 97, ConfLevel: 0.95, Model: "CHG ~ TRTP + BASE (ref=Placebo)",
	}
	out := Output{
		Name: "model",
		Produce: func(ctx context.Context) (*result.Table, error) {
			return result.EffectTable("model", nil, []result.EffectEstimate{est}), nil
		},
		Estimates: func() []result.EffectEstimate { return []result.EffectEstimate{est} },
	}

	report := NewRunner(1, store).Run(context.Background(), []Output{out})

	require.Equal(t, 0, report.Failed())
	assert.Equal(t, 1, store.estimates["model"])
}

func TestRun_ArchiveFailureDoesNotFailOutputs(t *testing.T) {
	store := &recordingStore{fail: true}

	report := NewRunner(1, store).Run(context.Background(), []Output{okOutput("only")})

	assert.Equal(t, 0, report.Failed())
	assert.NoError(t, report.Results[0].Err)
}

func TestStandardOutputs_FullReport(t *testing.T) {
	gen := testkit.NewStudyGenerator(testkit.DefaultStudyConfig())
	synth, err := gen.Generate()
	require.NoError(t, err)

	data := &StudyData{ADSL: synth.ADSL, ADAE: synth.ADAE, ADLB: synth.ADLB}
	outputs := StandardOutputs(data, EndpointSpec{
		Param:        "GLUC",
		EndpointWeek: 24,
		ReferenceArm: "Placebo",
	})
	require.Len(t, outputs, 8)

	report := NewRunner(4, nil).Run(context.Background(), outputs)
	for _, res := range report.Results {
		assert.NoError(t, res.Err, "output %s", res.Name)
		assert.NotNil(t, res.Table, "output %s", res.Name)
	}
	assert.Equal(t, 0, report.Failed())

	byName := make(map[string]*result.Table, len(report.Results))
	for _, res := range report.Results {
		byName[res.Name] = res.Table
		if res.Name == "efficacy_ancova" {
			assert.Len(t, res.Estimates, 1)
		}
	}

	popN, ok := byName["population_counts"].Get([]string{"Placebo"}, "n")
	require.True(t, ok)
	assert.Equal(t, 50.0, popN.Num, "the generator marks every subject safety-evaluable")

	ancova := byName["efficacy_ancova"]
	var contrasts int
	for _, row := range ancova.Rows {
		if row.Groups[0] == "contrast" && row.Statistic == "estimate" {
			contrasts++
			assert.Less(t, row.Value.Num, 0.0, "the planted effect lowers the active arm")
		}
	}
	assert.Equal(t, 1, contrasts)
}

func TestStandardOutputs_DeterministicAcrossRuns(t *testing.T) {
	produce := func() *result.Table {
		gen := testkit.NewStudyGenerator(testkit.DefaultStudyConfig())
		synth, err := gen.Generate()
		require.NoError(t, err)
		data := &StudyData{ADSL: synth.ADSL, ADAE: synth.ADAE, ADLB: synth.ADLB}
		outputs := StandardOutputs(data, EndpointSpec{Param: "GLUC", EndpointWeek: 24, ReferenceArm: "Placebo"})
		report := NewRunner(1, nil).Run(context.Background(), outputs)
		require.Equal(t, 0, report.Failed())
		for _, res := range report.Results {
			if res.Name == "efficacy_ancova" {
				return res.Table
			}
		}
		t.Fatal("efficacy_ancova missing from the report")
		return nil
	}

	assert.Equal(t, produce().Rows, produce().Rows)
}
