package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/operations"
	"solarcli/internal/operations/testutil"
)

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistry_Register(t *testing.T) {
	r := operations.NewRegistry()

	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("a", "A")))
	assert.True(t, r.Has("a"))
	assert.Equal(t, 1, r.Count())

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("", "empty")))
	assert.Error(t, r.Register(testutil.CreateSuccessfulStage("a", "again")))

	_, err := r.Get("missing")
	assert.ErrorIs(t, err, operations.ErrStepNotFound)
	assert.False(t, r.Has("missing"))
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := operations.NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage(id, id)))
	}

	assert.Equal(t, []string{"c", "a", "b"}, r.ListIDs())
	assert.Equal(t, []string{"c", "a", "b"}, stepIDs(r.List()))
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	tests := []struct {
		name  string
		steps []*testutil.MockStage
		want  []string
	}{
		{
			name: "registered in reverse",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("export", "", "analyze"),
				testutil.CreateSuccessfulStage("analyze", "", "clean"),
				testutil.CreateSuccessfulStage("clean", "", "ingest"),
				testutil.CreateSuccessfulStage("ingest", ""),
			},
			want: []string{"ingest", "clean", "analyze", "export"},
		},
		{
			name: "independent steps keep registration order",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("b", ""),
				testutil.CreateSuccessfulStage("a", ""),
				testutil.CreateSuccessfulStage("c", "", "a", "b"),
			},
			want: []string{"b", "a", "c"},
		},
		{
			name: "diamond",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("root", ""),
				testutil.CreateSuccessfulStage("right", "", "root"),
				testutil.CreateSuccessfulStage("left", "", "root"),
				testutil.CreateSuccessfulStage("join", "", "left", "right"),
			},
			want: []string{"root", "right", "left", "join"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := operations.NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, r.Register(s))
			}

			ordered, err := r.GetDependencyOrder()
			require.NoError(t, err)
			assert.Equal(t, tt.want, stepIDs(ordered))
		})
	}
}

func TestRegistry_DependencyErrors(t *testing.T) {
	t.Run("unknown dependency", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("clean", "", "ingest")))

		err := r.ValidateDependencies()
		require.Error(t, err)
		assert.Equal(t, operations.ErrorTypeDependency, operations.GetErrorType(err))
		assert.Contains(t, err.Error(), "ingest")
	})

	t.Run("cycle", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("a", "", "b")))
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("b", "", "a")))

		_, err := r.GetDependencyOrder()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}

func TestRegistry_GetDependents(t *testing.T) {
	r := operations.NewRegistry()
	for _, s := range testutil.CreateLinearPipeline() {
		require.NoError(t, r.Register(s))
	}

	assert.Equal(t, []string{operations.StepIDClean}, stepIDs(r.GetDependents(operations.StepIDIngest)))
	assert.Empty(t, r.GetDependents(operations.StepIDExport))
}
