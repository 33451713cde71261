package partitions

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/notargets/ROMKernel/integrand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBuildPartitions(t *testing.T) {
	tests := []struct {
		name     string
		points   int
		target   int
		strategy PartitionStrategy
		wantP    int
		wantMax  int
		first    []int
	}{
		{"block even", 12, 4, BlockPartition, 3, 4, []int{0, 1, 2, 3}},
		{"block ragged", 10, 4, BlockPartition, 3, 4, []int{0, 1, 2, 3}},
		{"round robin", 10, 4, RoundRobin, 3, 4, []int{0, 3, 6, 9}},
		{"single", 3, 8, BlockPartition, 1, 3, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := &PartitionBuilder{NumPoints: tt.points, TargetPartitionSize: tt.target, Strategy: tt.strategy}
			layout, err := pb.BuildPartitions()
			require.NoError(t, err)
			assert.Equal(t, tt.wantP, layout.NumPartitions)
			assert.Equal(t, tt.wantMax, layout.KpartMax)
			assert.Equal(t, tt.first, layout.Partitions[0].Points)
			assert.NoError(t, layout.ValidateLayout())

			seen := make([]bool, tt.points)
			for _, p := range layout.Partitions {
				for _, k := range p.Points {
					assert.False(t, seen[k], "point %d assigned twice", k)
					seen[k] = true
					assert.Equal(t, p.ID, layout.GetPartition(k))
				}
			}
			for k, ok := range seen {
				assert.True(t, ok, "point %d unassigned", k)
			}
		})
	}
}

func TestBuildPartitionsErrors(t *testing.T) {
	_, err := (&PartitionBuilder{NumPoints: 0, TargetPartitionSize: 2}).BuildPartitions()
	assert.True(t, errors.Is(err, ErrInvalidLayout))
	_, err = (&PartitionBuilder{NumPoints: 4, TargetPartitionSize: 0}).BuildPartitions()
	assert.True(t, errors.Is(err, ErrInvalidLayout))
	_, err = (&PartitionBuilder{NumPoints: 4, TargetPartitionSize: 2, Strategy: 7}).BuildPartitions()
	assert.True(t, errors.Is(err, ErrInvalidLayout))

	layout, err := (&PartitionBuilder{NumPoints: 5, TargetPartitionSize: 2}).BuildPartitions()
	require.NoError(t, err)
	layout.Partitions[1].MaxPoints = 1
	assert.True(t, errors.Is(layout.ValidateLayout(), ErrInvalidLayout))
	assert.Equal(t, -1, layout.GetPartition(5))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("round_robin")
	require.NoError(t, err)
	assert.Equal(t, RoundRobin, s)
	assert.Equal(t, "round_robin", s.String())
	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, BlockPartition, s)
	_, err = ParseStrategy("metis")
	assert.Error(t, err)
}

func TestPartitionStatistics(t *testing.T) {
	layout, err := (&PartitionBuilder{NumPoints: 10, TargetPartitionSize: 4}).BuildPartitions()
	require.NoError(t, err)
	stats := layout.PartitionStatistics()
	assert.Equal(t, 3, stats.NumPartitions)
	assert.Equal(t, 2, stats.MinPoints)
	assert.Equal(t, 4, stats.MaxPoints)
	assert.InDelta(t, 10.0/3, stats.AvgPoints, 1e-12)
	assert.InDelta(t, 1.2, stats.Imbalance, 1e-12)
}

func TestPartitionedArray(t *testing.T) {
	layout, err := (&PartitionBuilder{NumPoints: 5, TargetPartitionSize: 2, Strategy: RoundRobin}).BuildPartitions()
	require.NoError(t, err)
	pa := AllocatePartitionedArray(layout, 2)
	assert.Len(t, pa.GlobalData, layout.NumPartitions*layout.KpartMax*2)
	for k := 0; k < 5; k++ {
		copy(pa.Point(k), []float64{float64(k), -float64(k)})
	}
	assert.Equal(t, []float64{0, 0, 1, -1, 2, -2, 3, -3, 4, -4}, pa.Gather())
	assert.Equal(t, []float64{0, 0, 3, -3}, pa.GetPartitionData(0))
	assert.Nil(t, pa.GetPartitionData(3))
}

func TestRun(t *testing.T) {
	layout, err := (&PartitionBuilder{NumPoints: 20, TargetPartitionSize: 3}).BuildPartitions()
	require.NoError(t, err)

	var calls atomic.Int64
	err = Run(context.Background(), layout, func(ctx context.Context, point int) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), calls.Load())

	boom := errors.New("boom")
	err = Run(context.Background(), layout, func(ctx context.Context, point int) error {
		if point == 7 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Run(ctx, layout, func(ctx context.Context, point int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

// Workers evaluate a frozen tensor at many parameter points; every result
// must match the serial evaluation exactly
func TestRunSharedTensor(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	n := 6
	tr := integrand.NewTriplets(n, n, n)
	for p := 0; p < 100; p++ {
		tr.Append(rng.NormFloat64(), rng.Intn(n), rng.Intn(n), rng.Intn(n))
	}
	in, err := integrand.Make(tr)
	require.NoError(t, err)
	in.EnsureShareable()

	const points = 32
	coeffs := make([][]float64, points)
	want := make([][]float64, points)
	for k := range coeffs {
		coeffs[k] = make([]float64, n)
		for i := range coeffs[k] {
			coeffs[k][i] = rng.NormFloat64()
		}
		v, err := in.Get(integrand.Contraction{nil, coeffs[k], coeffs[k]})
		require.NoError(t, err)
		want[k] = v.(*integrand.Array).Data()
	}

	layout, err := (&PartitionBuilder{NumPoints: points, TargetPartitionSize: 5, Strategy: RoundRobin}).BuildPartitions()
	require.NoError(t, err)
	results := AllocatePartitionedArray(layout, n)
	err = Run(context.Background(), layout, func(ctx context.Context, k int) error {
		v, err := in.Get(integrand.Contraction{nil, coeffs[k], coeffs[k]})
		if err != nil {
			return err
		}
		copy(results.Point(k), v.(*integrand.Array).Data())
		return nil
	})
	require.NoError(t, err)
	for k := range want {
		assert.Equal(t, want[k], results.Point(k), "point %d", k)
	}
}
