package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/metrics"
	"github.com/san-kum/crosstrack/internal/target"
	"github.com/san-kum/crosstrack/internal/vmath"
)

func trackingOnly() []dynamo.Metric {
	return []dynamo.Metric{metrics.NewTrackingError()}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Linspace[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if v := Linspace(3, 9, 1); len(v) != 1 || v[0] != 3 {
		t.Errorf("single point = %v", v)
	}
}

func TestGridSearchPrefersDamping(t *testing.T) {
	base := dynamo.DefaultConfig()
	base.X = control.Gains{P: 1}
	base.Y = base.X

	g := NewGridSearch([]string{"kp", "kd"}, [][]float64{{0.5, 1}, {0, 1}})
	g.SetWorkers(2)

	res, err := g.Search(context.Background(), base,
		target.Static{Point: vmath.V2(600, 400)},
		dynamo.RunConfig{Dt: 1.0 / 60, Duration: 10, ValidateState: true},
		"tracking_error", trackingOnly)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(res.Candidates))
	}
	if res.Best.Params["kd"] != 1 {
		t.Errorf("best = %+v, expected a damped candidate", res.Best)
	}
	if res.Best.Gains.I != 0 {
		t.Errorf("unnamed gain should keep base value, got ki=%v", res.Best.Gains.I)
	}

	top := res.Top(2)
	if len(top) != 2 || top[0].Score > top[1].Score {
		t.Errorf("top not sorted: %+v", top)
	}
	if top[0].Score != res.Best.Score {
		t.Error("top[0] should be the best candidate")
	}
}

func TestGridSearchErrors(t *testing.T) {
	ctx := context.Background()
	base := dynamo.DefaultConfig()
	traj := target.Static{Point: base.Start}
	run := dynamo.RunConfig{Dt: 0.1, Duration: 1}

	tests := []struct {
		name   string
		g      *GridSearch
		metric string
		want   error
	}{
		{"empty range", NewGridSearch([]string{"kp"}, [][]float64{{}}), "tracking_error", ErrNoCandidates},
		{"unknown gain", NewGridSearch([]string{"kz"}, [][]float64{{1}}), "tracking_error", control.ErrUnknownParam},
		{"negative gain", NewGridSearch([]string{"kp"}, [][]float64{{-1}}), "tracking_error", control.ErrNegativeGain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.g.Search(ctx, base, traj, run, tt.metric, trackingOnly)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewGridSearch([]string{"kp", "kd"}, [][]float64{{1}}).Search(ctx, base, traj, run, "tracking_error", trackingOnly); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, err := NewGridSearch([]string{"kp"}, [][]float64{{1}}).Search(ctx, base, traj, run, "energy", trackingOnly); err == nil {
		t.Error("expected error for missing metric")
	}
}
