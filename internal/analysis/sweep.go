package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
)

// SweepPoint is the late-run behaviour of the loop at one gain value.
type SweepPoint struct {
	Param float64
	// Amplitude is the peak-to-peak distance over the second half of the run.
	Amplitude float64
	Growth    float64
	Diverged  bool
}

// GainSweep runs the loop once per value of param (kp, ki or kd, applied to
// both axes) between lo and hi and reports how strongly it oscillates.
func GainSweep(
	ctx context.Context,
	base dynamo.Config,
	traj dynamo.Trajectory,
	run dynamo.RunConfig,
	param string,
	lo, hi float64,
	steps int,
) ([]SweepPoint, error) {
	if steps <= 1 {
		steps = 2
	}
	step := (hi - lo) / float64(steps-1)
	run.KeepSnapshots = true
	run.ValidateState = true

	jobs := make([]dynamo.Job, steps)
	values := make([]float64, steps)
	for i := range jobs {
		v := lo + float64(i)*step
		cfg := base
		x, y := cfg.X, cfg.Y
		if err := setGain(&x, param, v); err != nil {
			return nil, err
		}
		if err := setGain(&y, param, v); err != nil {
			return nil, err
		}
		cfg.X, cfg.Y = x, y
		jobs[i] = dynamo.Job{Config: cfg, Traj: traj, Run: run}
		values[i] = v
	}

	results, err := dynamo.Sweep(ctx, jobs, 0)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, steps)
	for i, res := range results {
		p := SweepPoint{Param: values[i], Diverged: len(res.Errors) > 0}
		if !p.Diverged {
			dist := make([]float64, 0, len(res.Snapshots))
			for _, s := range res.Snapshots[len(res.Snapshots)/2:] {
				dist = append(dist, s.Distance())
			}
			p.Amplitude = peakToPeak(dist)

			errs := make([]float64, len(res.Snapshots))
			for j, s := range res.Snapshots {
				errs[j] = math.Hypot(s.ErrorX, s.ErrorY)
			}
			p.Growth = GrowthRate(errs, run.Dt)
		}
		points[i] = p
	}
	return points, nil
}

func setGain(g *control.Gains, param string, v float64) error {
	switch param {
	case "kp":
		g.P = v
	case "ki":
		g.I = v
	case "kd":
		g.D = v
	default:
		return fmt.Errorf("%w: %s", control.ErrUnknownParam, param)
	}
	return nil
}

func peakToPeak(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi - lo
}

// SweepToASCII plots amplitude against the swept gain. Diverged runs are
// drawn as 'x' on the top row.
func SweepToASCII(points []SweepPoint, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	maxAmp := 0.0
	for _, p := range points {
		if !p.Diverged {
			maxAmp = max(maxAmp, p.Amplitude)
		}
	}
	if maxAmp == 0 {
		maxAmp = 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range points {
		col := i * width / len(points)
		if col >= width {
			col = width - 1
		}
		if p.Diverged {
			canvas[0][col] = 'x'
			continue
		}
		row := height - 1 - int(p.Amplitude/maxAmp*float64(height-1))
		if row >= 0 && row < height {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
