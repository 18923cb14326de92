package bench

import (
	"fmt"
	"math"

	"github.com/rjboer/GoDOA/internal/doa"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/logging"
)

// BoundPoint is the stochastic CRB at one SNR.
type BoundPoint struct {
	SNR float64   `json:"snr"`
	Std []float64 `json:"std"` // per source, in the geometry's unit
}

// BoundSweep evaluates the CRB for the fixed angles of cfg at every SNR in snrs.
func BoundSweep(cfg Config, snrs []float64, logger logging.Logger) ([]BoundPoint, error) {
	if len(cfg.Experiment.Angles) == 0 {
		return nil, fmt.Errorf("bench: bound sweep needs fixed angles: %w", doaerr.ErrConfiguration)
	}
	geom, err := cfg.Geometry()
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	crb, err := doa.NewCRB(geom, cfg.Source.Samples, logger)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	out := make([]BoundPoint, 0, len(snrs))
	for _, snr := range snrs {
		variance := crb.Stochastic(cfg.Experiment.Angles, snr)
		p := BoundPoint{SNR: snr, Std: make([]float64, len(variance))}
		for i, v := range variance {
			p.Std[i] = geom.FromRadians(math.Sqrt(v))
		}
		out = append(out, p)
	}
	return out, nil
}
