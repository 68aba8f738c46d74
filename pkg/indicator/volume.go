package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/trade-journal/internal/models"
)

// VolumeAverage calculates the average volume of the most recent period bars
type VolumeAverage struct {
	period    int
	name      string
	volumes   []int64
	ready     bool
	processed int
}

// NewVolumeAverage creates a new volume average calculator
func NewVolumeAverage(period int) (*VolumeAverage, error) {
	if period < 1 {
		return nil, fmt.Errorf("volume average period must be at least 1, got %d", period)
	}

	return &VolumeAverage{
		period:  period,
		name:    fmt.Sprintf("volume_avg_%d", period),
		volumes: make([]int64, 0, period),
	}, nil
}

// Name returns the indicator name
func (v *VolumeAverage) Name() string {
	return v.name
}

// Push adds a volume to the window
func (v *VolumeAverage) Push(volume int64) models.Value {
	v.volumes = append(v.volumes, volume)
	v.processed++

	if len(v.volumes) > v.period {
		copy(v.volumes, v.volumes[1:])
		v.volumes = v.volumes[:len(v.volumes)-1]
	}

	if len(v.volumes) < v.period {
		return models.None()
	}

	v.ready = true
	return models.Some(v.calculateAverage())
}

// Update feeds the candle's volume
func (v *VolumeAverage) Update(c *models.Candle) (models.Value, error) {
	if c == nil {
		return models.None(), fmt.Errorf("candle cannot be nil")
	}
	return v.Push(c.Volume), nil
}

// calculateAverage computes the average volume
func (v *VolumeAverage) calculateAverage() float64 {
	if len(v.volumes) == 0 {
		return 0
	}

	var totalVolume int64
	for _, vol := range v.volumes {
		totalVolume += vol
	}

	return float64(totalVolume) / float64(len(v.volumes))
}

// Reset clears the volume average state
func (v *VolumeAverage) Reset() {
	v.volumes = v.volumes[:0]
	v.ready = false
	v.processed = 0
}

// IsReady returns true if the volume average has enough data
func (v *VolumeAverage) IsReady() bool {
	return v.ready
}

// WindowSize returns the period
func (v *VolumeAverage) WindowSize() int {
	return v.period
}

// BarsProcessed returns the number of bars processed
func (v *VolumeAverage) BarsProcessed() int {
	return v.processed
}

// RVol calculates the current volume relative to the average volume of the
// most recent period bars (the current bar included)
type RVol struct {
	volumeAvg *VolumeAverage
	name      string
	lastValue models.Value
}

// NewRVol creates a new relative volume calculator
func NewRVol(period int) (*RVol, error) {
	volumeAvg, err := NewVolumeAverage(period)
	if err != nil {
		return nil, err
	}

	return &RVol{
		volumeAvg: volumeAvg,
		name:      fmt.Sprintf("rvol_%d", period),
	}, nil
}

// Name returns the indicator name
func (r *RVol) Name() string {
	return r.name
}

// Push feeds the next volume
func (r *RVol) Push(volume int64) models.Value {
	avg := r.volumeAvg.Push(volume)
	if !avg.Valid || avg.Float64 == 0 {
		r.lastValue = models.None()
		return r.lastValue
	}

	r.lastValue = finite(float64(volume) / avg.Float64)
	return r.lastValue
}

// Update feeds the candle's volume
func (r *RVol) Update(c *models.Candle) (models.Value, error) {
	if c == nil {
		return models.None(), fmt.Errorf("candle cannot be nil")
	}
	return r.Push(c.Volume), nil
}

// Value returns the last relative volume reading
func (r *RVol) Value() models.Value {
	return r.lastValue
}

// Reset clears the relative volume state
func (r *RVol) Reset() {
	r.volumeAvg.Reset()
	r.lastValue = models.None()
}

// IsReady returns true if the relative volume can be calculated
func (r *RVol) IsReady() bool {
	return r.lastValue.Valid
}
