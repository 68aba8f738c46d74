package models

// ClampLimits are the storage ceilings for candle fields. A zero limit disables
// clamping for that field.
type ClampLimits struct {
	MaxPrice     float64
	MaxVolume    int64
	MaxIndicator float64
}

// Clamp returns a copy of the candle with every field above its ceiling clamped.
// The original value of each clamped field is recorded in TruncatedValues under
// the field name (indicators use "indicators.<key>").
func (c *Candle) Clamp(limits ClampLimits) *Candle {
	out := c.Clone()

	clampPrice := func(name string, v *float64) {
		if limits.MaxPrice <= 0 || *v <= limits.MaxPrice {
			return
		}
		out.recordTruncated(name, *v)
		*v = limits.MaxPrice
	}
	clampPrice("open", &out.Open)
	clampPrice("high", &out.High)
	clampPrice("low", &out.Low)
	clampPrice("close", &out.Close)

	if limits.MaxVolume > 0 && out.Volume > limits.MaxVolume {
		out.recordTruncated("volume", float64(out.Volume))
		out.Volume = limits.MaxVolume
	}

	if limits.MaxIndicator > 0 {
		for key, v := range out.Indicators {
			if !v.Valid {
				continue
			}
			switch {
			case v.Float64 > limits.MaxIndicator:
				out.recordTruncated("indicators."+key, v.Float64)
				out.Indicators[key] = Some(limits.MaxIndicator)
			case v.Float64 < -limits.MaxIndicator:
				out.recordTruncated("indicators."+key, v.Float64)
				out.Indicators[key] = Some(-limits.MaxIndicator)
			}
		}
	}

	return out
}

func (c *Candle) recordTruncated(field string, original float64) {
	if c.TruncatedValues == nil {
		c.TruncatedValues = make(map[string]float64)
	}
	c.TruncatedValues[field] = original
}
