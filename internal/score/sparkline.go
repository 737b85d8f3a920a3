package score

import "strings"

var sparklineBars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders a compact bar-character summary of the point-value
// distribution, one bar per value, scaled between the minimum and maximum.
func Sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var sb strings.Builder
	spread := max - min
	for _, v := range values {
		idx := len(sparklineBars) - 1
		if spread > 0 {
			idx = (v - min) * (len(sparklineBars) - 1) / spread
		}
		sb.WriteRune(sparklineBars[idx])
	}
	return sb.String()
}
