package env

// FeatureExtractor builds observation vectors for the network. The layout is
// angle to food, row distance, column distance, then the sight window
// flattened row by row.
type FeatureExtractor struct {
	radius int
	buffer []float64
}

// NewFeatureExtractor creates a feature extractor for the given sight radius
func NewFeatureExtractor(radius int) *FeatureExtractor {
	return &FeatureExtractor{
		radius: radius,
		buffer: make([]float64, FeatureDim(radius)),
	}
}

// FeatureDim returns the observation dimension for a sight radius
func FeatureDim(radius int) int {
	side := 2*radius + 1
	return side*side + 3
}

// Extract builds the observation vector for the current world state.
// Returns a slice that should not be modified (internal buffer)
func (f *FeatureExtractor) Extract(w *World) []float64 {
	dr, dc := w.RelativeFoodDistance()
	f.buffer[0] = w.AngleToFood()
	f.buffer[1] = float64(dr)
	f.buffer[2] = float64(dc)

	i := 3
	for _, row := range w.Area(f.radius) {
		for _, c := range row {
			f.buffer[i] = c.Value()
			i++
		}
	}
	return f.buffer
}
