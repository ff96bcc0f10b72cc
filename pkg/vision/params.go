package vision

// HoughPass is one circle-detection pass over the blurred grayscale frame.
// Passes trade recall against precision: lower thresholds catch wheels under
// poor lighting at the cost of more false positives.
type HoughPass struct {
	Name          string
	DP            float64 // inverse ratio of accumulator resolution
	MinDist       float64 // minimum distance between circle centers (pixels)
	Param1        float64 // Canny high threshold (minimum feature gradient)
	Param2        float64 // accumulator threshold
	MinRadius     int     // pixels
	MaxRadiusFrac float64 // fraction of min(width, height)
}

// ClusterTolerance decides when two circles describe the same wheel.
type ClusterTolerance struct {
	CenterPixels float64 // max center distance
	RadiusRatio  float64 // max |r1-r2| / max(r1, r2)
}

// WheelParams holds parameters for wheel detection.
type WheelParams struct {
	Passes    []HoughPass
	Tolerance ClusterTolerance

	// Gaussian pre-blur
	BlurKernel int
	BlurSigma  float64

	// MinConfidence must be exceeded by the winning cluster.
	MinConfidence float64

	// Playing-surface colour heuristic (hue in degrees, saturation 0-1).
	SurfaceCheck  bool
	SurfaceHueMin float64
	SurfaceHueMax float64
	SurfaceSatMin float64
	SurfaceBoost  float64
}

// DefaultWheelParams returns parameters tuned for broadcast-style table shots.
func DefaultWheelParams() WheelParams {
	return WheelParams{
		Passes: []HoughPass{
			{Name: "standard", DP: 1, MinDist: 100, Param1: 50, Param2: 30, MinRadius: 50, MaxRadiusFrac: 0.5},
			{Name: "sensitive", DP: 1, MinDist: 80, Param1: 40, Param2: 25, MinRadius: 40, MaxRadiusFrac: 0.5},
			{Name: "robust", DP: 2, MinDist: 120, Param1: 60, Param2: 35, MinRadius: 60, MaxRadiusFrac: 0.5},
			{Name: "small", DP: 1, MinDist: 60, Param1: 30, Param2: 20, MinRadius: 30, MaxRadiusFrac: 0.5},
		},
		Tolerance: ClusterTolerance{
			CenterPixels: 10,
			RadiusRatio:  0.1,
		},
		BlurKernel:    9,
		BlurSigma:     2,
		MinConfidence: 0.3, // two of four passes, or one on matching felt (0.25 + SurfaceBoost)

		// Green felt: OpenCV hue 35-85 is 70-170 degrees.
		SurfaceCheck:  true,
		SurfaceHueMin: 70,
		SurfaceHueMax: 170,
		SurfaceSatMin: 0.15,
		SurfaceBoost:  0.1,
	}
}

// WithMinConfidence returns a copy of params with a different acceptance threshold.
func (p WheelParams) WithMinConfidence(c float64) WheelParams {
	p.MinConfidence = c
	return p
}

// BallParams holds parameters for ball detection.
type BallParams struct {
	// Search annulus as fractions of the wheel radius.
	InnerRadiusFrac float64
	OuterRadiusFrac float64

	// HSV vote: low saturation, high value (OpenCV 8-bit scale).
	SatMax float64
	ValMin float64

	// Lab vote: high lightness, low chroma around the neutral 128.
	LightMin  float64
	ChromaMax float64

	// Intensity vote: gray minus local box-blur mean.
	ContrastMin    float64
	ContrastKernel int

	// MinVotes of the three representations a pixel needs.
	MinVotes int

	// Region shape limits.
	MinArea        float64
	MaxArea        float64
	MinCircularity float64

	// Scoring.
	ContrastWeight float64
	ShapeWeight    float64
	DistinctScale  float64
	MinConfidence  float64

	// Motion consistency.
	MaxAngularVelocity float64 // rad/s, larger implied jumps are noise
	MaxVelocityJump    float64 // rad/s, allowed change from the prior velocity
	ReverseTolerance   float64 // rad/s of backward motion tolerated
}

// DefaultBallParams returns parameters for a white ball on a dark or coloured wheel.
func DefaultBallParams() BallParams {
	return BallParams{
		InnerRadiusFrac: 0.3,
		OuterRadiusFrac: 0.95,

		SatMax: 55,
		ValMin: 180,

		LightMin:  180,
		ChromaMax: 20,

		ContrastMin:    40,
		ContrastKernel: 21,

		MinVotes: 2,

		MinArea:        5,
		MaxArea:        500,
		MinCircularity: 0.3,

		ContrastWeight: 0.6,
		ShapeWeight:    0.4,
		DistinctScale:  1.5,
		MinConfidence:  0.3,

		MaxAngularVelocity: 40,
		MaxVelocityJump:    15,
		ReverseTolerance:   1.0,
	}
}

// WithMinConfidence returns a copy of params with a different acceptance threshold.
func (p BallParams) WithMinConfidence(c float64) BallParams {
	p.MinConfidence = c
	return p
}
