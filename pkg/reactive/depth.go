package reactive

// RadiusMultiplier scales the ball by its depth: 1 + z*popStrength/100.
func RadiusMultiplier(z, popStrength float64) float64 {
	return 1 + z*(popStrength/100)
}

// BlurStrength returns the background blur for depth z: blurBase*(0.2 + 0.8z).
func BlurStrength(z, blurBase float64) float64 {
	return blurBase * (0.2 + 0.8*z)
}
