package ingest

import "github.com/teslashibe/go-gaze/pkg/landmark"

// syntheticFace builds a centered, open-eyed face at 640x480 using the default regions.
func syntheticFace() landmark.Frame {
	const w, h = 640.0, 480.0
	f := landmark.NewFrame(int(w), int(h))
	put := func(i int, x, y float64) { f.Points[i] = landmark.Point{X: x / w, Y: y / h} }

	eye := func(contour [6]int, irises []int, cx, cy float64) {
		put(contour[0], cx-15, cy)
		put(contour[1], cx-5, cy-5)
		put(contour[2], cx+5, cy-5)
		put(contour[3], cx+15, cy)
		put(contour[4], cx+5, cy+5)
		put(contour[5], cx-5, cy+5)
		for _, i := range irises {
			put(i, cx, cy)
		}
	}
	r := landmark.DefaultRegions()
	eye(r.LeftEyeEAR, r.LeftIris, 260, 240)
	eye(r.RightEyeEAR, r.RightIris, 380, 240)
	return f
}
