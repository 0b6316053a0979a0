package main

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/landmark"
)

// synth generates a face whose irises trace a circle inside the eyes, with a
// blink every blinkEvery frames.
type synth struct {
	width, height int
	regions       landmark.Regions
	period        int // frames per orbit
	blinkEvery    int
	blinkFrames   int
	frame         int
}

func newSynth(width, height int) *synth {
	return &synth{
		width:       width,
		height:      height,
		regions:     landmark.DefaultRegions(),
		period:      120,
		blinkEvery:  90,
		blinkFrames: 4,
	}
}

// Next returns the next frame.
func (s *synth) Next() landmark.Frame {
	w, h := float64(s.width), float64(s.height)
	f := landmark.NewFrame(s.width, s.height)
	put := func(i int, x, y float64) { f.Points[i] = landmark.Point{X: x / w, Y: y / h} }

	halfWidth := w * 0.025
	opening := halfWidth * 0.7
	if s.blinkEvery > 0 && s.frame%s.blinkEvery < s.blinkFrames {
		opening = halfWidth * 0.05
	}
	theta := 2 * math.Pi * float64(s.frame%s.period) / float64(s.period)
	dx, dy := math.Cos(theta)*halfWidth*0.9, math.Sin(theta)*opening*0.4

	eye := func(contour [6]int, irises []int, cx, cy float64) {
		put(contour[0], cx-halfWidth, cy)
		put(contour[1], cx-halfWidth/3, cy-opening/2)
		put(contour[2], cx+halfWidth/3, cy-opening/2)
		put(contour[3], cx+halfWidth, cy)
		put(contour[4], cx+halfWidth/3, cy+opening/2)
		put(contour[5], cx-halfWidth/3, cy+opening/2)
		for _, i := range irises {
			put(i, cx+dx, cy+dy)
		}
	}
	eye(s.regions.LeftEyeEAR, s.regions.LeftIris, w*0.41, h*0.5)
	eye(s.regions.RightEyeEAR, s.regions.RightIris, w*0.59, h*0.5)

	s.frame++
	return f
}
