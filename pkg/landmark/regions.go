package landmark

// Regions names the landmark index sets the pipeline reads. The indices follow the
// detector's output convention and are configuration, not logic.
type Regions struct {
	LeftIris  []int `json:"left_iris" yaml:"left_iris"`
	RightIris []int `json:"right_iris" yaml:"right_iris"`
	LeftEye   []int `json:"left_eye" yaml:"left_eye"`
	RightEye  []int `json:"right_eye" yaml:"right_eye"`

	// Six-point eye contours for the eye aspect ratio, ordered
	// corner, top1, top2, corner, bottom2, bottom1.
	LeftEyeEAR  [6]int `json:"left_eye_ear" yaml:"left_eye_ear"`
	RightEyeEAR [6]int `json:"right_eye_ear" yaml:"right_eye_ear"`
}

// DefaultRegions returns the refined face-mesh convention: two corner points per eye
// as the eye reference and the first four ring points of each iris.
func DefaultRegions() Regions {
	return Regions{
		LeftIris:    []int{468, 469, 470, 471},
		RightIris:   []int{473, 474, 475, 476},
		LeftEye:     []int{33, 133},
		RightEye:    []int{362, 263},
		LeftEyeEAR:  [6]int{33, 160, 158, 133, 153, 144},
		RightEyeEAR: [6]int{362, 385, 387, 263, 373, 380},
	}
}

// AltIrisRegions returns DefaultRegions with the iris sets shifted to the ring-only
// convention (center point excluded).
func AltIrisRegions() Regions {
	r := DefaultRegions()
	r.LeftIris = []int{469, 470, 471, 472}
	r.RightIris = []int{474, 475, 476, 477}
	return r
}

// Validate returns a list of problems, or nil.
func (r Regions) Validate() []string {
	var problems []string
	check := func(name string, idx []int) {
		if len(idx) == 0 {
			problems = append(problems, name+" must list at least one index")
			return
		}
		for _, i := range idx {
			if i < 0 || i > MaxIndex {
				problems = append(problems, name+" index out of range 0..477")
				return
			}
		}
	}
	check("left_iris", r.LeftIris)
	check("right_iris", r.RightIris)
	check("left_eye", r.LeftEye)
	check("right_eye", r.RightEye)
	check("left_eye_ear", r.LeftEyeEAR[:])
	check("right_eye_ear", r.RightEyeEAR[:])
	return problems
}

// Clone returns a deep copy.
func (r Regions) Clone() Regions {
	out := r
	out.LeftIris = append([]int(nil), r.LeftIris...)
	out.RightIris = append([]int(nil), r.RightIris...)
	out.LeftEye = append([]int(nil), r.LeftEye...)
	out.RightEye = append([]int(nil), r.RightEye...)
	return out
}
