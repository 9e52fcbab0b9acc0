package proof

// Outcome is the verdict attached to one checked assertion.
// It forms a flat lattice: Bottom below True and False, Top above them.
type Outcome int

const (
	Bottom Outcome = iota // unreachable or contradictory
	Top                   // unknown
	True
	False
)

func (o Outcome) String() string {
	switch o {
	case Bottom:
		return "Bottom"
	case Top:
		return "Top"
	case True:
		return "True"
	case False:
		return "False"
	default:
		return "Unknown"
	}
}

// Verdict returns the word used for o in diagnostic lines.
func (o Outcome) Verdict() string {
	switch o {
	case Bottom:
		return "unreachable"
	case True:
		return "valid"
	case False:
		return "invalid"
	default:
		return "unproven"
	}
}

// IsTrue reports whether o is exactly True.
func (o Outcome) IsTrue() bool { return o == True }

// IsFalse reports whether o is exactly False.
func (o Outcome) IsFalse() bool { return o == False }

// Negate flips True and False. Top and Bottom are left unchanged.
func (o Outcome) Negate() Outcome {
	switch o {
	case True:
		return False
	case False:
		return True
	default:
		return o
	}
}

// FromBool lifts a decided boolean into the lattice.
func FromBool(b bool) Outcome {
	if b {
		return True
	}
	return False
}

// And is three-valued conjunction. A False operand decides the result
// even when the other side is unknown.
func And(a, b Outcome) Outcome {
	switch {
	case a == Bottom || b == Bottom:
		return Bottom
	case a == False || b == False:
		return False
	case a == True && b == True:
		return True
	default:
		return Top
	}
}

// Or is three-valued disjunction.
func Or(a, b Outcome) Outcome {
	switch {
	case a == Bottom || b == Bottom:
		return Bottom
	case a == True || b == True:
		return True
	case a == False && b == False:
		return False
	default:
		return Top
	}
}

// Join returns the least upper bound.
func Join(a, b Outcome) Outcome {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == b {
		return a
	}
	return Top
}

// Meet returns the greatest lower bound.
func Meet(a, b Outcome) Outcome {
	if a == Top {
		return b
	}
	if b == Top {
		return a
	}
	if a == b {
		return a
	}
	return Bottom
}
