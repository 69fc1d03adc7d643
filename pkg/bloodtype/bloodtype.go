package bloodtype

// BloodType is an ABO/Rh blood group such as "O-" or "AB+".
type BloodType string

const (
	OPos  BloodType = "O+"
	ONeg  BloodType = "O-"
	APos  BloodType = "A+"
	ANeg  BloodType = "A-"
	BPos  BloodType = "B+"
	BNeg  BloodType = "B-"
	ABPos BloodType = "AB+"
	ABNeg BloodType = "AB-"
)

// UniversalDonor can give to every recipient.
const UniversalDonor = ONeg

// All lists the eight ABO/Rh types in table order.
var All = []BloodType{ONeg, OPos, ANeg, APos, BNeg, BPos, ABNeg, ABPos}

var index = map[BloodType]int{
	ONeg:  0,
	OPos:  1,
	ANeg:  2,
	APos:  3,
	BNeg:  4,
	BPos:  5,
	ABNeg: 6,
	ABPos: 7,
}

// compatible[donor][recipient] in the order of All.
var compatible = [8][8]bool{
	//        O-     O+     A-     A+     B-     B+     AB-    AB+
	/* O-  */ {true, true, true, true, true, true, true, true},
	/* O+  */ {false, true, false, true, false, true, false, true},
	/* A-  */ {false, false, true, true, false, false, true, true},
	/* A+  */ {false, false, false, true, false, false, false, true},
	/* B-  */ {false, false, false, false, true, true, true, true},
	/* B+  */ {false, false, false, false, false, true, false, true},
	/* AB- */ {false, false, false, false, false, false, true, true},
	/* AB+ */ {false, false, false, false, false, false, false, true},
}

// Valid reports whether t is one of the eight known types.
func (t BloodType) Valid() bool {
	_, ok := index[t]
	return ok
}

func (t BloodType) String() string {
	return string(t)
}

// CanDonate reports whether a donor of type donor may give to a recipient of
// type recipient. Unknown or empty types are never compatible.
func CanDonate(donor, recipient BloodType) bool {
	d, ok := index[donor]
	if !ok {
		return false
	}
	r, ok := index[recipient]
	if !ok {
		return false
	}
	return compatible[d][r]
}
