package budget

import "fmt"

// Arch target codes. Tooth targets use the FDI two-digit notation directly.
const (
	TargetUpperArch = "UPPER"
	TargetLowerArch = "LOWER"
	TargetBothArch  = "BOTH"
)

// Procedures offered by the practice.
var Procedures = []string{
	"Orthopedic Appliance",
	"Topical Fluoride",
	"Fluoride Varnish",
	"Evaluation",
	"Orthodontic Band",
	"Occlusal Stop",
	"Block",
	"Root Canal",
	"Whitening",
	"Crown",
	"Acetate Crown",
	"Steel Crown",
	"Extraction",
	"Veneer",
	"Labial Frenectomy",
	"Lingual Frenectomy",
	"Implant",
	"Glass Ionomer",
	"Laser Therapy",
	"Cleaning",
	"Space Maintainer",
	"Other",
	"Post",
	"Fiberglass Post",
	"Flat Direct Tracks",
	"Occlusal Splint",
	"Removable Prosthesis",
	"Aspiration Puncture",
	"Radiography",
	"Subgingival Scaling",
	"Restoration",
	"Direct Resin Restoration",
	"Conscious Sedation",
	"Resin Sealant",
	"Splinting",
	"Ulectomy",
}

// materialRequired holds procedures that need a material specification.
var materialRequired = map[string]bool{
	"Block":                true,
	"Crown":                true,
	"Veneer":               true,
	"Post":                 true,
	"Removable Prosthesis": true,
}

// descriptionRequired holds procedures that need free-text detail.
var descriptionRequired = map[string]bool{
	"Other": true,
}

// labRouted holds prosthetic procedures that route through an external lab
// by default.
var labRouted = map[string]bool{
	"Block":                true,
	"Crown":                true,
	"Veneer":               true,
	"Post":                 true,
	"Removable Prosthesis": true,
}

// surfaceSensitive holds procedures scoped to specific tooth surfaces.
var surfaceSensitive = map[string]bool{
	"Restoration":              true,
	"Direct Resin Restoration": true,
	"Glass Ionomer":            true,
	"Resin Sealant":            true,
}

// Surfaces: mesial, distal, occlusal, buccal, lingual, palatal.
var validSurfaces = map[string]bool{
	"M": true, "D": true, "O": true, "B": true, "L": true, "P": true,
}

func MaterialRequired(procedure string) bool    { return materialRequired[procedure] }
func DescriptionRequired(procedure string) bool { return descriptionRequired[procedure] }
func LabRouted(procedure string) bool           { return labRouted[procedure] }
func SurfaceSensitive(procedure string) bool    { return surfaceSensitive[procedure] }
func ValidSurface(s string) bool                { return validSurfaces[s] }

// ValidTarget accepts FDI permanent codes (11-48), deciduous codes (51-85)
// and the arch constants.
func ValidTarget(target string) bool {
	switch target {
	case TargetUpperArch, TargetLowerArch, TargetBothArch:
		return true
	}
	if len(target) != 2 {
		return false
	}
	quadrant, tooth := target[0], target[1]
	switch {
	case quadrant >= '1' && quadrant <= '4':
		return tooth >= '1' && tooth <= '8'
	case quadrant >= '5' && quadrant <= '8':
		return tooth >= '1' && tooth <= '5'
	}
	return false
}

// TargetLabel returns the human display label for a target code.
func TargetLabel(target string) string {
	switch target {
	case TargetUpperArch:
		return "Upper arch"
	case TargetLowerArch:
		return "Lower arch"
	case TargetBothArch:
		return "Upper + lower arch"
	}
	if len(target) == 2 && target[0] >= '5' && target[0] <= '8' {
		return fmt.Sprintf("Tooth %s (deciduous)", target)
	}
	return fmt.Sprintf("Tooth %s", target)
}

// Payment methods.
const (
	MethodCredit   = "credit"
	MethodDebit    = "debit"
	MethodPix      = "pix"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

var methodLabels = map[string]string{
	MethodCredit:   "Credit",
	MethodDebit:    "Debit",
	MethodPix:      "PIX",
	MethodCash:     "Cash",
	MethodTransfer: "Transfer",
}

// MethodLabel returns the display label for a payment method; unknown methods
// pass through unchanged.
func MethodLabel(method string) string {
	if l, ok := methodLabels[method]; ok {
		return l
	}
	return method
}

// CardMethod reports whether a method carries a card brand.
func CardMethod(method string) bool {
	return method == MethodCredit || method == MethodDebit
}
