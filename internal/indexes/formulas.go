// Package indexes computes the 43 vegetation indices fed to the nitrogen model.
//
// The formulas are fixed: the model was trained against these exact numeric definitions, so an
// algebraically equivalent rewrite is still a different feature. Every division is guarded with
// SafeDiv.
package indexes

import (
	"fmt"
	"math"
)

const (
	Count   = 43
	Epsilon = 1e-10
)

// Names is the canonical index order. It drives both raster layers and feature matrix columns.
var Names = [Count]string{
	"BNDVI", "CI-GREEN", "CI-RED", "CI-REG", "CVI", "DVI", "DVI-GREEN", "DVI-REG",
	"EVI", "EVI2", "GARI", "GNDVI", "GOSAVI", "GRVI", "LCI", "MCARI", "MCARI1",
	"MCARI2", "MNLI", "MSR", "MSR-REG", "MTCI", "NDRE", "NDREI", "NAVI", "NDVI", "OSAVI",
	"OSAVI-REG", "RDVI", "RDVI-REG", "RGBVI", "RTVI-CORE", "RVI", "SAVI", "SAVI-GREEN",
	"S-CCCI", "SIPI", "SR-REG", "TCARI", "TCARI/OSAVI", "TVI", "VARI", "WDRVI",
}

// Bands holds one pixel of surface reflectance.
type Bands struct {
	Blue, Green, Red, NIR, RedEdge float64
}

func (b Bands) masked() bool {
	return math.IsNaN(b.Blue) || math.IsNaN(b.Green) || math.IsNaN(b.Red) || math.IsNaN(b.NIR) || math.IsNaN(b.RedEdge)
}

func SafeDiv(num, den float64) float64 {
	return num / (den + Epsilon)
}

// sqrt0 clamps negative radicands to zero.
func sqrt0(x float64) float64 {
	return math.Sqrt(math.Max(x, 0))
}

// modifiedSimpleRatio is (r - 1) / sqrt(r + 1). The radicand is not clamped.
func modifiedSimpleRatio(r float64) float64 {
	return (r - 1) / (math.Sqrt(r+1) + Epsilon)
}

func tcari(b Bands) float64 {
	return 3 * (b.RedEdge - b.Red - 0.2*(b.RedEdge-b.Green)*SafeDiv(b.RedEdge, b.Red))
}

func osavi(b Bands) float64 {
	return 1.6 * SafeDiv(b.NIR-b.Red, b.NIR+b.Red+0.16)
}

var baseFormulas = map[string]func(Bands) float64{
	"BNDVI":    func(b Bands) float64 { return SafeDiv(b.NIR-b.Blue, b.NIR+b.Blue) },
	"CI-GREEN": func(b Bands) float64 { return SafeDiv(b.NIR, b.Green) - 1 },
	"CI-RED":   func(b Bands) float64 { return SafeDiv(b.NIR, b.Red) - 1 },
	"CI-REG":   func(b Bands) float64 { return SafeDiv(b.NIR, b.RedEdge) - 1 },
	"CVI":      func(b Bands) float64 { return SafeDiv(b.NIR, b.Green) * SafeDiv(b.Red, b.Green) },

	"DVI":       func(b Bands) float64 { return b.NIR - b.Red },
	"DVI-GREEN": func(b Bands) float64 { return b.NIR - b.Green },
	"DVI-REG":   func(b Bands) float64 { return b.NIR - b.RedEdge },

	"EVI":  func(b Bands) float64 { return SafeDiv(2.5*(b.NIR-b.Red), 1+b.NIR-2.4*b.Red) },
	"EVI2": func(b Bands) float64 { return SafeDiv(2.5*(b.NIR-b.Red), b.NIR+2.4*b.Red+1) },
	"GARI": func(b Bands) float64 {
		tmp := b.Green - 1.7*(b.Blue-b.Red)
		return SafeDiv(b.NIR-tmp, b.NIR+tmp)
	},
	"GNDVI":  func(b Bands) float64 { return SafeDiv(b.NIR-b.Green, b.NIR+b.Green) },
	"GOSAVI": func(b Bands) float64 { return SafeDiv(b.NIR-b.Green, b.NIR+b.Green+0.16) },
	"GRVI":   func(b Bands) float64 { return SafeDiv(b.Green-b.Red, b.Green+b.Red) },
	"LCI":    func(b Bands) float64 { return SafeDiv(b.NIR-b.RedEdge, b.NIR-b.Red) },

	"MCARI": func(b Bands) float64 {
		return (b.RedEdge - b.Red - 0.2*(b.RedEdge-b.Green)) * SafeDiv(b.RedEdge, b.Red)
	},
	"MCARI1": func(b Bands) float64 { return 1.2 * (2.5*(b.NIR-b.Red) - 1.3*(b.NIR-b.Green)) },
	"MCARI2": func(b Bands) float64 {
		radicand := (2*b.NIR+1)*(2*b.NIR+1) - 6*(b.NIR-5*sqrt0(b.Red)) - 0.5
		return (3.75*(b.NIR-b.Red) - 1.95*(b.NIR-b.Green)) / (sqrt0(radicand) + Epsilon)
	},
	"MNLI": func(b Bands) float64 {
		return SafeDiv(1.5*b.NIR*b.NIR-1.5*b.Green, b.NIR*b.NIR+b.Red+0.5)
	},
	"MSR":     func(b Bands) float64 { return modifiedSimpleRatio(SafeDiv(b.NIR, b.Red)) },
	"MSR-REG": func(b Bands) float64 { return modifiedSimpleRatio(SafeDiv(b.NIR, b.RedEdge)) },
	"MTCI":    func(b Bands) float64 { return SafeDiv(b.NIR-b.RedEdge, b.NIR-b.Red) },

	"NDRE":      func(b Bands) float64 { return SafeDiv(b.NIR-b.RedEdge, b.NIR+b.RedEdge) },
	"NDREI":     func(b Bands) float64 { return SafeDiv(b.RedEdge-b.Green, b.RedEdge+b.Green) },
	"NAVI":      func(b Bands) float64 { return 1 - SafeDiv(b.Red, b.NIR) },
	"NDVI":      func(b Bands) float64 { return SafeDiv(b.NIR-b.Red, b.NIR+b.Red) },
	"OSAVI":     osavi,
	"OSAVI-REG": func(b Bands) float64 { return 1.6 * SafeDiv(b.NIR-b.RedEdge, b.NIR+b.RedEdge+0.16) },

	"RDVI":      func(b Bands) float64 { return (b.NIR - b.Red) / (sqrt0(b.NIR+b.Red) + Epsilon) },
	"RDVI-REG":  func(b Bands) float64 { return (b.NIR - b.RedEdge) / (sqrt0(b.NIR+b.RedEdge) + Epsilon) },
	"RGBVI":     func(b Bands) float64 { return SafeDiv(b.Green*b.Green-b.Blue*b.Red, b.Green*b.Green+b.Blue*b.Red) },
	"RTVI-CORE": func(b Bands) float64 { return 100*(b.NIR-b.RedEdge) - 10*(b.NIR-b.Green) },
	"RVI":       func(b Bands) float64 { return SafeDiv(b.NIR, b.Red) },

	"SAVI":       func(b Bands) float64 { return 1.5 * SafeDiv(b.NIR-b.Red, b.NIR+b.Red+0.5) },
	"SAVI-GREEN": func(b Bands) float64 { return 1.5 * SafeDiv(b.NIR-b.Green, b.NIR+b.Green+0.5) },
	"SIPI":       func(b Bands) float64 { return SafeDiv(b.NIR-b.Blue, b.NIR-b.Red) },
	"SR-REG":     func(b Bands) float64 { return SafeDiv(b.NIR, b.RedEdge) },
	"TCARI":      tcari,

	"TVI":   func(b Bands) float64 { return (120*(b.NIR-b.Green) - 200*(b.Red-b.Green)) / 2 },
	"VARI":  func(b Bands) float64 { return SafeDiv(b.Green-b.Red, b.Green+b.Red-b.Blue) },
	"WDRVI": func(b Bands) float64 { return SafeDiv(0.2*b.NIR-b.Red, 0.2*b.NIR+b.Red) },
}

// ratioFormulas are indices of other indices. They run after every base formula.
var ratioFormulas = map[string][2]string{
	"S-CCCI":      {"NDRE", "NDVI"},
	"TCARI/OSAVI": {"TCARI", "OSAVI"},
}

type basePlan struct {
	pos int
	fn  func(Bands) float64
}

type ratioPlan struct {
	pos, num, den int
}

var (
	positions = make(map[string]int, Count)
	bases     []basePlan
	ratios    []ratioPlan
)

func init() {
	for i, name := range Names {
		positions[name] = i
	}
	for i, name := range Names {
		fn, isBase := baseFormulas[name]
		operands, isRatio := ratioFormulas[name]
		switch {
		case isBase && isRatio:
			panic(fmt.Sprintf("index %s registered twice", name))
		case isBase:
			bases = append(bases, basePlan{pos: i, fn: fn})
		case isRatio:
			num, okNum := positions[operands[0]]
			den, okDen := positions[operands[1]]
			if !okNum || !okDen {
				panic(fmt.Sprintf("index %s depends on unknown operands %v", name, operands))
			}
			ratios = append(ratios, ratioPlan{pos: i, num: num, den: den})
		default:
			panic(fmt.Sprintf("index %s has no formula", name))
		}
	}
	if len(baseFormulas)+len(ratioFormulas) != Count {
		panic("formula table registers indices outside Names")
	}
}

// Position returns the column of name in Names.
func Position(name string) (int, bool) {
	i, ok := positions[name]
	return i, ok
}

// Compute evaluates every index for one pixel. A pixel with any NaN band is masked and yields NaN
// for all indices.
func Compute(b Bands) [Count]float64 {
	var values [Count]float64
	if b.masked() {
		for i := range values {
			values[i] = math.NaN()
		}
		return values
	}
	for _, p := range bases {
		values[p.pos] = p.fn(b)
	}
	for _, r := range ratios {
		values[r.pos] = SafeDiv(values[r.num], values[r.den])
	}
	return values
}
