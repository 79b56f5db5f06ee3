package agreement

import "math"

// binaryThreshold is the cut used to binarize judge and human scores
const binaryThreshold = 0.5

// pearson computes the Pearson correlation coefficient between two equal
// length vectors. When either vector has zero variance the correlation is
// defined as 0 rather than NaN.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
		sumYY += y[i] * y[i]
	}

	denominator := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denominator == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denominator
}

// confusion binarizes both score vectors at binaryThreshold and accumulates
// the agreement counts, with the human score as ground truth
func confusion(judge, human []float64) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range judge {
		judgePos := judge[i] >= binaryThreshold
		humanPos := human[i] >= binaryThreshold

		switch {
		case judgePos && humanPos:
			cm.TruePositives++
		case !judgePos && !humanPos:
			cm.TrueNegatives++
		case judgePos && !humanPos:
			cm.FalsePositives++
		default:
			cm.FalseNegatives++
		}
	}
	return cm
}

// total returns the number of observations in the matrix
func (cm ConfusionMatrix) total() int {
	return cm.TruePositives + cm.TrueNegatives + cm.FalsePositives + cm.FalseNegatives
}

// accuracy is the share of traces where judge and human agree
func (cm ConfusionMatrix) accuracy() float64 {
	n := cm.total()
	if n == 0 {
		return 0
	}
	return float64(cm.TruePositives+cm.TrueNegatives) / float64(n)
}

func (cm ConfusionMatrix) precision() float64 {
	denominator := cm.TruePositives + cm.FalsePositives
	if denominator == 0 {
		return 0
	}
	return float64(cm.TruePositives) / float64(denominator)
}

func (cm ConfusionMatrix) recall() float64 {
	denominator := cm.TruePositives + cm.FalseNegatives
	if denominator == 0 {
		return 0
	}
	return float64(cm.TruePositives) / float64(denominator)
}

func (cm ConfusionMatrix) f1() float64 {
	p := cm.precision()
	r := cm.recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// cohenKappa computes chance-corrected agreement from the marginal
// distributions of both raters. The degenerate single-class case (expected
// agreement 1) is defined as perfect agreement to avoid dividing by zero.
func (cm ConfusionMatrix) cohenKappa() float64 {
	n := float64(cm.total())
	if n == 0 {
		return 0
	}

	observed := cm.accuracy()

	judgePos := float64(cm.TruePositives + cm.FalsePositives)
	judgeNeg := float64(cm.TrueNegatives + cm.FalseNegatives)
	humanPos := float64(cm.TruePositives + cm.FalseNegatives)
	humanNeg := float64(cm.TrueNegatives + cm.FalsePositives)

	expected := (judgePos*humanPos + judgeNeg*humanNeg) / (n * n)
	if expected == 1 {
		return 1
	}

	return (observed - expected) / (1 - expected)
}
