package value

import "math"

// Epsilon keeps relative comparisons stable when the reference value is at
// or near zero.
const Epsilon = 1e-10

// Close reports whether cur is within the relative tolerance tol of prev.
func Close(prev, cur, tol float64) bool {
	if prev == cur {
		return true
	}
	return math.Abs(cur-prev)/(math.Abs(prev)+Epsilon) < tol
}

// Converged reports whether every numeric leaf of cur is Close to the leaf of
// the same name in prev. A leaf present on only one side, or whose kind
// changed between number and non-number, counts as not converged.
// Non-numeric leaves are otherwise ignored.
func Converged(prev, cur Record, tol float64) bool {
	pf := prev.Flatten("")
	cf := cur.Flatten("")
	if len(pf) != len(cf) {
		return false
	}
	for k, c := range cf {
		p, ok := pf[k]
		if !ok {
			return false
		}
		pn, pNum := p.Float()
		cn, cNum := c.Float()
		if pNum != cNum {
			return false
		}
		if !cNum {
			continue
		}
		if !Close(pn, cn, tol) {
			return false
		}
	}
	return true
}
