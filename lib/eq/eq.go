/*package eq is a simple package for telling whether two arrays are equal to
one another.*/
package eq

// Slices returns true if two slices have the same length and the same
// values and false otherwise.
func Slices[T comparable](x, y []T) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Vecs returns true if two slices of 3-vectors have the same length and the
// same values and false otherwise.
func Vecs[T comparable](x, y [][3]T) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
