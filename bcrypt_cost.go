//go:build !race

package hospital

func passwordHashCost() int {
	return 10
}
