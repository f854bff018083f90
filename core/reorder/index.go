package reorder

import "math"

// ClampDisplacement bounds a drag so the item at startIndex never travels above the first slot or below the last.
func ClampDisplacement(displacement float64, startIndex int, itemHeight float64, listLength int) float64 {
	if listLength <= 0 || itemHeight <= 0 || math.IsNaN(displacement) {
		return 0
	}
	startIndex = clampIndex(startIndex, listLength)
	min := -float64(startIndex) * itemHeight
	max := float64(listLength-1-startIndex) * itemHeight
	return math.Max(min, math.Min(max, displacement))
}

// TargetIndex maps a drag displacement to the slot the dragged item would land in.
// The result is always within [0, listLength-1] (0 for an empty list).
func TargetIndex(displacement float64, startIndex int, itemHeight float64, listLength int) int {
	if listLength <= 0 {
		return 0
	}
	startIndex = clampIndex(startIndex, listLength)
	if itemHeight <= 0 {
		return startIndex
	}

	clamped := ClampDisplacement(displacement, startIndex, itemHeight, listLength)
	top := float64(startIndex)*itemHeight + clamped
	return clampIndex(int(math.Round(top/itemHeight)), listLength)
}

func clampIndex(index, listLength int) int {
	if index < 0 {
		return 0
	}
	if index > listLength-1 {
		return listLength - 1
	}
	return index
}
