package fiducial

// DilateMask grows the labeled regions of a 16-bit mask with a 3x3
// rectangular structuring element anchored at its centre: each output
// pixel takes the maximum of its 3x3 neighbourhood, clamped at the mask
// edges. The input buffer is read only; the returned slice is the
// freshly dilated copy.
func DilateMask(mask []uint16, cols, rows int) []uint16 {
	out := make([]uint16, len(mask))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var m uint16
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= rows {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= cols {
						continue
					}
					if v := mask[ny*cols+nx]; v > m {
						m = v
					}
				}
			}
			out[y*cols+x] = m
		}
	}
	return out
}
