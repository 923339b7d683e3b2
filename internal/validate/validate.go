// Package validate holds input normalization shared by the HTTP layer
// and the services.
package validate

// ClampInt64 clamps v into [min, max].
func ClampInt64(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt clamps v into [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeCPF strips every non-digit character.
func NormalizeCPF(cpf string) string {
	out := make([]byte, 0, len(cpf))
	for i := 0; i < len(cpf); i++ {
		if cpf[i] >= '0' && cpf[i] <= '9' {
			out = append(out, cpf[i])
		}
	}
	return string(out)
}

// IsValidCPF validates a Brazilian CPF including both check digits.
func IsValidCPF(cpf string) bool {
	c := NormalizeCPF(cpf)
	if len(c) != 11 {
		return false
	}

	allEqual := true
	for i := 1; i < 11; i++ {
		if c[i] != c[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	calcCheckDigit := func(base string) int {
		sum := 0
		for i := 0; i < len(base); i++ {
			sum += int(base[i]-'0') * (len(base) + 1 - i)
		}
		mod := (sum * 10) % 11
		if mod == 10 {
			return 0
		}
		return mod
	}

	d1 := calcCheckDigit(c[:9])
	d2 := calcCheckDigit(c[:10])
	return d1 == int(c[9]-'0') && d2 == int(c[10]-'0')
}
