package sendjob

import (
	"math/rand"

	"homebase/internal/phone"
)

// Country selects the prefix pool for generated test numbers.
type Country string

const (
	CountryAZ Country = "az"
	CountryTR Country = "tr"
)

var generatorPrefixes = map[Country]struct {
	code     string
	prefixes []string
}{
	CountryAZ: {"994", []string{"50", "51", "55", "60", "70", "77", "99"}},
	CountryTR: {"90", []string{"530", "531", "532"}},
}

// Generate produces count random canonical numbers for dry runs against
// test accounts. Unknown countries fall back to AZ.
func Generate(count int, country Country) []phone.Number {
	pool, ok := generatorPrefixes[country]
	if !ok {
		pool = generatorPrefixes[CountryAZ]
	}
	out := make([]phone.Number, 0, count)
	for i := 0; i < count; i++ {
		prefix := pool.prefixes[rand.Intn(len(pool.prefixes))]
		tail := make([]byte, 7)
		for j := range tail {
			tail[j] = byte('0' + rand.Intn(10))
		}
		out = append(out, phone.Number(pool.code+prefix+string(tail)))
	}
	return out
}
