package notificacion

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

const prefijoMovilAR = "549"

// NormalizarTelefono turns whatever the buyer typed into an Argentine mobile
// number with a single 549 prefix. Only the longest known prefix is removed,
// so a local number that happens to start with 54 after the country code is
// kept intact. Applying it twice gives the same result.
func NormalizarTelefono(raw string) string {
	digitos := libphonenumber.NormalizeDigitsOnly(raw)
	switch {
	case strings.HasPrefix(digitos, "549"):
		digitos = digitos[3:]
	case strings.HasPrefix(digitos, "54"):
		digitos = digitos[2:]
	}
	// Trunk prefix of national dialing (011..., 0351...).
	digitos = strings.TrimLeft(digitos, "0")
	return prefijoMovilAR + digitos
}
