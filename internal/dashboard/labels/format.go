package labels

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatInt groups thousands the pt-BR way (20000 → "20.000").
func FormatInt(n int64) string {
	return ptBR.Sprintf("%d", n)
}

