package models

import (
	"fmt"
	"strings"
)

// Month is a calendar month as stored on payments (Spanish upper-case names).
type Month int

const (
	Enero Month = iota + 1
	Febrero
	Marzo
	Abril
	Mayo
	Junio
	Julio
	Agosto
	Septiembre
	Octubre
	Noviembre
	Diciembre
)

var monthNames = [...]string{
	"",
	"ENERO",
	"FEBRERO",
	"MARZO",
	"ABRIL",
	"MAYO",
	"JUNIO",
	"JULIO",
	"AGOSTO",
	"SEPTIEMBRE",
	"OCTUBRE",
	"NOVIEMBRE",
	"DICIEMBRE",
}

var monthIndex = func() map[string]Month {
	idx := make(map[string]Month, 12)
	for i := 1; i < len(monthNames); i++ {
		idx[monthNames[i]] = Month(i)
	}
	idx["SETIEMBRE"] = Septiembre
	return idx
}()

// ParseMonth maps a free-text month name, ignoring case and surrounding
// whitespace, onto the fixed twelve-name vocabulary.
func ParseMonth(raw string) (Month, error) {
	m, ok := monthIndex[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("mes desconocido %q", raw)
	}
	return m, nil
}

// MonthFromNumber returns the month for 1..12.
func MonthFromNumber(n int) (Month, error) {
	if n < 1 || n > 12 {
		return 0, fmt.Errorf("mes fuera de rango %d", n)
	}
	return Month(n), nil
}

// String returns the stored name.
func (m Month) String() string {
	if m < Enero || m > Diciembre {
		return ""
	}
	return monthNames[m]
}

// Valid reports whether m is within 1..12.
func (m Month) Valid() bool {
	return m >= Enero && m <= Diciembre
}
