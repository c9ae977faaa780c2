package core

import "strings"

// Currency is an ISO 4217 code offered on the preferences page.
type Currency struct {
	Code string
	Name string
}

// Currencies lists the selectable currencies.
var Currencies = []Currency{
	{"AUD", "Australian Dollar"},
	{"BRL", "Brazilian Real"},
	{"CAD", "Canadian Dollar"},
	{"CHF", "Swiss Franc"},
	{"CNY", "Chinese Yuan"},
	{"DKK", "Danish Krone"},
	{"EUR", "Euro"},
	{"GBP", "British Pound"},
	{"INR", "Indian Rupee"},
	{"JPY", "Japanese Yen"},
	{"KES", "Kenyan Shilling"},
	{"MXN", "Mexican Peso"},
	{"NGN", "Nigerian Naira"},
	{"NOK", "Norwegian Krone"},
	{"NZD", "New Zealand Dollar"},
	{"PLN", "Polish Zloty"},
	{"SEK", "Swedish Krona"},
	{"UGX", "Ugandan Shilling"},
	{"USD", "United States Dollar"},
	{"ZAR", "South African Rand"},
}

// LookupCurrency normalizes code and reports whether it is selectable.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}
