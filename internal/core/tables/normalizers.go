package tables

import "strings"

// usStates lists postal codes with their names, in code order.
var usStates = [...][2]string{
	{"AK", "alaska"}, {"AL", "alabama"}, {"AR", "arkansas"}, {"AZ", "arizona"},
	{"CA", "california"}, {"CO", "colorado"}, {"CT", "connecticut"},
	{"DC", "district of columbia"}, {"DE", "delaware"},
	{"FL", "florida"}, {"GA", "georgia"}, {"HI", "hawaii"},
	{"IA", "iowa"}, {"ID", "idaho"}, {"IL", "illinois"}, {"IN", "indiana"},
	{"KS", "kansas"}, {"KY", "kentucky"}, {"LA", "louisiana"},
	{"MA", "massachusetts"}, {"MD", "maryland"}, {"ME", "maine"}, {"MI", "michigan"},
	{"MN", "minnesota"}, {"MO", "missouri"}, {"MS", "mississippi"}, {"MT", "montana"},
	{"NC", "north carolina"}, {"ND", "north dakota"}, {"NE", "nebraska"},
	{"NH", "new hampshire"}, {"NJ", "new jersey"}, {"NM", "new mexico"},
	{"NV", "nevada"}, {"NY", "new york"},
	{"OH", "ohio"}, {"OK", "oklahoma"}, {"OR", "oregon"}, {"PA", "pennsylvania"},
	{"RI", "rhode island"}, {"SC", "south carolina"}, {"SD", "south dakota"},
	{"TN", "tennessee"}, {"TX", "texas"}, {"UT", "utah"},
	{"VA", "virginia"}, {"VT", "vermont"}, {"WA", "washington"},
	{"WI", "wisconsin"}, {"WV", "west virginia"}, {"WY", "wyoming"},
}

// stateCodes resolves both a lowercased name and a code to the code.
var stateCodes = func() map[string]string {
	m := make(map[string]string, 2*len(usStates))
	for _, s := range usStates {
		m[s[1]] = s[0]
		m[strings.ToLower(s[0])] = s[0]
	}
	return m
}()

// StateCode returns the postal code of a US state given by name or code,
// and false for anything else.
func StateCode(s string) (string, bool) {
	code, ok := stateCodes[strings.ToLower(strings.TrimSpace(s))]
	return code, ok
}

// NormalizeLocation rewrites the trailing state of a "City, State" location
// to its code: "austin, texas" becomes "austin, TX". Unknown states are
// kept as written.
func NormalizeLocation(s string) string {
	s = strings.TrimSpace(s)
	city, state := "", s
	if i := strings.LastIndex(s, ","); i >= 0 {
		city, state = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	if code, ok := StateCode(state); ok {
		state = code
	}
	if city == "" {
		return state
	}
	return city + ", " + state
}
