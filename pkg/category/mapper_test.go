// pkg/category/mapper_test.go
package category

import (
	"testing"
)

func TestMap_CanonicalAssignments(t *testing.T) {
	m := NewDefaultMapper()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "straight bourbon", input: "STRAIGHT BOURBON WHISKIES", want: "Whiskey"},
		{name: "scotch", input: "SINGLE MALT SCOTCH", want: "Whiskey"},
		{name: "canadian whisky spelling", input: "CANADIAN WHISKIES", want: "Whiskey"},
		{name: "vodka flavored", input: "AMERICAN FLAVORED VODKA", want: "Vodka"},
		{name: "spiced rum", input: "SPICED RUM", want: "Rum"},
		{name: "tequila", input: "100% AGAVE TEQUILA", want: "Tequila & Mezcal"},
		{name: "mezcal", input: "MEZCAL JOVEN", want: "Tequila & Mezcal"},
		{name: "dry gin", input: "AMERICAN DRY GINS", want: "Gin"},
		{name: "brandy", input: "IMPORTED GRAPE BRANDIES", want: "Brandy & Cognac"},
		{name: "cognac", input: "VSOP COGNAC", want: "Brandy & Cognac"},
		{name: "amaretto", input: "IMPORTED AMARETTO", want: "Liqueurs & Cordials"},
		{name: "cordial", input: "CHERRY CORDIALS", want: "Liqueurs & Cordials"},
		{name: "creme", input: "CREME DE MENTHE", want: "Liqueurs & Cordials"},
		{name: "rock and rye", input: "ROCK & RYE SPECIALTY", want: "Liqueurs & Cordials"},
		{name: "triple sec", input: "TRIPLE SEC", want: "Liqueurs & Cordials"},
		{name: "peppermint schnapps", input: "PEPPERMINT SCHNAPPS", want: "Schnapps"},
		{name: "high proof beer", input: "HIGH PROOF BEER - AMERICAN", want: "Beer"},
		{name: "wine specialty", input: "SPARKLING WINE", want: "Wine"},
		{name: "lowercase input", input: "straight bourbon whiskies", want: "Whiskey"},
		{name: "mixed case input", input: "Imported Vodka", want: "Vodka"},
		{name: "unmatched specialty", input: "Unknown Specialty Item 42", want: "Other Spirits"},
		{name: "empty label", input: "", want: "Other Spirits"},
		{name: "whitespace only", input: "   ", want: "Other Spirits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.input); got != tt.want {
				t.Errorf("Map(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Overlap resolution is pinned by rule order: Whiskey precedes
// Liqueurs & Cordials, Rum precedes Liqueurs & Cordials.
func TestMap_OverlapOrderPinning(t *testing.T) {
	m := NewDefaultMapper()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "whiskey beats liqueur", input: "Irish Whiskey Cream Liqueur", want: "Whiskey"},
		{name: "whiskey beats creme", input: "WHISKEY CREME SPECIALTY", want: "Whiskey"},
		{name: "vodka beats liqueur", input: "VODKA BASED LIQUEUR", want: "Vodka"},
		{name: "rum beats cordial", input: "RUM CORDIAL", want: "Rum"},
		{name: "liqueur beats schnapps", input: "LIQUEUR SCHNAPPS BLEND", want: "Liqueurs & Cordials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.input); got != tt.want {
				t.Errorf("Map(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Every input resolves to exactly one member of the closed canonical set,
// and repeated calls agree.
func TestMap_ClosureAndDeterminism(t *testing.T) {
	m := NewDefaultMapper()

	canonical := make(map[string]struct{})
	for _, l := range m.Labels() {
		canonical[l] = struct{}{}
	}

	if len(canonical) != 11 {
		t.Fatalf("Labels() has %d distinct labels, want 11", len(canonical))
	}

	inputs := []string{
		"STRAIGHT BOURBON WHISKIES",
		"IMPORTED VODKA - MISC",
		"FLAVORED RUM",
		"TEQUILA ANEJO",
		"FLAVORED GIN",
		"APRICOT BRANDIES",
		"COFFEE LIQUEURS",
		"ROOT BEER SCHNAPPS",
		"HIGH PROOF BEER",
		"DESSERT WINE",
		"Unknown Specialty Item 42",
		"",
		"1234567890",
		"!!@@##",
		"DELISTED / SPECIAL ORDER ITEMS",
	}

	for _, in := range inputs {
		first := m.Map(in)
		if _, ok := canonical[first]; !ok {
			t.Errorf("Map(%q) = %q, not in the canonical label set", in, first)
		}
		for i := 0; i < 3; i++ {
			if again := m.Map(in); again != first {
				t.Errorf("Map(%q) changed between calls: %q then %q", in, first, again)
			}
		}
	}
}

func TestLabels_OrderAndFallback(t *testing.T) {
	m := NewDefaultMapper()

	want := []string{
		"Whiskey",
		"Vodka",
		"Rum",
		"Tequila & Mezcal",
		"Gin",
		"Brandy & Cognac",
		"Liqueurs & Cordials",
		"Schnapps",
		"Beer",
		"Wine",
		"Other Spirits",
	}

	got := m.Labels()
	if len(got) != len(want) {
		t.Fatalf("Labels() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewMapper_InvalidPattern(t *testing.T) {
	_, err := NewMapper([]Rule{{Label: "Broken", Expr: `([unclosed`}})
	if err == nil {
		t.Fatal("NewMapper() expected error for invalid pattern")
	}
}

func TestLabels_CopyIsIndependent(t *testing.T) {
	m := NewDefaultMapper()

	labels := m.Labels()
	labels[0] = "Tampered"

	if m.Labels()[0] != "Whiskey" {
		t.Error("mutating the returned slice must not affect the mapper")
	}
}
