// pkg/category/rules.go
package category

// Rule pairs a regex pattern with the canonical label it assigns. Rules are
// evaluated in slice order and the first match wins, so overlapping patterns
// resolve predictably ("Irish Whiskey Cream Liqueur" is Whiskey, not
// Liqueurs & Cordials). Reordering rules changes behavior.
type Rule struct {
	Label string
	Expr  string
}

// Fallback is the canonical label for inputs no rule matches.
const Fallback = "Other Spirits"

// DefaultRules returns the default ordered ruleset for the Iowa retail
// extract's Category Name column.
func DefaultRules() []Rule {
	return []Rule{
		{Label: "Whiskey", Expr: `WHISKEY|WHISKIES|WHISKY|BOURBON|SCOTCH`},
		{Label: "Vodka", Expr: `VODKA`},
		{Label: "Rum", Expr: `RUM`},
		{Label: "Tequila & Mezcal", Expr: `TEQUILA|MEZCAL`},
		{Label: "Gin", Expr: `GIN`},
		{Label: "Brandy & Cognac", Expr: `BRANDY|BRANDIES|COGNAC`},
		{Label: "Liqueurs & Cordials", Expr: `AMARETTO|CORDIAL|LIQUEUR|ANISETTE|CREME|ROCK & RYE|TRIPLE SEC`},
		{Label: "Schnapps", Expr: `SCHNAPPS`},
		{Label: "Beer", Expr: `BEER`},
		{Label: "Wine", Expr: `WINE`},
	}
}
