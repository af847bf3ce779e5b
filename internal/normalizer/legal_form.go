package normalizer

var legalForms = compileLegalForms(defaultRules.LegalForms)

func compileLegalForms(forms []string) []boundedRule {
	sorted := append([]string(nil), forms...)
	longestFirst(sorted)

	rules := make([]boundedRule, 0, len(sorted))
	for _, f := range sorted {
		rules = append(rules, newBoundedRule(f, f, true))
	}
	return rules
}

// NormalizeLegalForm rewrites known legal-form tokens (GmbH, AG, Sàrl, ...)
// to their canonical casing. The rest of the company name is untouched.
func NormalizeLegalForm(company string) string {
	if company == "" {
		return ""
	}
	result := company
	for _, rule := range legalForms {
		canonical := rule.replacement
		result = rule.apply(result, isWordRune, func(string) string { return canonical })
	}
	return result
}
